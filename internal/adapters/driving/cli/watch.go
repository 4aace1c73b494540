package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest new documents as they arrive",
	Long: `Runs an ingest, then watches the top level of the data folder and ingests
again whenever a file is added. Bursts of changes are coalesced: a run starts
once the folder has been quiet for the debounce interval.

Files are tracked by name, so editing a file that was already ingested does
not re-ingest it. Save the new version under a new name instead. The same
applies to a copy that stalls for longer than the debounce interval: it is
ingested as it stood, so copy large files in under a temporary hidden name
(starting with ".") and rename them once complete.

Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before re-ingesting")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	rt, err := runtimeFor(cmd, false)
	if err != nil {
		return err
	}
	if rt.ingest == nil || rt.source == nil {
		return errors.New("ingest service not configured")
	}
	ctx := cmd.Context()

	if err := ingestOnce(cmd, rt.ingest); err != nil {
		return err
	}

	changes, err := rt.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch data folder: %w", err)
	}
	cmd.Println("Watching for changes...")

	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case f, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Debug("Changed: %s", f.Name)
			timer.Reset(watchDebounce)
		case <-timer.C:
			if err := ingestOnce(cmd, rt.ingest); err != nil {
				if errors.Is(err, domain.ErrIngestLocked) {
					logger.Warn("%v", err)
					continue
				}
				return err
			}
		}
	}
}

// ingestOnce runs the pipeline and prints a one-line summary per stage.
func ingestOnce(cmd *cobra.Command, ingest driving.IngestService) error {
	report, err := ingest.Run(cmd.Context())
	if report != nil {
		added := 0
		for _, s := range report.Stages {
			if s.Stage == domain.StageIndex {
				added = s.Added
			}
		}
		cmd.Printf("[%s] ingest: %d new index entries, %d failure(s)\n",
			time.Now().Format(time.TimeOnly), added, report.Failures())
		for _, s := range report.Stages {
			for _, f := range s.Failed {
				cmd.PrintErrf("  warning: %s %s: %v\n", s.Stage, f.Item, f.Err)
			}
		}
	}
	if err != nil {
		return explain(fmt.Errorf("ingest failed: %w", err))
	}
	return nil
}
