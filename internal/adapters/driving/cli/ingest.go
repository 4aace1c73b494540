package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// progressInterval is how often a running ingest reports its stage.
var progressInterval = 500 * time.Millisecond

var ingestStage string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents from the data folder",
	Long: `Extracts, chunks, embeds and indexes the documents in the data folder.
Each stage skips items it has already processed, so rerunning over unchanged
input does no work. Failed items are reported and retried on the next run.

Use --stage to run a single stage: extraction, chunking, embedding or index.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestStage, "stage", "", "run only this stage")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	var stage domain.Stage
	if ingestStage != "" {
		stage = domain.Stage(ingestStage)
		if !stage.IsValid() {
			return fmt.Errorf("%w: unknown stage %q (want one of %s)",
				domain.ErrInvalidInput, ingestStage, stageNames())
		}
	}

	rt, err := runtimeFor(cmd, false)
	if err != nil {
		return err
	}
	if rt.ingest == nil {
		return errors.New("ingest service not configured")
	}

	if stage != "" {
		cmd.Printf("Running %s stage...\n", stage)
		report, err := rt.ingest.RunStage(cmd.Context(), stage)
		if report != nil {
			printStageReport(cmd, report)
		}
		if err != nil {
			return explain(fmt.Errorf("ingest failed: %w", err))
		}
		return nil
	}

	cmd.Println("Ingesting documents...")
	report, err := ingestWithProgress(cmd.Context(), cmd, rt.ingest)
	if report != nil {
		printIngestReport(cmd, report)
	}
	if err != nil {
		return explain(fmt.Errorf("ingest failed: %w", err))
	}
	return nil
}

// ingestWithProgress runs the pipeline while printing stage changes.
func ingestWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	ingest driving.IngestService,
) (*domain.IngestReport, error) {
	type result struct {
		report *domain.IngestReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := ingest.Run(ctx)
		done <- result{report, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var last domain.Stage
	for {
		select {
		case res := <-done:
			return res.report, res.err
		case <-ticker.C:
			status := ingest.Status()
			if status.Running && status.Stage != "" && status.Stage != last {
				cmd.Printf("  %s...\n", status.Stage)
				last = status.Stage
			}
		}
	}
}

func printIngestReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Println()
	for i := range report.Stages {
		printStageReport(cmd, &report.Stages[i])
	}
	cmd.Printf("Done in %s with %d failure(s).\n", report.Duration.Round(time.Millisecond), report.Failures())
}

func printStageReport(cmd *cobra.Command, report *domain.StageReport) {
	cmd.Printf("%-10s processed %d, skipped %d, failed %d, added %d (%s)\n",
		report.Stage, report.Processed, report.Skipped, len(report.Failed), report.Added,
		report.Duration.Round(time.Millisecond))
	for _, f := range report.Failed {
		cmd.PrintErrf("  warning: %s: %v\n", f.Item, f.Err)
	}
}

func stageNames() string {
	names := make([]string, 0, len(domain.Stages()))
	for _, s := range domain.Stages() {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}
