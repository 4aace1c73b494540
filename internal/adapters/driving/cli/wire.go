package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	storagefile "github.com/custodia-labs/docchat/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/docchat/internal/connectors/filesystem"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/extractors"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/postprocessors"
)

const dataDirName = "data"

// runtime holds the services one command runs against.
type runtime struct {
	settings *domain.Settings

	ingest driving.IngestService
	search driving.SearchService
	chat   driving.ChatService

	// source lists and watches the data folder.
	source driven.DocumentSource
	// units reads extracted documents back for MCP resources.
	units driven.UnitStore

	closers []func() error
}

// Close releases everything the runtime opened, last opened first.
func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// current is the runtime of the running command. Tests set it directly.
var current *runtime

// openRuntime builds a runtime from settings. Tests may replace it.
var openRuntime = buildRuntime

// runtimeFor returns the command's runtime, building it on first use.
// withLLM is required by chat and ask; other commands need embeddings only.
func runtimeFor(cmd *cobra.Command, withLLM bool) (*runtime, error) {
	if current != nil {
		return current, nil
	}
	svc, err := settings()
	if err != nil {
		return nil, err
	}
	rt, err := openRuntime(cmd.Context(), svc, withLLM)
	if err != nil {
		return nil, err
	}
	current = rt
	return rt, nil
}

func closeRuntime() error {
	if current == nil {
		return nil
	}
	err := current.Close()
	current = nil
	return err
}

// buildRuntime wires adapters and services for the configured providers.
func buildRuntime(ctx context.Context, svc driving.SettingsService, withLLM bool) (_ *runtime, err error) {
	cfg, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	paths, err := resolvePaths(cfg.Paths)
	if err != nil {
		return nil, err
	}
	cfg.Paths = paths
	logger.Debug("Root %s, data %s", paths.Root, paths.Data)

	rt := &runtime{settings: cfg}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	aiServices, err := ai.Init(ctx, cfg, withLLM)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, aiServices.Close)

	model := aiServices.Embedding.ModelName()
	layout := storagefile.NewLayout(paths.Root, model)

	trackers, err := openTrackers(rt, cfg.Tracker, layout)
	if err != nil {
		return nil, err
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := registry.BuildPipeline(svc.PipelineConfig())
	if err != nil {
		return nil, fmt.Errorf("build post-processors: %w", err)
	}

	source := filesystem.New(paths.Data)
	rt.closers = append(rt.closers, source.Close)
	rt.source = source

	index := flat.NewFileStore(layout.IndexPath(), cfg.Retrieval.Metric)
	units := storagefile.NewUnitStore(layout)
	rt.units = units

	embedder := services.NewEmbeddingStore(aiServices.Embedding,
		services.WithBatchSize(cfg.Embedding.BatchSize),
		services.WithWorkers(cfg.Embedding.Workers),
		services.WithRateLimit(cfg.Embedding.RequestsPerSecond),
	)

	rt.ingest = services.NewIngestPipeline(services.IngestDeps{
		Source:     source,
		Extractors: extractors.Default(),
		Processors: pipeline,
		Units:      units,
		Records:    storagefile.NewRecordStore(layout),
		Embedder:   embedder,
		Index:      index,
		Trackers:   trackers,
		Lock:       storagefile.NewRunLock(layout),
	})
	rt.search = services.NewSearchService(index, aiServices.Embedding, cfg.Retrieval.TopK)

	if withLLM {
		prompts, perr := file.NewPromptStore(promptDir())
		if perr != nil {
			return nil, fmt.Errorf("open prompts: %w", perr)
		}
		generator := services.NewLLMGenerator(aiServices.LLM, prompts, cfg.LLM)
		rt.chat = services.NewConversationalRetriever(
			memory.NewSessionStore(), index, aiServices.Embedding, generator, generator,
			services.WithTopK(cfg.Retrieval.TopK),
		)
	}

	return rt, nil
}

// openTrackers selects the processed-set backend.
func openTrackers(rt *runtime, backend domain.TrackerBackend, layout storagefile.Layout) (driven.TrackerStore, error) {
	switch backend {
	case domain.TrackerBackendSQLite:
		store, err := sqlite.NewStore(layout.Root())
		if err != nil {
			return nil, fmt.Errorf("open tracker database: %w", err)
		}
		rt.closers = append(rt.closers, store.Close)
		return store.TrackerStore(layout.Model()), nil
	case domain.TrackerBackendFile, "":
		return storagefile.NewTrackerStore(layout), nil
	default:
		return nil, fmt.Errorf("%w: unknown tracker backend %q", domain.ErrInvalidInput, backend)
	}
}

// resolvePaths fills unset paths. The root defaults to the working
// directory and the data folder to data/ under the root.
func resolvePaths(p domain.PathSettings) (domain.PathSettings, error) {
	root := p.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return p, fmt.Errorf("resolve root %q: %w", p.Root, err)
	}

	data := p.Data
	if data == "" {
		data = filepath.Join(root, dataDirName)
	} else if !filepath.IsAbs(data) {
		data = filepath.Join(root, data)
	}
	return domain.PathSettings{Root: root, Data: data}, nil
}

// promptDir is the prompts folder under the selected config directory.
// Empty selects the store's default.
func promptDir() string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "prompts")
}
