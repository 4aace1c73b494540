package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure IngestPipeline implements the interface.
var _ driving.IngestService = (*IngestPipeline)(nil)

// Item kinds consumed by each stage. Each stage's tracker is keyed by the
// artefact it reads, so the four processed sets never mix.
type (
	sourceName  string
	unitsName   string
	chunksName  string
	recordsName string
)

// IngestDeps holds the collaborators of an IngestPipeline.
type IngestDeps struct {
	Source     driven.DocumentSource
	Extractors driven.ExtractorRegistry
	Processors driven.PostProcessorPipeline
	Units      driven.UnitStore
	Records    driven.EmbeddingRecordStore
	Embedder   *EmbeddingStore
	Index      driven.VectorIndexStore
	Trackers   driven.TrackerStore

	// Lock excludes other processes. Optional.
	Lock driven.RunLock
}

// IngestPipeline runs extraction, chunking, embedding and indexing.
// Every stage consults its tracker first, so a rerun over unchanged input
// does no work and a crashed run resumes where it stopped.
type IngestPipeline struct {
	deps IngestDeps

	extracted *StageTracker[sourceName]
	chunked   *StageTracker[unitsName]
	embedded  *StageTracker[chunksName]
	indexed   *StageTracker[recordsName]

	// run serialises runs within the process.
	run sync.Mutex

	mu     sync.RWMutex
	status driving.IngestStatus
}

// NewIngestPipeline creates a pipeline over deps.
func NewIngestPipeline(deps IngestDeps) *IngestPipeline {
	return &IngestPipeline{
		deps:      deps,
		extracted: NewStageTracker[sourceName](deps.Trackers, domain.StageExtraction),
		chunked:   NewStageTracker[unitsName](deps.Trackers, domain.StageChunking),
		embedded:  NewStageTracker[chunksName](deps.Trackers, domain.StageEmbedding),
		indexed:   NewStageTracker[recordsName](deps.Trackers, domain.StageIndex),
	}
}

// Run executes every stage in order.
func (p *IngestPipeline) Run(ctx context.Context) (*domain.IngestReport, error) {
	release, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	report := &domain.IngestReport{}
	defer p.finish(report)

	logger.Section("Ingest")
	for _, stage := range domain.Stages() {
		sr, err := p.runStage(ctx, stage)
		if sr != nil {
			report.Stages = append(report.Stages, *sr)
		}
		if err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
	}
	report.Duration = time.Since(start)

	logger.Info("Ingest complete in %s: %d failures", report.Duration.Round(time.Millisecond), report.Failures())
	return report, nil
}

// RunStage executes one stage.
func (p *IngestPipeline) RunStage(ctx context.Context, stage domain.Stage) (*domain.StageReport, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidInput, stage)
	}
	release, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	report := &domain.IngestReport{}
	defer p.finish(report)

	sr, err := p.runStage(ctx, stage)
	if sr != nil {
		report.Stages = append(report.Stages, *sr)
		report.Duration = sr.Duration
	}
	return sr, err
}

// Status returns a copy of the pipeline state.
func (p *IngestPipeline) Status() driving.IngestStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// begin takes the process and cross-process locks.
func (p *IngestPipeline) begin(ctx context.Context) (func(), error) {
	if !p.run.TryLock() {
		return nil, domain.ErrIngestLocked
	}

	releaseLock := func() error { return nil }
	if p.deps.Lock != nil {
		var err error
		releaseLock, err = p.deps.Lock.Acquire(ctx)
		if err != nil {
			p.run.Unlock()
			return nil, fmt.Errorf("acquire ingest lock: %w", err)
		}
	}

	p.mu.Lock()
	p.status.Running = true
	p.mu.Unlock()

	return func() {
		if err := releaseLock(); err != nil {
			logger.Warn("Failed to release ingest lock: %v", err)
		}
		p.run.Unlock()
	}, nil
}

func (p *IngestPipeline) finish(report *domain.IngestReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Running = false
	p.status.Stage = ""
	p.status.LastReport = report
}

func (p *IngestPipeline) setStage(stage domain.Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Stage = stage
}

func (p *IngestPipeline) runStage(ctx context.Context, stage domain.Stage) (*domain.StageReport, error) {
	p.setStage(stage)
	start := time.Now()
	report := &domain.StageReport{Stage: stage}

	var err error
	switch stage {
	case domain.StageExtraction:
		err = p.extract(ctx, report)
	case domain.StageChunking:
		err = p.chunk(ctx, report)
	case domain.StageEmbedding:
		err = p.embed(ctx, report)
	case domain.StageIndex:
		err = p.index(ctx, report)
	}
	report.Duration = time.Since(start)

	if err != nil {
		return report, fmt.Errorf("%s stage: %w", stage, err)
	}
	logger.Info("%s: %d processed, %d skipped, %d failed, %d added",
		stage, report.Processed, report.Skipped, len(report.Failed), report.Added)
	return report, nil
}

// fail records a per-item failure. The item stays unmarked and is retried
// on the next run.
func fail(report *domain.StageReport, item string, err error) {
	logger.Warn("%s failed for %s: %v", report.Stage, item, err)
	report.Failed = append(report.Failed, domain.ItemError{Item: item, Err: err})
}

// extract turns new source files into units.
func (p *IngestPipeline) extract(ctx context.Context, report *domain.StageReport) error {
	if err := p.extracted.Load(ctx); err != nil {
		return err
	}
	files, err := p.deps.Source.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.extracted.IsProcessed(sourceName(f.Name)) {
			report.Skipped++
			continue
		}
		ext, err := p.deps.Extractors.For(f.Path)
		if err != nil {
			logger.Debug("Skipping unsupported file %s", f.Name)
			report.Skipped++
			continue
		}

		logger.Debug("Extracting %s", f.Name)
		units, err := ext.Extract(ctx, f.Path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fail(report, f.Name, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err))
			continue
		}
		if len(units) == 0 {
			logger.Warn("No text extracted from %s", f.Name)
		}
		if err := p.deps.Units.Save(ctx, domain.StageExtraction, f.Name, units); err != nil {
			fail(report, f.Name, fmt.Errorf("save units: %w", err))
			continue
		}
		if err := p.extracted.Commit(ctx, sourceName(f.Name)); err != nil {
			fail(report, f.Name, err)
			continue
		}
		report.Processed++
		report.Added += len(units)
	}
	return nil
}

// chunk runs the post-processors over new unit files.
func (p *IngestPipeline) chunk(ctx context.Context, report *domain.StageReport) error {
	if err := p.chunked.Load(ctx); err != nil {
		return err
	}
	names, err := p.deps.Units.List(ctx, domain.StageExtraction)
	if err != nil {
		return fmt.Errorf("list extracted units: %w", err)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.chunked.IsProcessed(unitsName(name)) {
			report.Skipped++
			continue
		}

		units, err := p.deps.Units.Load(ctx, domain.StageExtraction, name)
		if err != nil {
			fail(report, name, fmt.Errorf("load units: %w", err))
			continue
		}
		chunks, err := p.deps.Processors.Process(ctx, units)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fail(report, name, err)
			continue
		}
		if err := p.deps.Units.Save(ctx, domain.StageChunking, name, chunks); err != nil {
			fail(report, name, fmt.Errorf("save chunks: %w", err))
			continue
		}
		if err := p.chunked.Commit(ctx, unitsName(name)); err != nil {
			fail(report, name, err)
			continue
		}
		logger.Debug("Chunked %s: %d units into %d chunks", name, len(units), len(chunks))
		report.Processed++
		report.Added += len(chunks)
	}
	return nil
}

// embed computes vectors for chunks not yet embedded under the current model.
func (p *IngestPipeline) embed(ctx context.Context, report *domain.StageReport) error {
	if err := p.embedded.Load(ctx); err != nil {
		return err
	}
	names, err := p.deps.Units.List(ctx, domain.StageChunking)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.embedded.IsProcessed(chunksName(name)) {
			report.Skipped++
			continue
		}

		chunks, err := p.deps.Units.Load(ctx, domain.StageChunking, name)
		if err != nil {
			fail(report, name, fmt.Errorf("load chunks: %w", err))
			continue
		}
		saved, err := p.deps.Records.Load(ctx, name)
		if err != nil {
			fail(report, name, fmt.Errorf("load embeddings: %w", err))
			continue
		}
		fresh, err := p.deps.Embedder.EmbedNew(ctx, chunks, KnownKeys(saved))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fail(report, name, err)
			continue
		}
		if len(fresh) > 0 {
			all := make([]domain.EmbeddingRecord, 0, len(saved)+len(fresh))
			all = append(append(all, saved...), fresh...)
			if err := p.deps.Records.Save(ctx, name, all); err != nil {
				fail(report, name, fmt.Errorf("save embeddings: %w", err))
				continue
			}
		}
		if err := p.embedded.Commit(ctx, chunksName(name)); err != nil {
			fail(report, name, err)
			continue
		}
		logger.Debug("Embedded %s: %d new of %d chunks", name, len(fresh), len(chunks))
		report.Processed++
		report.Added += len(fresh)
	}
	return nil
}

// index merges new embedding files into the vector index. The index is
// created even when there is nothing to merge so queries can run.
func (p *IngestPipeline) index(ctx context.Context, report *domain.StageReport) error {
	if err := p.indexed.Load(ctx); err != nil {
		return err
	}
	names, err := p.deps.Records.List(ctx)
	if err != nil {
		return fmt.Errorf("list embeddings: %w", err)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.indexed.IsProcessed(recordsName(name)) {
			report.Skipped++
			continue
		}

		records, err := p.deps.Records.Load(ctx, name)
		if err != nil {
			fail(report, name, fmt.Errorf("load embeddings: %w", err))
			continue
		}
		added, err := p.deps.Index.Merge(ctx, records)
		if err != nil {
			if errors.Is(err, domain.ErrMetricMismatch) {
				return err
			}
			fail(report, name, fmt.Errorf("merge into index: %w", err))
			continue
		}
		if err := p.indexed.Commit(ctx, recordsName(name)); err != nil {
			fail(report, name, err)
			continue
		}
		report.Processed++
		report.Added += added
	}

	if _, err := p.deps.Index.Merge(ctx, nil); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}
