// Package importer runs batched bulk product imports.
//
// A run splits the dataset into batches. Each batch first goes through the
// product stage, which resolves, converts and writes one product per row.
// Rows whose product was committed then flow through the dependent stages:
// slugs, localized properties, category and manufacturer mappings, and
// pictures. Every stage has its own write batch, so a stage failure never
// undoes the work of an earlier stage.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/catalogimporter/internal/dataset"
	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/repository"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
	"github.com/utafrali/catalogimporter/pkg/logger"
	"github.com/utafrali/catalogimporter/pkg/tracing"
)

const (
	// DefaultBatchSize is the number of rows per batch when Options.BatchSize is zero.
	DefaultBatchSize = 100

	// MaxBatchSize is the largest accepted batch size.
	MaxBatchSize = 5000
)

// Stage names used in results, logs and metrics.
const (
	StageProducts      = "products"
	StageSlugs         = "slugs"
	StageLocalizations = "localizations"
	StageCategories    = "categories"
	StageManufacturers = "manufacturers"
	StagePictures      = "pictures"
)

const tracerName = "github.com/utafrali/catalogimporter/internal/importer"

// Options configures one run.
type Options struct {
	// BatchSize is the number of rows per batch. Zero means DefaultBatchSize.
	BatchSize int

	// Culture is the BCP 47 tag used to parse numbers and dates. Empty means en-US.
	Culture string

	// ParallelDependents runs the dependent stages of a batch concurrently.
	ParallelDependents bool

	// ResumeFromBatch skips the first batches of the dataset.
	ResumeFromBatch int

	// Abort is polled before each batch. Optional.
	Abort AbortSignal

	// Progress is told how many rows were handed to the pipeline before each batch. Optional.
	Progress ProgressReporter
}

// Dependencies are the collaborators of an Importer. Notifier and Logger are optional.
type Dependencies struct {
	Products             repository.ProductRepository
	Slugs                SlugService
	Languages            repository.LanguageRepository
	Localized            repository.LocalizedPropertyRepository
	Categories           repository.TargetRepository
	ProductCategories    repository.MappingRepository
	Manufacturers        repository.TargetRepository
	ProductManufacturers repository.MappingRepository
	Pictures             PictureService
	Notifier             Notifier
	Logger               *slog.Logger
}

// Importer imports product datasets. An Importer is safe for concurrent
// runs; each run keeps its state in its own Result and Segmenter.
type Importer struct {
	deps   Dependencies
	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new importer.
func New(deps Dependencies) *Importer {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Importer{
		deps:   deps,
		tracer: tracing.Tracer(tracerName),
		logger: deps.Logger,
		now:    time.Now,
	}
}

// stageFunc processes the rows of one batch within one stage. A returned
// error fails the stage as a whole; row problems are recorded on the result.
type stageFunc func(ctx context.Context, bc *batchContext, rows []*Row) error

// batchContext is the state shared by the stages of one batch.
type batchContext struct {
	segment int
	seg     *Segmenter
	culture *Culture
	result  *Result
	logger  *slog.Logger
}

// Execute imports table. Row and stage failures are reported on the
// returned Result; an error is returned only for invalid options or an
// unreadable dataset. Cancelling ctx or raising opts.Abort stops the run at
// the next batch boundary.
func (im *Importer) Execute(ctx context.Context, table dataset.Table, opts Options) (*Result, error) {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize < 0 || batchSize > MaxBatchSize {
		return nil, apperrors.InvalidInput(fmt.Sprintf("batch size must be between 1 and %d", MaxBatchSize))
	}
	culture, err := ParseCulture(opts.Culture)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	seg := NewSegmenter(table, batchSize, culture)
	if opts.ResumeFromBatch > 0 {
		if err := seg.Seek(opts.ResumeFromBatch); err != nil {
			return nil, apperrors.InvalidInput(err.Error())
		}
	}
	result := NewResult(seg.TotalRows())

	ctx, span := im.tracer.Start(ctx, "importer.Execute", trace.WithAttributes(
		attribute.Int("import.total_rows", seg.TotalRows()),
		attribute.Int("import.batch_size", batchSize),
		attribute.String("import.culture", culture.Name()),
	))
	defer span.End()

	log := logger.WithContext(ctx, im.logger)
	log.InfoContext(ctx, "import started",
		slog.Int("total_rows", seg.TotalRows()),
		slog.Int("batches", seg.BatchCount()),
		slog.Int("batch_size", batchSize),
		slog.String("culture", culture.Name()),
	)

	aborted := false
	for seg.CurrentSegment() < seg.BatchCount() {
		if im.shouldAbort(ctx, opts.Abort) {
			aborted = true
			break
		}
		if !seg.ReadNextBatch() {
			break
		}
		if opts.Progress != nil {
			opts.Progress.ReportProgress(ctx, seg.CurrentSegmentFirstRowIndex()-1, seg.TotalRows())
		}
		// A started batch always completes, even when ctx is cancelled meanwhile.
		im.processBatch(context.WithoutCancel(ctx), seg, culture, result, log, opts)
	}

	if err := seg.Err(); err != nil {
		result.finish(false)
		Runs.WithLabelValues("failed").Inc()
		tracing.RecordError(span, err)
		log.ErrorContext(ctx, "import failed", slog.Any("error", err))
		return result, fmt.Errorf("import dataset: %w", err)
	}

	result.finish(aborted)
	status := "completed"
	if aborted {
		status = "aborted"
	}
	Runs.WithLabelValues(status).Inc()

	summary := result.Snapshot(false)
	span.SetAttributes(
		attribute.Int("import.new", summary.NewRecords),
		attribute.Int("import.modified", summary.ModifiedRecords),
		attribute.Int("import.failed", summary.FailedRecords),
		attribute.Bool("import.aborted", aborted),
	)
	log.InfoContext(ctx, "import finished",
		slog.String("status", status),
		slog.Int("new", summary.NewRecords),
		slog.Int("modified", summary.ModifiedRecords),
		slog.Int("failed", summary.FailedRecords),
		slog.Int("warnings", summary.Warnings),
		slog.Int("errors", summary.Errors),
	)
	return result, nil
}

func (im *Importer) shouldAbort(ctx context.Context, signal AbortSignal) bool {
	if ctx.Err() != nil {
		return true
	}
	return signal != nil && signal.Aborted(ctx)
}

func (im *Importer) processBatch(ctx context.Context, seg *Segmenter, culture *Culture, result *Result, log *slog.Logger, opts Options) {
	rows := seg.CurrentBatch()
	segment := seg.CurrentSegment()

	ctx, span := im.tracer.Start(ctx, "importer.batch", trace.WithAttributes(
		attribute.Int("import.segment", segment),
		attribute.Int("import.rows", len(rows)),
	))
	defer span.End()

	bc := &batchContext{
		segment: segment,
		seg:     seg,
		culture: culture,
		result:  result,
		logger:  log.With(slog.Int("segment", segment)),
	}

	im.runStage(ctx, bc, StageProducts, rows, im.processProducts)

	persisted := make([]*Row, 0, len(rows))
	newRows := 0
	for _, row := range rows {
		if row.persisted() {
			persisted = append(persisted, row)
			if row.IsNew {
				newRows++
			}
		}
	}
	modified := len(persisted) - newRows
	failed := len(rows) - len(persisted)
	result.addCounts(newRows, modified, failed)
	RowsProcessed.WithLabelValues("new").Add(float64(newRows))
	RowsProcessed.WithLabelValues("modified").Add(float64(modified))
	RowsProcessed.WithLabelValues("failed").Add(float64(failed))
	BatchesProcessed.Inc()

	if len(persisted) > 0 {
		im.runDependents(ctx, bc, persisted, opts.ParallelDependents)
	}

	bc.logger.InfoContext(ctx, "batch processed",
		slog.Int("first_row", seg.CurrentSegmentFirstRowIndex()),
		slog.Int("rows", len(rows)),
		slog.Int("new", newRows),
		slog.Int("modified", modified),
		slog.Int("failed", failed),
	)
}

type dependentStage struct {
	name string
	run  stageFunc
}

// dependentStages returns the stages whose columns are present in the dataset.
func (im *Importer) dependentStages(bc *batchContext, rows []*Row) []dependentStage {
	var stages []dependentStage
	if needsSlugs(bc.seg, rows) {
		stages = append(stages, dependentStage{StageSlugs, im.processSlugs})
	}
	if hasLocalizedColumns(bc.seg) {
		stages = append(stages, dependentStage{StageLocalizations, im.processLocalizations})
	}
	for _, a := range im.associations() {
		if bc.seg.HasColumn(a.column) {
			stages = append(stages, dependentStage{a.stage, im.associationStage(a)})
		}
	}
	if hasPictureColumns(bc.seg) {
		stages = append(stages, dependentStage{StagePictures, im.processPictures})
	}
	return stages
}

func (im *Importer) runDependents(ctx context.Context, bc *batchContext, rows []*Row, parallel bool) {
	stages := im.dependentStages(bc, rows)
	if !parallel {
		for _, s := range stages {
			im.runStage(ctx, bc, s.name, rows, s.run)
		}
		return
	}

	// runStage records its own failures.
	var wg sync.WaitGroup
	wg.Add(len(stages))
	for _, s := range stages {
		go func() {
			defer wg.Done()
			im.runStage(ctx, bc, s.name, rows, s.run)
		}()
	}
	wg.Wait()
}

// runStage runs one stage of a batch. Failures and panics are recorded as
// segment errors; they never escape into the next stage.
func (im *Importer) runStage(ctx context.Context, bc *batchContext, stage string, rows []*Row, fn stageFunc) {
	ctx, span := im.tracer.Start(ctx, "importer.stage."+stage)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			im.stageFailed(ctx, bc, stage, span, fmt.Errorf("panic: %v", rec))
		}
		StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		span.End()
	}()

	if err := fn(ctx, bc, rows); err != nil {
		im.stageFailed(ctx, bc, stage, span, err)
	}
}

func (im *Importer) stageFailed(ctx context.Context, bc *batchContext, stage string, span trace.Span, err error) {
	bc.result.AddSegmentError(err, bc.segment, stage)
	StageErrors.WithLabelValues(stage).Inc()
	tracing.RecordError(span, err)
	bc.logger.ErrorContext(ctx, "import stage failed",
		slog.String("stage", stage),
		slog.Any("error", err),
	)
}

func (im *Importer) notifyInserted(ctx context.Context, bc *batchContext, entity domain.Entity) {
	if err := im.deps.Notifier.EntityInserted(ctx, entity); err != nil {
		bc.logger.WarnContext(ctx, "failed to publish entity inserted notification",
			slog.String("entity", entity.EntityName()),
			slog.Int64("entity_id", entity.GetID()),
			slog.Any("error", err),
		)
	}
}

func (im *Importer) notifyUpdated(ctx context.Context, bc *batchContext, entity domain.Entity) {
	if err := im.deps.Notifier.EntityUpdated(ctx, entity); err != nil {
		bc.logger.WarnContext(ctx, "failed to publish entity updated notification",
			slog.String("entity", entity.EntityName()),
			slog.Int64("entity_id", entity.GetID()),
			slog.Any("error", err),
		)
	}
}

// rollback discards a batch that was not committed.
func rollback(ctx context.Context, b repository.Batch) {
	_ = b.Rollback(ctx)
}
