// Package service runs imports asynchronously on behalf of the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/utafrali/catalogimporter/internal/dataset"
	"github.com/utafrali/catalogimporter/internal/importer"
	"github.com/utafrali/catalogimporter/internal/progress"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
	"github.com/utafrali/catalogimporter/pkg/logger"
	"github.com/utafrali/catalogimporter/pkg/pagination"
)

// Status is the lifecycle state of an import job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
	StatusFailed    Status = "failed"
)

// Finished reports whether the status is terminal.
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusAborted || s == StatusFailed
}

var allowedExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".tsv":  true,
	".xlsx": true,
	".xlsm": true,
}

// Runner executes an import. *importer.Importer satisfies it.
type Runner interface {
	Execute(ctx context.Context, table dataset.Table, opts importer.Options) (*importer.Result, error)
}

// FinishPublisher announces finished imports. *event.Producer satisfies it.
type FinishPublisher interface {
	PublishImportFinished(ctx context.Context, importID, fileName, status string, summary importer.Summary) error
}

// Options configures an ImportService.
type Options struct {
	WorkDir            string
	MaxConcurrent      int
	DefaultBatchSize   int
	DefaultCulture     string
	ParallelDependents bool
	// Retention is how long a finished job stays queryable.
	Retention          time.Duration
}

// DefaultRetention matches the default progress TTL.
const DefaultRetention = 24 * time.Hour

// StartImportInput holds the parameters of a new import.
type StartImportInput struct {
	FileName  string
	Data      io.Reader
	Culture   string
	BatchSize int
}

// Job is the externally visible state of an import.
type Job struct {
	ID         string            `json:"id"`
	FileName   string            `json:"file_name"`
	Status     Status            `json:"status"`
	Culture    string            `json:"culture,omitempty"`
	BatchSize  int               `json:"batch_size,omitempty"`
	Processed  int               `json:"processed"`
	Total      int               `json:"total"`
	Error      string            `json:"error,omitempty"`
	Remote     bool              `json:"remote,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Summary    *importer.Summary `json:"summary,omitempty"`
}

type job struct {
	mu         sync.Mutex
	id         string
	fileName   string
	culture    string
	batchSize  int
	status     Status
	errMsg     string
	createdAt  time.Time
	startedAt  *time.Time
	finishedAt *time.Time
	result     *importer.Result
	processed  int
	total      int
	abort      atomic.Bool
	done       chan struct{}
}

func (j *job) view() *Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	v := &Job{
		ID:         j.id,
		FileName:   j.fileName,
		Status:     j.status,
		Culture:    j.culture,
		BatchSize:  j.batchSize,
		Processed:  j.processed,
		Total:      j.total,
		Error:      j.errMsg,
		CreatedAt:  j.createdAt,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
	}
	if j.result != nil {
		s := j.result.Snapshot(false)
		v.Summary = &s
	}
	return v
}

func (j *job) expired(now time.Time, retention time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finishedAt != nil && now.Sub(*j.finishedAt) >= retention
}

// ReportProgress implements importer.ProgressReporter.
func (j *job) ReportProgress(_ context.Context, processed, total int) {
	j.mu.Lock()
	j.processed, j.total = processed, total
	j.mu.Unlock()
}

// Aborted implements importer.AbortSignal.
func (j *job) Aborted(context.Context) bool {
	return j.abort.Load()
}

// ImportService runs imports in the background and keeps their results.
type ImportService struct {
	runner    Runner
	tracker   *progress.Tracker
	publisher FinishPublisher
	logger    *slog.Logger
	opts      Options
	sem       *semaphore.Weighted

	mu   sync.RWMutex
	jobs map[string]*job
	now  func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewImportService creates a new import service. tracker and publisher are optional.
func NewImportService(
	runner Runner,
	tracker *progress.Tracker,
	publisher FinishPublisher,
	opts Options,
	logger *slog.Logger,
) *ImportService {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.DefaultBatchSize == 0 {
		opts.DefaultBatchSize = importer.DefaultBatchSize
	}
	if opts.DefaultCulture == "" {
		opts.DefaultCulture = importer.DefaultCulture
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	ctx, stop := context.WithCancel(context.Background())
	return &ImportService{
		runner:    runner,
		tracker:   tracker,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		jobs:      make(map[string]*job),
		now:       time.Now,
		baseCtx:   ctx,
		stop:      stop,
	}
}

// StartImport stores the upload and starts importing it in the background.
func (s *ImportService) StartImport(ctx context.Context, input *StartImportInput) (*Job, error) {
	name := filepath.Base(strings.TrimSpace(input.FileName))
	ext := strings.ToLower(filepath.Ext(name))
	if name == "." || name == "" {
		return nil, apperrors.InvalidInput("file name is required")
	}
	if !allowedExtensions[ext] {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported file type %q", ext))
	}

	batchSize := input.BatchSize
	if batchSize == 0 {
		batchSize = s.opts.DefaultBatchSize
	}
	if batchSize < 1 || batchSize > importer.MaxBatchSize {
		return nil, apperrors.InvalidInput(fmt.Sprintf("batch size must be between 1 and %d", importer.MaxBatchSize))
	}
	culture := input.Culture
	if culture == "" {
		culture = s.opts.DefaultCulture
	}
	if _, err := importer.ParseCulture(culture); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	if !s.sem.TryAcquire(1) {
		return nil, apperrors.LimitExceeded(fmt.Sprintf("at most %d imports may run at once", s.opts.MaxConcurrent))
	}
	released := false
	defer func() {
		if !released {
			s.sem.Release(1)
		}
	}()

	s.evictFinished()

	id := uuid.New().String()
	path, err := s.storeUpload(id, ext, input.Data)
	if err != nil {
		return nil, err
	}
	if err := checkContent(path, ext); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	table, err := dataset.Open(path)
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return nil, err
		}
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot read %s: %v", name, err))
	}

	j := &job{
		id:        id,
		fileName:  name,
		culture:   culture,
		batchSize: batchSize,
		status:    StatusPending,
		createdAt: time.Now().UTC(),
		total:     table.TotalRows(),
		done:      make(chan struct{}),
	}
	s.mu.Lock()
	s.jobs[id] = j
	s.mu.Unlock()

	runCtx := logger.WithImportID(s.baseCtx, id)
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		runCtx = logger.WithCorrelationID(runCtx, cid)
	}

	released = true
	s.wg.Add(1)
	go s.run(runCtx, j, table, path)

	logger.WithContext(runCtx, s.logger).InfoContext(ctx, "import queued",
		slog.String("file_name", name),
		slog.Int("total_rows", j.total),
	)
	return j.view(), nil
}

func (s *ImportService) storeUpload(id, ext string, data io.Reader) (string, error) {
	if data == nil {
		return "", apperrors.InvalidInput("file is required")
	}
	if err := os.MkdirAll(s.opts.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	f, err := os.CreateTemp(s.opts.WorkDir, "import-"+id+"-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return f.Name(), nil
}

// checkContent rejects uploads whose content does not match the extension.
func checkContent(path, ext string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect upload type: %w", err)
	}
	want := "text/plain"
	if ext == ".xlsx" || ext == ".xlsm" {
		want = "application/zip"
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(want) {
			return nil
		}
	}
	return apperrors.InvalidInput(fmt.Sprintf("file content %s does not match extension %s", mt.String(), ext))
}

func (s *ImportService) run(ctx context.Context, j *job, table dataset.File, path string) {
	defer close(j.done)
	defer s.wg.Done()
	defer s.sem.Release(1)
	defer func() {
		_ = table.Close()
		_ = os.Remove(path)
	}()

	log := logger.WithContext(ctx, s.logger)

	now := time.Now().UTC()
	j.mu.Lock()
	j.status = StatusRunning
	j.startedAt = &now
	j.mu.Unlock()

	opts := importer.Options{
		BatchSize:          j.batchSize,
		Culture:            j.culture,
		ParallelDependents: s.opts.ParallelDependents,
		Abort:              j,
		Progress:           j,
	}
	if s.tracker != nil {
		run := s.tracker.Run(j.id)
		opts.Abort = anyAborted{j, run}
		opts.Progress = allReporters{j, run}
	}

	var (
		result *importer.Result
		err    error
	)
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		result, err = s.runner.Execute(ctx, table, opts)
	}()

	finished := time.Now().UTC()
	j.mu.Lock()
	j.result = result
	j.finishedAt = &finished
	switch {
	case err != nil:
		j.status = StatusFailed
		j.errMsg = err.Error()
	case result != nil && result.Aborted():
		j.status = StatusAborted
	default:
		j.status = StatusCompleted
	}
	if result != nil {
		j.processed = result.NewRecords() + result.ModifiedRecords() + result.FailedRecords()
	}
	status := j.status
	j.mu.Unlock()

	if err != nil {
		log.ErrorContext(ctx, "import failed", slog.String("error", err.Error()))
	}

	if s.publisher != nil {
		var summary importer.Summary
		if result != nil {
			summary = result.Snapshot(false)
		}
		if err := s.publisher.PublishImportFinished(context.WithoutCancel(ctx), j.id, j.fileName, string(status), summary); err != nil {
			log.WarnContext(ctx, "failed to publish import finished event", slog.String("error", err.Error()))
		}
	}
}

func (s *ImportService) lookup(id string) (*job, bool) {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if ok && j.expired(s.now(), s.opts.Retention) {
		s.mu.Lock()
		delete(s.jobs, id)
		s.mu.Unlock()
		return nil, false
	}
	return j, ok
}

// evictFinished drops jobs that finished more than Retention ago.
func (s *ImportService) evictFinished() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		if j.expired(now, s.opts.Retention) {
			delete(s.jobs, id)
		}
	}
}

// GetImport returns the state of an import. Imports running on another
// replica are reported from the shared progress store.
func (s *ImportService) GetImport(ctx context.Context, id string) (*Job, error) {
	if j, ok := s.lookup(id); ok {
		return j.view(), nil
	}
	if s.tracker != nil {
		state, err := s.tracker.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Job{
			ID:        id,
			Status:    StatusRunning,
			Processed: state.Processed,
			Total:     state.Total,
			Remote:    true,
			CreatedAt: state.UpdatedAt,
		}, nil
	}
	return nil, apperrors.NotFound("import", id)
}

// ListMessages returns one page of an import's messages, optionally
// filtered by severity.
func (s *ImportService) ListMessages(_ context.Context, id string, severity importer.Severity, params pagination.Params) (pagination.Result[importer.Message], error) {
	j, ok := s.lookup(id)
	if !ok {
		return pagination.Result[importer.Message]{}, apperrors.NotFound("import", id)
	}

	j.mu.Lock()
	result := j.result
	j.mu.Unlock()

	var all []importer.Message
	if result != nil {
		all = result.Messages()
	}
	if severity != "" {
		filtered := all[:0:0]
		for _, m := range all {
			if m.Severity == severity {
				filtered = append(filtered, m)
			}
		}
		all = filtered
	}

	return pagination.Slice(all, params), nil
}

// CancelImport stops an import at its next batch boundary. Imports running
// on another replica are flagged through the shared progress store.
func (s *ImportService) CancelImport(ctx context.Context, id string) (*Job, error) {
	j, ok := s.lookup(id)
	if !ok {
		if s.tracker == nil {
			return nil, apperrors.NotFound("import", id)
		}
		if _, err := s.tracker.Get(ctx, id); err != nil {
			return nil, err
		}
		if err := s.tracker.RequestAbort(ctx, id); err != nil {
			return nil, fmt.Errorf("request abort: %w", err)
		}
		return &Job{ID: id, Status: StatusRunning, Remote: true}, nil
	}

	j.mu.Lock()
	finished := j.status.Finished()
	j.mu.Unlock()
	if finished {
		return nil, apperrors.Conflict("import already finished")
	}

	j.abort.Store(true)
	if s.tracker != nil {
		if err := s.tracker.RequestAbort(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to share abort request",
				slog.String("import_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logger.InfoContext(ctx, "import cancellation requested", slog.String("import_id", id))
	return j.view(), nil
}

// Wait blocks until the import finishes or ctx is done.
func (s *ImportService) Wait(ctx context.Context, id string) (*Job, error) {
	j, ok := s.lookup(id)
	if !ok {
		return nil, apperrors.NotFound("import", id)
	}
	select {
	case <-j.done:
		return j.view(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops running imports at their next batch boundary and waits
// for them to finish.
func (s *ImportService) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for imports: %w", ctx.Err())
	}
}

type anyAborted []importer.AbortSignal

func (a anyAborted) Aborted(ctx context.Context) bool {
	for _, s := range a {
		if s.Aborted(ctx) {
			return true
		}
	}
	return false
}

type allReporters []importer.ProgressReporter

func (r allReporters) ReportProgress(ctx context.Context, processed, total int) {
	for _, p := range r {
		p.ReportProgress(ctx, processed, total)
	}
}
