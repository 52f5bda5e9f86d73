// Package progress shares import progress and abort requests through Redis
// so that any replica can observe or stop a run.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

const (
	progressPrefix = "import:progress:"
	abortPrefix    = "import:abort:"
)

// State is the last progress report of a run.
type State struct {
	ImportID  string    `json:"import_id"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Percent returns the completed share in the range 0-100.
func (s State) Percent() int {
	if s.Total <= 0 {
		return 0
	}
	return s.Processed * 100 / s.Total
}

// Tracker stores progress and abort flags in Redis.
type Tracker struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewTracker creates a Redis-backed tracker. Keys expire after ttl.
func NewTracker(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{client: client, ttl: ttl, logger: logger}
}

// Run binds the tracker to a single import run. The result satisfies
// importer.ProgressReporter and importer.AbortSignal.
func (t *Tracker) Run(importID string) *Run {
	return &Run{tracker: t, importID: importID}
}

// Save stores the progress of a run.
func (t *Tracker) Save(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := t.client.Set(ctx, progressPrefix+state.ImportID, data, t.ttl).Err(); err != nil {
		return fmt.Errorf("redis set progress: %w", err)
	}
	return nil
}

// Get returns the last stored progress of a run.
func (t *Tracker) Get(ctx context.Context, importID string) (*State, error) {
	data, err := t.client.Get(ctx, progressPrefix+importID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("import progress", importID)
		}
		return nil, fmt.Errorf("redis get progress: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}
	return &state, nil
}

// RequestAbort flags a run for abortion. The run stops at its next batch boundary.
func (t *Tracker) RequestAbort(ctx context.Context, importID string) error {
	if err := t.client.Set(ctx, abortPrefix+importID, "1", t.ttl).Err(); err != nil {
		return fmt.Errorf("redis set abort: %w", err)
	}
	return nil
}

// AbortRequested reports whether an abort was requested for the run.
func (t *Tracker) AbortRequested(ctx context.Context, importID string) (bool, error) {
	n, err := t.client.Exists(ctx, abortPrefix+importID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists abort: %w", err)
	}
	return n > 0, nil
}

// Clear removes all keys of a run.
func (t *Tracker) Clear(ctx context.Context, importID string) error {
	if err := t.client.Del(ctx, progressPrefix+importID, abortPrefix+importID).Err(); err != nil {
		return fmt.Errorf("redis del progress: %w", err)
	}
	return nil
}

// Run is a Tracker scoped to one import.
type Run struct {
	tracker  *Tracker
	importID string
}

// ReportProgress stores the progress. Failures are logged only.
func (r *Run) ReportProgress(ctx context.Context, processed, total int) {
	state := State{
		ImportID:  r.importID,
		Processed: processed,
		Total:     total,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.tracker.Save(ctx, state); err != nil {
		r.tracker.logger.WarnContext(ctx, "failed to save import progress",
			slog.String("import_id", r.importID),
			slog.String("error", err.Error()),
		)
	}
}

// Aborted reports a pending abort request. A Redis failure does not abort the run.
func (r *Run) Aborted(ctx context.Context) bool {
	aborted, err := r.tracker.AbortRequested(ctx, r.importID)
	if err != nil {
		r.tracker.logger.WarnContext(ctx, "failed to read abort flag",
			slog.String("import_id", r.importID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return aborted
}
