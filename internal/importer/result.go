package importer

import (
	"fmt"
	"sync"
	"time"
)

// Severity classifies a result message.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Message is one entry of the import log. Row is the 1-based data row
// number, zero for messages that do not concern a single row.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"message"`
	Row      int      `json:"row,omitempty"`
	Field    string   `json:"field,omitempty"`
	Segment  int      `json:"segment,omitempty"`
	Stage    string   `json:"stage,omitempty"`
}

// Result aggregates the outcome of one import run. It is safe for
// concurrent use by the stages of a batch.
type Result struct {
	mu sync.Mutex

	total       int
	newRecords  int
	modified    int
	failed      int
	aborted     bool
	startedAt   time.Time
	completedAt time.Time
	messages    []Message
}

// Summary is a point-in-time copy of a Result.
type Summary struct {
	TotalRecords    int        `json:"total_records"`
	NewRecords      int        `json:"new_records"`
	ModifiedRecords int        `json:"modified_records"`
	FailedRecords   int        `json:"failed_records"`
	Warnings        int        `json:"warnings"`
	Errors          int        `json:"errors"`
	Aborted         bool       `json:"aborted"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Messages        []Message  `json:"messages,omitempty"`
}

// NewResult creates an empty result for a dataset of total rows.
func NewResult(total int) *Result {
	return &Result{total: total, startedAt: time.Now().UTC()}
}

func (r *Result) add(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// AddInfo records an informational message for a row field.
func (r *Result) AddInfo(text string, row int, field string) {
	r.add(Message{Severity: SeverityInfo, Text: text, Row: row, Field: field})
}

// AddWarning records a warning for a row field.
func (r *Result) AddWarning(text string, row int, field string) {
	r.add(Message{Severity: SeverityWarning, Text: text, Row: row, Field: field})
}

// AddError records a row error.
func (r *Result) AddError(text string, row int, field string) {
	r.add(Message{Severity: SeverityError, Text: text, Row: row, Field: field})
}

// AddSegmentError records a failure affecting a whole batch stage.
func (r *Result) AddSegmentError(err error, segment int, stage string) {
	r.add(Message{
		Severity: SeverityError,
		Text:     fmt.Sprintf("%s stage failed: %v", stage, err),
		Segment:  segment,
		Stage:    stage,
	})
}

func (r *Result) addCounts(newRecords, modified, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newRecords += newRecords
	r.modified += modified
	r.failed += failed
}

func (r *Result) finish(aborted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted = aborted
	r.completedAt = time.Now().UTC()
}

// TotalRecords returns the number of data rows in the dataset.
func (r *Result) TotalRecords() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// NewRecords returns the number of products created.
func (r *Result) NewRecords() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newRecords
}

// ModifiedRecords returns the number of existing products updated.
func (r *Result) ModifiedRecords() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modified
}

// FailedRecords returns the number of rows whose product could not be written.
func (r *Result) FailedRecords() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Aborted reports whether the run stopped before the dataset was exhausted.
func (r *Result) Aborted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborted
}

// Messages returns a copy of the recorded messages in insertion order.
func (r *Result) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// HasErrors reports whether any error was recorded.
func (r *Result) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the result. Messages are included when withMessages is set.
func (r *Result) Snapshot(withMessages bool) Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		TotalRecords:    r.total,
		NewRecords:      r.newRecords,
		ModifiedRecords: r.modified,
		FailedRecords:   r.failed,
		Aborted:         r.aborted,
		StartedAt:       r.startedAt,
	}
	if !r.completedAt.IsZero() {
		t := r.completedAt
		s.CompletedAt = &t
	}
	for _, m := range r.messages {
		switch m.Severity {
		case SeverityWarning:
			s.Warnings++
		case SeverityError:
			s.Errors++
		}
	}
	if withMessages {
		s.Messages = append([]Message(nil), r.messages...)
	}
	return s
}
