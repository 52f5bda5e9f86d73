package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/catalogimporter/pkg/logger"
)

// EventVersion is the envelope schema version stamped on every event.
const EventVersion = 1

// Event is the envelope shared by every catalog change notification.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	ImportID      string            `json:"import_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEvent wraps data in an envelope with a fresh id and the current UTC time.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       EventVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          dataBytes,
		Metadata:      make(map[string]string),
	}, nil
}

// WithContext copies the correlation and import ids carried by ctx onto
// the event. Ids already set on the event win.
func (e *Event) WithContext(ctx context.Context) *Event {
	if e.CorrelationID == "" {
		e.CorrelationID = logger.CorrelationIDFromContext(ctx)
	}
	if e.ImportID == "" {
		e.ImportID = logger.ImportIDFromContext(ctx)
	}
	return e
}

// WithMetadata adds a key-value pair to the event metadata.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// PartitionKey keeps all events of one aggregate on the same partition.
func (e *Event) PartitionKey() []byte {
	return []byte(e.AggregateID)
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent decodes an envelope; Data stays raw.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}

// Validate rejects envelopes consumers could not route or deduplicate.
func (e *Event) Validate() error {
	switch {
	case e.EventID == "":
		return errors.New("event id is empty")
	case e.EventType == "":
		return errors.New("event type is empty")
	case e.AggregateID == "":
		return fmt.Errorf("%s event has no aggregate id", e.EventType)
	}
	return nil
}
