package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent represents an event to be published to Kafka via the transactional outbox pattern
type OutboxEvent struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string          `json:"aggregate_type" db:"aggregate_type"`
	EventType     string          `json:"event_type" db:"event_type"`
	EventPayload  json.RawMessage `json:"event_payload" db:"event_payload"`
	BlockHeight   int64           `json:"block_height" db:"block_height"`
	Sequence      int             `json:"sequence" db:"sequence"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty" db:"processed_at"`
	RetryCount    int             `json:"retry_count" db:"retry_count"`
	MaxRetries    int             `json:"max_retries" db:"max_retries"`
	LastError     *string         `json:"last_error,omitempty" db:"last_error"`
}

// IsProcessed returns true if the event has been successfully published
func (e *OutboxEvent) IsProcessed() bool {
	return e.ProcessedAt != nil
}

// CanRetry returns true if the event can be retried
func (e *OutboxEvent) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// AggregateType constants
const (
	AggregateTypeGame = "game"
)

// DefaultMaxRetries bounds publishing attempts of one outbox row
const DefaultMaxRetries = 5

// NewOutboxEvent wraps a betting event emitted at the given block position.
// The id is derived from the position so that replaying a block cannot
// enqueue the same event twice.
func NewOutboxEvent(height int64, sequence int, event Event) (*OutboxEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	return &OutboxEvent{
		ID:            uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "block/%d/event/%d", height, sequence)),
		AggregateID:   event.GameID(),
		AggregateType: AggregateTypeGame,
		EventType:     event.EventType(),
		EventPayload:  payload,
		BlockHeight:   height,
		Sequence:      sequence,
		MaxRetries:    DefaultMaxRetries,
	}, nil
}
