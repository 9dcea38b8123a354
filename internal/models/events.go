package models

import (
	"github.com/google/uuid"

	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// EventType constants for betting events
const (
	EventTypeBetMatched        = "bet.matched"
	EventTypeBetResolved       = "bet.resolved"
	EventTypeBetCancelled      = "bet.cancelled"
	EventTypeBetUpdated        = "bet.updated"
	EventTypeBetRestored       = "bet.restored"
	EventTypeGameStatusChanged = "game.status_changed"
)

// Event is a notification produced while applying operations. Events are
// plain records; their order inside a block is kept for consumers.
type Event interface {
	EventType() string
	GameID() uuid.UUID
}

// ResolveKind distinguishes a won bet from a pushed one
type ResolveKind string

const (
	ResolveWin  ResolveKind = "win"
	ResolveDraw ResolveKind = "draw"
)

// CancelKind tells which collection a cancelled bet was removed from
type CancelKind string

const (
	CancelPending CancelKind = "pending"
	CancelMatched CancelKind = "matched"
)

// BetMatchedEvent reports a new matched bet
type BetMatchedEvent struct {
	GameUUID     uuid.UUID     `json:"game_uuid"`
	MatchedBetID int64         `json:"matched_bet_id"`
	Bet1UUID     uuid.UUID     `json:"bet1_uuid"`
	Bet1Better   string        `json:"bet1_better"`
	Bet1Stake    betting.Asset `json:"bet1_matched_stake"`
	Bet2UUID     uuid.UUID     `json:"bet2_uuid"`
	Bet2Better   string        `json:"bet2_better"`
	Bet2Stake    betting.Asset `json:"bet2_matched_stake"`
}

// BetResolvedEvent reports the aggregated payout of one bet
type BetResolvedEvent struct {
	GameUUID uuid.UUID     `json:"game_uuid"`
	BetUUID  uuid.UUID     `json:"bet_uuid"`
	Better   string        `json:"better"`
	Income   betting.Asset `json:"income"`
	Kind     ResolveKind   `json:"kind"`
}

// BetCancelledEvent reports a refunded stake
type BetCancelledEvent struct {
	GameUUID uuid.UUID     `json:"game_uuid"`
	BetUUID  uuid.UUID     `json:"bet_uuid"`
	Better   string        `json:"better"`
	Stake    betting.Asset `json:"stake"`
	Kind     CancelKind    `json:"kind"`
}

// BetUpdatedEvent reports a pending bet that grew back after an unwind
type BetUpdatedEvent struct {
	GameUUID uuid.UUID     `json:"game_uuid"`
	BetUUID  uuid.UUID     `json:"bet_uuid"`
	Better   string        `json:"better"`
	OldStake betting.Asset `json:"old_stake"`
	NewStake betting.Asset `json:"new_stake"`
}

// BetRestoredEvent reports a pending bet re-created after an unwind
type BetRestoredEvent struct {
	GameUUID uuid.UUID     `json:"game_uuid"`
	BetUUID  uuid.UUID     `json:"bet_uuid"`
	Better   string        `json:"better"`
	Stake    betting.Asset `json:"stake"`
}

// GameStatusChangedEvent reports a lifecycle transition
type GameStatusChangedEvent struct {
	GameUUID  uuid.UUID  `json:"game_uuid"`
	OldStatus GameStatus `json:"old_status"`
	NewStatus GameStatus `json:"new_status"`
}

func (BetMatchedEvent) EventType() string        { return EventTypeBetMatched }
func (BetResolvedEvent) EventType() string       { return EventTypeBetResolved }
func (BetCancelledEvent) EventType() string      { return EventTypeBetCancelled }
func (BetUpdatedEvent) EventType() string        { return EventTypeBetUpdated }
func (BetRestoredEvent) EventType() string       { return EventTypeBetRestored }
func (GameStatusChangedEvent) EventType() string { return EventTypeGameStatusChanged }

func (e BetMatchedEvent) GameID() uuid.UUID        { return e.GameUUID }
func (e BetResolvedEvent) GameID() uuid.UUID       { return e.GameUUID }
func (e BetCancelledEvent) GameID() uuid.UUID      { return e.GameUUID }
func (e BetUpdatedEvent) GameID() uuid.UUID        { return e.GameUUID }
func (e BetRestoredEvent) GameID() uuid.UUID       { return e.GameUUID }
func (e GameStatusChangedEvent) GameID() uuid.UUID { return e.GameUUID }

// EventBuffer collects the events of the block being applied
type EventBuffer struct {
	events []Event
}

func (b *EventBuffer) Emit(event Event) {
	b.events = append(b.events, event)
}

// Len is used as a mark to roll the buffer back with Truncate
func (b *EventBuffer) Len() int {
	return len(b.events)
}

func (b *EventBuffer) Truncate(n int) {
	clear(b.events[n:])
	b.events = b.events[:n]
}

// Events returns the buffered events without consuming them
func (b *EventBuffer) Events() []Event {
	return b.events
}

// Drain returns the buffered events and empties the buffer
func (b *EventBuffer) Drain() []Event {
	events := b.events
	b.events = nil
	return events
}
