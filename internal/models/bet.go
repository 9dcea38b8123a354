package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// PendingBetKind tells whether a bet may stay in the book after game start
type PendingBetKind string

const (
	PendingBetLive    PendingBetKind = "live"     // Survives game start
	PendingBetNonLive PendingBetKind = "non_live" // Cancelled at game start
)

// BetData is the wager payload shared by pending bets and matched bet legs.
// On a pending bet Stake is the remaining stake; on a leg it is the matched one.
type BetData struct {
	UUID    uuid.UUID       `json:"uuid"`
	Better  string          `json:"better"`
	Wincase betting.Wincase `json:"wincase"`
	Odds    betting.Odds    `json:"odds"`
	Stake   betting.Asset   `json:"stake"`
	Created time.Time       `json:"created"`
	Kind    PendingBetKind  `json:"kind"`
}

// PendingBet is a wager waiting in the book for counter-side liquidity
type PendingBet struct {
	ID       int64          `json:"id"`
	GameUUID uuid.UUID      `json:"game_uuid"`
	Market   betting.Market `json:"market"`
	Data     BetData        `json:"data"`
}

// MatchedBet locks two opposite wagers together until the game resolves
type MatchedBet struct {
	ID       int64          `json:"id"`
	GameUUID uuid.UUID      `json:"game_uuid"`
	Market   betting.Market `json:"market"`
	Created  time.Time      `json:"created"`
	Bet1     BetData        `json:"bet1"`
	Bet2     BetData        `json:"bet2"`
}

// BettingProperty is the chain-wide betting configuration
type BettingProperty struct {
	Moderator    string        `json:"moderator" yaml:"moderator"`
	ResolveDelay time.Duration `json:"resolve_delay" yaml:"resolve_delay"`
	MinBetStake  betting.Asset `json:"min_bet_stake" yaml:"min_bet_stake"`
}

// BettingStats are running totals of the stake locked in bets
type BettingStats struct {
	PendingBetsVolume betting.Asset `json:"pending_bets_volume"`
	MatchedBetsVolume betting.Asset `json:"matched_bets_volume"`
}

// AddPending grows the pending volume
func (s *BettingStats) AddPending(amount betting.Asset) {
	s.PendingBetsVolume += amount
}

// SubPending shrinks the pending volume
func (s *BettingStats) SubPending(amount betting.Asset) error {
	if amount > s.PendingBetsVolume {
		return fmt.Errorf("%w: pending %d - %d", ErrNegativeVolume, s.PendingBetsVolume, amount)
	}
	s.PendingBetsVolume -= amount
	return nil
}

// AddMatched grows the matched volume
func (s *BettingStats) AddMatched(amount betting.Asset) {
	s.MatchedBetsVolume += amount
}

// SubMatched shrinks the matched volume
func (s *BettingStats) SubMatched(amount betting.Asset) error {
	if amount > s.MatchedBetsVolume {
		return fmt.Errorf("%w: matched %d - %d", ErrNegativeVolume, s.MatchedBetsVolume, amount)
	}
	s.MatchedBetsVolume -= amount
	return nil
}
