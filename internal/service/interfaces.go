package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// OperationService evaluates chain operations against the betting state.
// Every method takes the timestamp of the block being applied; no method
// reads the wall clock.
type OperationService interface {
	// CreateGame opens a new game for betting
	// Only the betting moderator may create games
	CreateGame(now time.Time, req *CreateGameRequest) error

	// CancelGame refunds every bet of a game and removes it
	CancelGame(now time.Time, req *CancelGameRequest) error

	// UpdateGameMarkets replaces the market list of a game
	// Markets dropped from a started game are rejected
	UpdateGameMarkets(now time.Time, req *UpdateGameMarketsRequest) error

	// UpdateGameStartTime moves the start of a game
	// A started game is rolled back to created and its live activity unwound
	UpdateGameStartTime(now time.Time, req *UpdateGameStartTimeRequest) error

	// PostGameResults finishes a started game
	// Matched bets are settled after the resolve delay
	PostGameResults(now time.Time, req *PostGameResultsRequest) error

	// PostBet puts a bet into the book and matches it
	PostBet(now time.Time, req *PostBetRequest) error

	// CancelPendingBets refunds pending bets on behalf of their owner
	CancelPendingBets(now time.Time, req *CancelPendingBetsRequest) error

	// RunBlockTasks performs the time driven transitions due at now
	RunBlockTasks(now time.Time) error
}

// CreateGameRequest represents the request to create a game
type CreateGameRequest struct {
	Moderator        string           `json:"moderator" yaml:"moderator" validate:"required"`
	UUID             uuid.UUID        `json:"uuid" yaml:"uuid" validate:"required"`
	Name             string           `json:"name" yaml:"name" validate:"required,max=256"`
	Type             betting.GameType `json:"game_type" yaml:"game_type" validate:"required,oneof=soccer hockey"`
	StartTime        time.Time        `json:"start_time" yaml:"start_time"`
	AutoResolveDelay time.Duration    `json:"auto_resolve_delay" yaml:"auto_resolve_delay" validate:"gt=0"`
	Markets          []betting.Market `json:"markets" yaml:"markets" validate:"required,min=1"`
}

// CancelGameRequest represents the request to cancel a game
type CancelGameRequest struct {
	Moderator string    `json:"moderator" yaml:"moderator" validate:"required"`
	GameUUID  uuid.UUID `json:"game_uuid" yaml:"game_uuid" validate:"required"`
}

// UpdateGameMarketsRequest represents the request to replace the markets of a game
type UpdateGameMarketsRequest struct {
	Moderator string           `json:"moderator" yaml:"moderator" validate:"required"`
	GameUUID  uuid.UUID        `json:"game_uuid" yaml:"game_uuid" validate:"required"`
	Markets   []betting.Market `json:"markets" yaml:"markets" validate:"required,min=1"`
}

// UpdateGameStartTimeRequest represents the request to move the start of a game
type UpdateGameStartTimeRequest struct {
	Moderator string    `json:"moderator" yaml:"moderator" validate:"required"`
	GameUUID  uuid.UUID `json:"game_uuid" yaml:"game_uuid" validate:"required"`
	StartTime time.Time `json:"start_time" yaml:"start_time"`
}

// PostGameResultsRequest represents the request to finish a game
type PostGameResultsRequest struct {
	Moderator string            `json:"moderator" yaml:"moderator" validate:"required"`
	GameUUID  uuid.UUID         `json:"game_uuid" yaml:"game_uuid" validate:"required"`
	Wincases  []betting.Wincase `json:"wincases" yaml:"wincases" validate:"required,min=1"`
}

// PostBetRequest represents the request to place a bet
type PostBetRequest struct {
	Better   string          `json:"better" yaml:"better" validate:"required"`
	GameUUID uuid.UUID       `json:"game_uuid" yaml:"game_uuid" validate:"required"`
	BetUUID  uuid.UUID       `json:"uuid" yaml:"uuid" validate:"required"`
	Wincase  betting.Wincase `json:"wincase" yaml:"wincase"`
	Odds     betting.Odds    `json:"odds" yaml:"odds"`
	Stake    betting.Asset   `json:"stake" yaml:"stake" validate:"gt=0"`
	Live     bool            `json:"live" yaml:"live"`
}

// Kind returns the pending bet kind the request asks for
func (r *PostBetRequest) Kind() models.PendingBetKind {
	if r.Live {
		return models.PendingBetLive
	}
	return models.PendingBetNonLive
}

// CancelPendingBetsRequest represents the request to withdraw pending bets
type CancelPendingBetsRequest struct {
	Better   string      `json:"better" yaml:"better" validate:"required"`
	BetUUIDs []uuid.UUID `json:"bet_uuids" yaml:"bet_uuids" validate:"required,min=1,unique"`
}
