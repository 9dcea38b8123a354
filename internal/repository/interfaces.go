package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// Every range query of the betting store returns objects in ascending primary
// key order, whatever order they were created or loaded in. Matching walks the
// book in that order, so it is part of the consensus rules.

// GameRepository defines data access for games
type GameRepository interface {
	// CreateGame stores a new game and assigns its sequential ID
	// Returns ErrUUIDAlreadyUsed if a game with the same uuid exists
	CreateGame(game *models.Game) error

	// UpdateGame replaces a stored game
	// Returns ErrGameNotFound if the game doesn't exist
	UpdateGame(game *models.Game) error

	// RemoveGame deletes a game
	// Returns ErrGameNotFound if the game doesn't exist
	RemoveGame(gameUUID uuid.UUID) error

	// GetGame retrieves a game by uuid
	// Returns ErrGameNotFound if the game doesn't exist
	GetGame(gameUUID uuid.UUID) (*models.Game, error)

	// ListGames returns all games
	ListGames() []*models.Game
}

// PendingBetRepository defines data access for the pending bet book
type PendingBetRepository interface {
	// CreatePendingBet stores a new pending bet and assigns its sequential ID
	CreatePendingBet(bet *models.PendingBet) error

	// UpdatePendingBet replaces a stored pending bet
	// Returns ErrPendingBetNotFound if the bet doesn't exist
	UpdatePendingBet(bet *models.PendingBet) error

	// RemovePendingBet deletes a pending bet
	// Returns ErrPendingBetNotFound if the bet doesn't exist
	RemovePendingBet(id int64) error

	// GetPendingBetByUUID retrieves a pending bet by the uuid of its wager
	// Returns ErrPendingBetNotFound if the bet doesn't exist
	GetPendingBetByUUID(betUUID uuid.UUID) (*models.PendingBet, error)

	ListPendingBets(gameUUID uuid.UUID) []*models.PendingBet
	ListPendingBetsByMarket(gameUUID uuid.UUID, market betting.Market) []*models.PendingBet
	ListPendingBetsByKind(gameUUID uuid.UUID, kind models.PendingBetKind) []*models.PendingBet
	ListPendingBetsCreatedFrom(gameUUID uuid.UUID, from time.Time) []*models.PendingBet
	ListPendingBetsByBetter(better string) []*models.PendingBet
}

// MatchedBetRepository defines data access for matched bets
type MatchedBetRepository interface {
	// CreateMatchedBet stores a new matched bet and assigns its sequential ID
	CreateMatchedBet(bet *models.MatchedBet) error

	// RemoveMatchedBet deletes a matched bet
	// Returns ErrMatchedBetNotFound if the bet doesn't exist
	RemoveMatchedBet(id int64) error

	ListMatchedBets(gameUUID uuid.UUID) []*models.MatchedBet
	ListMatchedBetsByMarket(gameUUID uuid.UUID, market betting.Market) []*models.MatchedBet
	ListMatchedBetsCreatedFrom(gameUUID uuid.UUID, from time.Time) []*models.MatchedBet
	ListMatchedBetsByBetUUID(gameUUID uuid.UUID, betUUID uuid.UUID) []*models.MatchedBet
}

// PropertyRepository holds the chain-wide betting configuration and statistics
type PropertyRepository interface {
	BettingProperty() models.BettingProperty
	SetBettingProperty(property models.BettingProperty)
	BettingStats() models.BettingStats
	SetBettingStats(stats models.BettingStats)
}

// AccountRepository is the account ledger
type AccountRepository interface {
	Balance(account string) betting.Asset

	// Credit adds amount to the account, creating it when needed
	// Returns ErrBalanceOverflow if the balance would not fit
	Credit(account string, amount betting.Asset) error

	// Debit takes amount from the account
	// Returns ErrInsufficientFunds if the balance is too low
	Debit(account string, amount betting.Asset) error
}

// UUIDHistory remembers every game and bet uuid ever used on chain
type UUIDHistory interface {
	IsUUIDUsed(id uuid.UUID) bool
	MarkUUIDUsed(id uuid.UUID)
}

// Store is the full betting state seen by operations
type Store interface {
	GameRepository
	PendingBetRepository
	MatchedBetRepository
	PropertyRepository
	AccountRepository
	UUIDHistory
}

// VersionedStore adds nested undo sessions and whole-state export
type VersionedStore interface {
	Store

	// StartSession opens a nested undo session
	StartSession()

	// Commit closes the innermost session, keeping its changes
	Commit() error

	// Undo closes the innermost session, reverting its changes
	Undo() error

	Export() *StoreState
	Load(state *StoreState) error
}

// DBTX is the part of a pgx pool or transaction the Postgres repositories use
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
