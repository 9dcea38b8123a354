package models

import (
	"errors"
	"fmt"
)

// Repository errors
var (
	ErrGameNotFound       = errors.New("game not found")
	ErrPendingBetNotFound = errors.New("pending bet not found")
	ErrMatchedBetNotFound = errors.New("matched bet not found")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrBlockHashMismatch  = errors.New("block already applied with a different hash")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrBalanceOverflow    = errors.New("balance overflow")
	ErrUUIDAlreadyUsed    = errors.New("uuid already used")
	ErrNoStoreSession     = errors.New("no open store session")
)

// Operation errors. These reject an operation before it mutates anything.
var (
	ErrNotModerator         = errors.New("account is not the betting moderator")
	ErrInvalidStatus        = errors.New("invalid game status for operation")
	ErrGameFinished         = errors.New("game is finished")
	ErrInvalidStartTime     = errors.New("invalid game start time")
	ErrMarketNotActive      = errors.New("market is not active for game")
	ErrMarketRemoval        = errors.New("markets of a started game cannot be removed")
	ErrNonLiveBetAfterStart = errors.New("non-live bet on a started game")
	ErrOddsOutOfRange       = errors.New("odds out of allowed range")
	ErrStakeTooLow          = errors.New("stake is below minimum")
	ErrNotBetOwner          = errors.New("bet belongs to another better")
	ErrInvalidResults       = errors.New("invalid game results")
	ErrInvalidBlock         = errors.New("invalid block")
	ErrUnknownOperation     = errors.New("unknown operation")
)

// ErrInvariantViolation marks corrupted state found mid-algorithm. It is never
// an operation rejection: the whole block has to be abandoned.
var ErrInvariantViolation = errors.New("betting invariant violated")

var (
	ErrInconsistentResults    = fmt.Errorf("%w: both legs of a matched bet won", ErrInvariantViolation)
	ErrInconsistentMatchedBet = fmt.Errorf("%w: matched bet legs are not opposite", ErrInvariantViolation)
	ErrNegativeVolume         = fmt.Errorf("%w: betting volume below zero", ErrInvariantViolation)
)
