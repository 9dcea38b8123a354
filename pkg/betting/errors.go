package betting

import "errors"

// Betting protocol errors
var (
	ErrInvalidOdds     = errors.New("invalid odds")
	ErrOddsOverflow    = errors.New("odds overflow")
	ErrOddsMismatch    = errors.New("odds of matched bets are not inverted to each other")
	ErrStakeOverflow   = errors.New("stake overflow")
	ErrInvalidStake    = errors.New("invalid stake")
	ErrInvalidMarket   = errors.New("invalid market")
	ErrInvalidWincase  = errors.New("invalid wincase")
	ErrInvalidGameType = errors.New("invalid game type")
)
