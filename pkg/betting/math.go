package betting

import "fmt"

// MatchedStake is the part of each of two opposite stakes that gets locked
// into a matched bet
type MatchedStake struct {
	Bet1 Asset
	Bet2 Asset
}

// CalculateMatchedStake splits two opposite stakes at mirrored odds.
//
// Each side can only be matched up to what the other side would win from
// it, so bet1 gets min(stake1, gain(stake2)) and bet2 gets
// min(stake2, gain(stake1)). Rounding leftovers stay on the pending bets.
func CalculateMatchedStake(stake1, stake2 Asset, odds1, odds2 Odds) (MatchedStake, error) {
	if stake1 < 0 || stake2 < 0 {
		return MatchedStake{}, fmt.Errorf("%w: %d, %d", ErrInvalidStake, stake1, stake2)
	}
	if odds1.IsZero() || odds2.IsZero() || odds1.Inverted() != odds2 {
		return MatchedStake{}, fmt.Errorf("%w: %s vs %s", ErrOddsMismatch, odds1, odds2)
	}

	gain1, err := CalculateGain(stake1, odds1)
	if err != nil {
		return MatchedStake{}, fmt.Errorf("bet1 gain: %w", err)
	}
	gain2, err := CalculateGain(stake2, odds2)
	if err != nil {
		return MatchedStake{}, fmt.Errorf("bet2 gain: %w", err)
	}

	return MatchedStake{
		Bet1: min(stake1, gain2),
		Bet2: min(stake2, gain1),
	}, nil
}

// IsMatchable reports whether a stake can still win anything at its odds.
// A stake that rounds to no profit can never be matched again.
func IsMatchable(stake Asset, o Odds) bool {
	gain, err := CalculateGain(stake, o)
	if err != nil {
		// the stake is too large to scale, there is plenty of gain
		return stake > 0 && !o.IsZero()
	}
	return gain > 0
}
