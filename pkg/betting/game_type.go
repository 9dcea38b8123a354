package betting

import (
	"fmt"
	"strings"
)

// GameType is the sport a game belongs to
type GameType string

const (
	GameTypeSoccer GameType = "soccer"
	GameTypeHockey GameType = "hockey"
)

var gameFamilies = map[GameType]map[MarketFamily]bool{
	GameTypeSoccer: {
		FamilyResult:       true,
		FamilyRound:        true,
		FamilyHandicap:     true,
		FamilyCorrectScore: true,
		FamilyGoal:         true,
		FamilyTotal:        true,
	},
	GameTypeHockey: {
		FamilyResult:       true,
		FamilyRound:        true,
		FamilyHandicap:     true,
		FamilyCorrectScore: true,
		FamilyGoal:         true,
		FamilyTotal:        true,
	},
}

func (t GameType) Valid() bool {
	_, ok := gameFamilies[t]
	return ok
}

// ValidateGameMarkets checks every market and that the game type offers
// its family
func ValidateGameMarkets(t GameType, markets []Market) error {
	families, ok := gameFamilies[t]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidGameType, t)
	}

	var unsupported []string
	for _, m := range markets {
		if err := m.Validate(); err != nil {
			return err
		}
		if !families[m.Kind.Family()] {
			unsupported = append(unsupported, m.String())
		}
	}
	if len(unsupported) > 0 {
		return fmt.Errorf("%w: markets [%s] cannot be used with %s games",
			ErrInvalidMarket, strings.Join(unsupported, ", "), t)
	}
	return nil
}
