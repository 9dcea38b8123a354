package matchingengine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/repository"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// EventSink receives the events produced by the engines
type EventSink interface {
	Emit(event models.Event)
}

// BetCanceller refunds pending bets that can no longer be matched
type BetCanceller interface {
	CancelPendingBetList(bets []*models.PendingBet) error
}

// Matcher pairs an incoming pending bet with the opposite side of the book.
//
// The book of a game is walked in ascending pending bet id. There is no
// price or time priority: every node has to produce the same matched bets
// from the same history.
type Matcher struct {
	pending   repository.PendingBetRepository
	matched   repository.MatchedBetRepository
	props     repository.PropertyRepository
	canceller BetCanceller
	sink      EventSink
	logger    zerolog.Logger
}

// NewMatcher creates a matcher over the given book
func NewMatcher(
	pending repository.PendingBetRepository,
	matched repository.MatchedBetRepository,
	props repository.PropertyRepository,
	canceller BetCanceller,
	sink EventSink,
	logger zerolog.Logger,
) *Matcher {
	return &Matcher{
		pending:   pending,
		matched:   matched,
		props:     props,
		canceller: canceller,
		sink:      sink,
		logger:    logger.With().Str("component", "matcher").Logger(),
	}
}

// Match runs incoming, which must already be stored in the book, against
// the other pending bets of its game. Bets left with a stake that cannot
// win anything at their own odds are cancelled afterwards.
func (m *Matcher) Match(incoming *models.PendingBet) ([]*models.MatchedBet, error) {
	stats := m.props.BettingStats()

	var created []*models.MatchedBet
	var retired []*models.PendingBet

	if betting.IsMatchable(incoming.Data.Stake, incoming.Data.Odds) {
		for _, existing := range m.pending.ListPendingBets(incoming.GameUUID) {
			if existing.ID == incoming.ID || !isBetsMatched(existing, incoming) {
				continue
			}

			matchedBet, err := m.matchPair(existing, incoming, &stats)
			if err != nil {
				return nil, err
			}
			if matchedBet != nil {
				created = append(created, matchedBet)
			}

			if existing.Data.Stake > 0 && !betting.IsMatchable(existing.Data.Stake, existing.Data.Odds) {
				retired = append(retired, existing)
			}
			if !betting.IsMatchable(incoming.Data.Stake, incoming.Data.Odds) {
				break
			}
		}
	}

	if incoming.Data.Stake == 0 {
		if err := m.pending.RemovePendingBet(incoming.ID); err != nil {
			return nil, fmt.Errorf("remove consumed pending bet: %w", err)
		}
	} else {
		if err := m.pending.UpdatePendingBet(incoming); err != nil {
			return nil, fmt.Errorf("update incoming pending bet: %w", err)
		}
		if !betting.IsMatchable(incoming.Data.Stake, incoming.Data.Odds) {
			retired = append(retired, incoming)
		}
	}

	m.props.SetBettingStats(stats)

	if len(retired) > 0 {
		m.logger.Debug().
			Str("game_uuid", incoming.GameUUID.String()).
			Int("count", len(retired)).
			Msg("cancelling unmatchable pending bets")
		if err := m.canceller.CancelPendingBetList(retired); err != nil {
			return nil, fmt.Errorf("cancel unmatchable pending bets: %w", err)
		}
	}

	return created, nil
}

// matchPair locks what it can of two matchable bets into a matched bet.
// It returns nil when rounding leaves nothing to lock.
func (m *Matcher) matchPair(existing, incoming *models.PendingBet, stats *models.BettingStats) (*models.MatchedBet, error) {
	stake, err := betting.CalculateMatchedStake(
		existing.Data.Stake, incoming.Data.Stake,
		existing.Data.Odds, incoming.Data.Odds,
	)
	if err != nil {
		return nil, fmt.Errorf("calculate matched stake of %s and %s: %w", existing.Data.UUID, incoming.Data.UUID, err)
	}
	if stake.Bet1 <= 0 || stake.Bet2 <= 0 {
		return nil, nil
	}

	matchedBet := &models.MatchedBet{
		GameUUID: incoming.GameUUID,
		Market:   incoming.Market,
		Created:  incoming.Data.Created,
		Bet1:     existing.Data,
		Bet2:     incoming.Data,
	}
	matchedBet.Bet1.Stake = stake.Bet1
	matchedBet.Bet2.Stake = stake.Bet2
	if err := m.matched.CreateMatchedBet(matchedBet); err != nil {
		return nil, fmt.Errorf("create matched bet: %w", err)
	}

	existing.Data.Stake -= stake.Bet1
	incoming.Data.Stake -= stake.Bet2

	if existing.Data.Stake == 0 {
		err = m.pending.RemovePendingBet(existing.ID)
	} else {
		err = m.pending.UpdatePendingBet(existing)
	}
	if err != nil {
		return nil, fmt.Errorf("update matched pending bet %s: %w", existing.Data.UUID, err)
	}

	pool := stake.Bet1 + stake.Bet2
	if err := stats.SubPending(pool); err != nil {
		return nil, err
	}
	stats.AddMatched(pool)

	m.sink.Emit(models.BetMatchedEvent{
		GameUUID:     matchedBet.GameUUID,
		MatchedBetID: matchedBet.ID,
		Bet1UUID:     matchedBet.Bet1.UUID,
		Bet1Better:   matchedBet.Bet1.Better,
		Bet1Stake:    stake.Bet1,
		Bet2UUID:     matchedBet.Bet2.UUID,
		Bet2Better:   matchedBet.Bet2.Better,
		Bet2Stake:    stake.Bet2,
	})

	m.logger.Debug().
		Int64("matched_bet_id", matchedBet.ID).
		Str("bet1_uuid", matchedBet.Bet1.UUID.String()).
		Str("bet2_uuid", matchedBet.Bet2.UUID.String()).
		Str("bet1_stake", stake.Bet1.String()).
		Str("bet2_stake", stake.Bet2.String()).
		Msg("bets matched")

	return matchedBet, nil
}

// isBetsMatched reports whether two bets take the two sides of one market
// at mirrored odds on behalf of different betters
func isBetsMatched(a, b *models.PendingBet) bool {
	return a.GameUUID == b.GameUUID &&
		a.Data.Better != b.Data.Better &&
		betting.MatchWincases(a.Data.Wincase, b.Data.Wincase) &&
		a.Data.Odds.Inverted() == b.Data.Odds
}
