package matchingengine

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/repository"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// Ledger is the part of the account ledger the engines pay out through
type Ledger interface {
	Credit(account string, amount betting.Asset) error
}

// Resolver settles the matched bets of a finished game
type Resolver struct {
	matched repository.MatchedBetRepository
	props   repository.PropertyRepository
	ledger  Ledger
	sink    EventSink
	logger  zerolog.Logger
}

// NewResolver creates a resolver paying out through ledger
func NewResolver(
	matched repository.MatchedBetRepository,
	props repository.PropertyRepository,
	ledger Ledger,
	sink EventSink,
	logger zerolog.Logger,
) *Resolver {
	return &Resolver{
		matched: matched,
		props:   props,
		ledger:  ledger,
		sink:    sink,
		logger:  logger.With().Str("component", "resolver").Logger(),
	}
}

type betIncome struct {
	better string
	amount betting.Asset
	kind   models.ResolveKind
}

// ResolveMatchedBets pays out every matched bet of the game against its
// results and removes them. A winning leg takes the whole pool of its
// matched bet; when neither leg won both stakes go back to their owners.
// Income is summed per original bet, so a bet matched in several parts is
// credited and reported once.
func (r *Resolver) ResolveMatchedBets(gameUUID uuid.UUID, results []betting.Wincase) error {
	bets := r.matched.ListMatchedBets(gameUUID)
	if len(bets) == 0 {
		return nil
	}

	won := make(map[betting.Wincase]bool, len(results))
	for _, w := range results {
		won[w] = true
	}

	incomes := make(map[uuid.UUID]*betIncome)
	add := func(leg models.BetData, amount betting.Asset, kind models.ResolveKind) {
		income, ok := incomes[leg.UUID]
		if !ok {
			income = &betIncome{better: leg.Better, kind: kind}
			incomes[leg.UUID] = income
		}
		income.amount += amount
		if kind == models.ResolveWin {
			income.kind = kind
		}
	}

	for _, bet := range bets {
		if !betting.MatchWincases(bet.Bet1.Wincase, bet.Bet2.Wincase) {
			return fmt.Errorf("%w: matched bet %d", models.ErrInconsistentMatchedBet, bet.ID)
		}

		bet1Won, bet2Won := won[bet.Bet1.Wincase], won[bet.Bet2.Wincase]
		pool := bet.Bet1.Stake + bet.Bet2.Stake

		switch {
		case bet1Won && bet2Won:
			return fmt.Errorf("%w: matched bet %d", models.ErrInconsistentResults, bet.ID)
		case bet1Won:
			add(bet.Bet1, pool, models.ResolveWin)
		case bet2Won:
			add(bet.Bet2, pool, models.ResolveWin)
		default:
			add(bet.Bet1, bet.Bet1.Stake, models.ResolveDraw)
			add(bet.Bet2, bet.Bet2.Stake, models.ResolveDraw)
		}
	}

	stats := r.props.BettingStats()
	betUUIDs := slices.SortedFunc(maps.Keys(incomes), func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	for _, betUUID := range betUUIDs {
		income := incomes[betUUID]
		if income.amount <= 0 {
			continue
		}

		r.sink.Emit(models.BetResolvedEvent{
			GameUUID: gameUUID,
			BetUUID:  betUUID,
			Better:   income.better,
			Income:   income.amount,
			Kind:     income.kind,
		})
		if err := r.ledger.Credit(income.better, income.amount); err != nil {
			return fmt.Errorf("credit %s: %w", income.better, err)
		}
		if err := stats.SubMatched(income.amount); err != nil {
			return err
		}
	}
	r.props.SetBettingStats(stats)

	for _, bet := range bets {
		if err := r.matched.RemoveMatchedBet(bet.ID); err != nil {
			return fmt.Errorf("remove resolved matched bet: %w", err)
		}
	}

	r.logger.Debug().
		Str("game_uuid", gameUUID.String()).
		Int("matched_bets", len(bets)).
		Int("resolved_bets", len(betUUIDs)).
		Msg("matched bets resolved")

	return nil
}

// RefundMatchedBets settles matched bets as a push regardless of any result:
// each leg gets its own matched stake back and the bets are removed. This is
// the path cancellations take, so value never moves between betters.
func (r *Resolver) RefundMatchedBets(bets []*models.MatchedBet) error {
	if len(bets) == 0 {
		return nil
	}

	stats := r.props.BettingStats()
	for _, bet := range bets {
		if !betting.MatchWincases(bet.Bet1.Wincase, bet.Bet2.Wincase) {
			return fmt.Errorf("%w: matched bet %d", models.ErrInconsistentMatchedBet, bet.ID)
		}

		for _, leg := range []models.BetData{bet.Bet1, bet.Bet2} {
			if err := r.ledger.Credit(leg.Better, leg.Stake); err != nil {
				return fmt.Errorf("refund %s: %w", leg.Better, err)
			}
			if err := stats.SubMatched(leg.Stake); err != nil {
				return err
			}
			r.sink.Emit(models.BetCancelledEvent{
				GameUUID: bet.GameUUID,
				BetUUID:  leg.UUID,
				Better:   leg.Better,
				Stake:    leg.Stake,
				Kind:     models.CancelMatched,
			})
		}

		if err := r.matched.RemoveMatchedBet(bet.ID); err != nil {
			return fmt.Errorf("remove refunded matched bet: %w", err)
		}
	}
	r.props.SetBettingStats(stats)

	r.logger.Debug().
		Int("matched_bets", len(bets)).
		Msg("matched bets refunded")

	return nil
}
