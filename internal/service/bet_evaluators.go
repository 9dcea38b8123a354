package service

import (
	"fmt"
	"time"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// PostBet puts a bet into the book and matches it against the other side
func (s *OperationServiceImpl) PostBet(now time.Time, req *PostBetRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	game, err := s.store.GetGame(req.GameUUID)
	if err != nil {
		return err
	}
	if game.Status == models.GameStatusFinished {
		return fmt.Errorf("%w: %s", models.ErrGameFinished, game.UUID)
	}
	if !req.Live && game.Status == models.GameStatusStarted {
		return fmt.Errorf("%w: %s", models.ErrNonLiveBetAfterStart, game.UUID)
	}

	if err := req.Wincase.Validate(); err != nil {
		return err
	}
	market := betting.CreateMarket(req.Wincase)
	if !game.HasMarket(market) {
		return fmt.Errorf("%w: %s", models.ErrMarketNotActive, market)
	}

	if s.store.IsUUIDUsed(req.BetUUID) {
		return fmt.Errorf("%w: bet %s", models.ErrUUIDAlreadyUsed, req.BetUUID)
	}
	if req.Odds.IsZero() || req.Odds.Less(betting.MinOdds) || betting.MaxOdds.Less(req.Odds) {
		return fmt.Errorf("%w: %s not in [%s, %s]", models.ErrOddsOutOfRange, req.Odds, betting.MinOdds, betting.MaxOdds)
	}
	if minStake := s.store.BettingProperty().MinBetStake; req.Stake < minStake {
		return fmt.Errorf("%w: %s < %s", models.ErrStakeTooLow, req.Stake, minStake)
	}
	if balance := s.store.Balance(req.Better); balance < req.Stake {
		return fmt.Errorf("%w: %s has %s, needs %s", models.ErrInsufficientFunds, req.Better, balance, req.Stake)
	}

	bet, err := s.betting.CreatePendingBet(game.UUID, models.BetData{
		UUID:    req.BetUUID,
		Better:  req.Better,
		Wincase: req.Wincase,
		Odds:    req.Odds,
		Stake:   req.Stake,
		Created: now,
		Kind:    req.Kind(),
	})
	if err != nil {
		return err
	}

	matched, err := s.matcher.Match(bet)
	if err != nil {
		return fmt.Errorf("failed to match bet %s: %w", bet.Data.UUID, err)
	}

	s.logger.Debug().
		Str("bet_uuid", req.BetUUID.String()).
		Str("game_uuid", game.UUID.String()).
		Str("better", req.Better).
		Str("wincase", req.Wincase.String()).
		Str("odds", req.Odds.String()).
		Str("stake", req.Stake.String()).
		Int("matched_bets", len(matched)).
		Msg("bet posted")

	return nil
}

// CancelPendingBets lets a better withdraw the unmatched part of own bets
func (s *OperationServiceImpl) CancelPendingBets(now time.Time, req *CancelPendingBetsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	bets := make([]*models.PendingBet, 0, len(req.BetUUIDs))
	for _, betUUID := range req.BetUUIDs {
		bet, err := s.store.GetPendingBetByUUID(betUUID)
		if err != nil {
			return fmt.Errorf("%w: %s", err, betUUID)
		}
		if bet.Data.Better != req.Better {
			return fmt.Errorf("%w: %s", models.ErrNotBetOwner, betUUID)
		}
		bets = append(bets, bet)
	}

	return s.betting.CancelPendingBetList(bets)
}
