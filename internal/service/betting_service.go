package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/repository"
	"github.com/cypherlabdev/betting-node/pkg/betting"
	"github.com/cypherlabdev/betting-node/pkg/matchingengine"
)

// MatchedBetRefunder returns the stakes of matched bets to their owners
type MatchedBetRefunder interface {
	RefundMatchedBets(bets []*models.MatchedBet) error
}

// BettingService owns bet creation and every cancellation path. A
// cancellation only ever returns a stake to the better who put it up.
type BettingService struct {
	store    repository.Store
	refunder MatchedBetRefunder
	sink     matchingengine.EventSink
	logger   zerolog.Logger
}

// NewBettingService creates a new betting service instance
func NewBettingService(
	store repository.Store,
	refunder MatchedBetRefunder,
	sink matchingengine.EventSink,
	logger zerolog.Logger,
) *BettingService {
	return &BettingService{
		store:    store,
		refunder: refunder,
		sink:     sink,
		logger:   logger.With().Str("component", "betting_service").Logger(),
	}
}

// IsBettingModerator reports whether account moderates games
func (s *BettingService) IsBettingModerator(account string) bool {
	return s.store.BettingProperty().Moderator == account
}

func (s *BettingService) checkModerator(account string) error {
	if !s.IsBettingModerator(account) {
		return fmt.Errorf("%w: %s", models.ErrNotModerator, account)
	}
	return nil
}

// CreatePendingBet takes the stake from the better and puts the bet into the book
func (s *BettingService) CreatePendingBet(gameUUID uuid.UUID, data models.BetData) (*models.PendingBet, error) {
	if err := s.store.Debit(data.Better, data.Stake); err != nil {
		return nil, fmt.Errorf("take stake: %w", err)
	}
	s.store.MarkUUIDUsed(data.UUID)

	bet := &models.PendingBet{
		GameUUID: gameUUID,
		Market:   betting.CreateMarket(data.Wincase),
		Data:     data,
	}
	if err := s.store.CreatePendingBet(bet); err != nil {
		return nil, fmt.Errorf("create pending bet: %w", err)
	}

	stats := s.store.BettingStats()
	stats.AddPending(data.Stake)
	s.store.SetBettingStats(stats)

	return bet, nil
}

// CancelPendingBets refunds every pending bet of a game
func (s *BettingService) CancelPendingBets(gameUUID uuid.UUID) error {
	return s.CancelPendingBetList(s.store.ListPendingBets(gameUUID))
}

// CancelPendingBetsByKind refunds the pending bets of a game of one kind
func (s *BettingService) CancelPendingBetsByKind(gameUUID uuid.UUID, kind models.PendingBetKind) error {
	return s.CancelPendingBetList(s.store.ListPendingBetsByKind(gameUUID, kind))
}

// CancelPendingBetList refunds the remaining stake of each bet and removes it
func (s *BettingService) CancelPendingBetList(bets []*models.PendingBet) error {
	if len(bets) == 0 {
		return nil
	}

	stats := s.store.BettingStats()
	for _, bet := range bets {
		if err := s.store.Credit(bet.Data.Better, bet.Data.Stake); err != nil {
			return fmt.Errorf("refund pending bet %s: %w", bet.Data.UUID, err)
		}
		if err := stats.SubPending(bet.Data.Stake); err != nil {
			return err
		}
		s.sink.Emit(models.BetCancelledEvent{
			GameUUID: bet.GameUUID,
			BetUUID:  bet.Data.UUID,
			Better:   bet.Data.Better,
			Stake:    bet.Data.Stake,
			Kind:     models.CancelPending,
		})
		if err := s.store.RemovePendingBet(bet.ID); err != nil {
			return fmt.Errorf("remove cancelled pending bet: %w", err)
		}
	}
	s.store.SetBettingStats(stats)

	return nil
}

// CancelMatchedBets refunds both legs of every matched bet of a game
func (s *BettingService) CancelMatchedBets(gameUUID uuid.UUID) error {
	return s.CancelMatchedBetList(s.store.ListMatchedBets(gameUUID))
}

// CancelMatchedBetList refunds the given matched bets as a push
func (s *BettingService) CancelMatchedBetList(bets []*models.MatchedBet) error {
	if len(bets) == 0 {
		return nil
	}
	return s.refunder.RefundMatchedBets(bets)
}

// CancelBets refunds every bet of a game
func (s *BettingService) CancelBets(gameUUID uuid.UUID) error {
	if err := s.CancelPendingBets(gameUUID); err != nil {
		return err
	}
	return s.CancelMatchedBets(gameUUID)
}

// CancelBetsByMarkets refunds every bet of a game placed on one of markets
func (s *BettingService) CancelBetsByMarkets(gameUUID uuid.UUID, markets []betting.Market) error {
	for _, market := range markets {
		if err := s.CancelPendingBetList(s.store.ListPendingBetsByMarket(gameUUID, market)); err != nil {
			return err
		}
	}
	for _, market := range markets {
		if err := s.CancelMatchedBetList(s.store.ListMatchedBetsByMarket(gameUUID, market)); err != nil {
			return err
		}
	}
	return nil
}

// CancelBetsCreatedFrom unwinds what happened in a game since from. Pending
// bets created since then are refunded. Matched bets made since then are
// dissolved: a leg created since then is refunded, an older leg goes back
// into the book as it was before the match.
func (s *BettingService) CancelBetsCreatedFrom(gameUUID uuid.UUID, from time.Time) error {
	if err := s.CancelPendingBetList(s.store.ListPendingBetsCreatedFrom(gameUUID, from)); err != nil {
		return err
	}

	matched := s.store.ListMatchedBetsCreatedFrom(gameUUID, from)
	if len(matched) == 0 {
		return nil
	}

	for _, bet := range matched {
		for _, leg := range []models.BetData{bet.Bet1, bet.Bet2} {
			if leg.Created.Before(from) {
				if err := s.restorePendingBet(gameUUID, leg); err != nil {
					return err
				}
			}
		}
	}

	return s.refundLegsCreatedFrom(matched, from)
}

// refundLegsCreatedFrom refunds the legs created since from and removes the
// matched bets. Older legs were already moved back into the book.
func (s *BettingService) refundLegsCreatedFrom(bets []*models.MatchedBet, from time.Time) error {
	stats := s.store.BettingStats()
	for _, bet := range bets {
		for _, leg := range []models.BetData{bet.Bet1, bet.Bet2} {
			if leg.Created.Before(from) {
				continue
			}
			if err := s.store.Credit(leg.Better, leg.Stake); err != nil {
				return fmt.Errorf("refund matched leg %s: %w", leg.UUID, err)
			}
			if err := stats.SubMatched(leg.Stake); err != nil {
				return err
			}
			s.sink.Emit(models.BetCancelledEvent{
				GameUUID: bet.GameUUID,
				BetUUID:  leg.UUID,
				Better:   leg.Better,
				Stake:    leg.Stake,
				Kind:     models.CancelMatched,
			})
		}
		if err := s.store.RemoveMatchedBet(bet.ID); err != nil {
			return fmt.Errorf("remove unwound matched bet: %w", err)
		}
	}
	s.store.SetBettingStats(stats)
	return nil
}

// restorePendingBet moves a matched leg back into the book, growing the
// pending bet of the same uuid when it still exists
func (s *BettingService) restorePendingBet(gameUUID uuid.UUID, leg models.BetData) error {
	stats := s.store.BettingStats()
	if err := stats.SubMatched(leg.Stake); err != nil {
		return err
	}
	stats.AddPending(leg.Stake)

	existing, err := s.store.GetPendingBetByUUID(leg.UUID)
	switch {
	case err == nil:
		oldStake := existing.Data.Stake
		existing.Data.Stake += leg.Stake
		if err := s.store.UpdatePendingBet(existing); err != nil {
			return fmt.Errorf("grow pending bet %s: %w", leg.UUID, err)
		}
		s.sink.Emit(models.BetUpdatedEvent{
			GameUUID: gameUUID,
			BetUUID:  leg.UUID,
			Better:   leg.Better,
			OldStake: oldStake,
			NewStake: existing.Data.Stake,
		})
	case errors.Is(err, models.ErrPendingBetNotFound):
		bet := &models.PendingBet{
			GameUUID: gameUUID,
			Market:   betting.CreateMarket(leg.Wincase),
			Data:     leg,
		}
		if err := s.store.CreatePendingBet(bet); err != nil {
			return fmt.Errorf("restore pending bet %s: %w", leg.UUID, err)
		}
		s.sink.Emit(models.BetRestoredEvent{
			GameUUID: gameUUID,
			BetUUID:  leg.UUID,
			Better:   leg.Better,
			Stake:    leg.Stake,
		})
	default:
		return err
	}

	s.store.SetBettingStats(stats)
	return nil
}
