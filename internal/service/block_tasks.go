package service

import (
	"fmt"
	"time"

	"github.com/cypherlabdev/betting-node/internal/models"
)

// RunBlockTasks performs the transitions that are due at the block time, in
// a fixed order: games startup, bets resolving, auto resolving
func (s *OperationServiceImpl) RunBlockTasks(now time.Time) error {
	if err := s.startGames(now); err != nil {
		return fmt.Errorf("games startup: %w", err)
	}
	if err := s.resolveGames(now); err != nil {
		return fmt.Errorf("bets resolving: %w", err)
	}
	if err := s.autoResolveGames(now); err != nil {
		return fmt.Errorf("auto resolving: %w", err)
	}
	return nil
}

// startGames moves created games whose start time has come to started.
// Non-live bets do not survive the start.
func (s *OperationServiceImpl) startGames(now time.Time) error {
	for _, game := range s.store.ListGames() {
		if game.Status != models.GameStatusCreated || game.StartTime.After(now) {
			continue
		}

		if err := s.betting.CancelPendingBetsByKind(game.UUID, models.PendingBetNonLive); err != nil {
			return err
		}
		s.changeStatus(game, models.GameStatusStarted)
		game.LastUpdate = now
		if err := s.store.UpdateGame(game); err != nil {
			return fmt.Errorf("failed to start game %s: %w", game.UUID, err)
		}
	}
	return nil
}

// resolveGames settles finished games once their resolve delay has passed
func (s *OperationServiceImpl) resolveGames(now time.Time) error {
	for _, game := range s.store.ListGames() {
		if game.Status != models.GameStatusFinished || game.BetsResolveTime.After(now) {
			continue
		}

		settled := len(s.store.ListMatchedBets(game.UUID))
		if err := s.resolver.ResolveMatchedBets(game.UUID, game.Results); err != nil {
			return err
		}
		if err := s.store.RemoveGame(game.UUID); err != nil {
			return fmt.Errorf("failed to remove resolved game %s: %w", game.UUID, err)
		}

		s.logger.Info().
			Str("game_uuid", game.UUID.String()).
			Int("matched_bets", settled).
			Msg("game resolved")
	}
	return nil
}

// autoResolveGames cancels games nobody posted results for in time
func (s *OperationServiceImpl) autoResolveGames(now time.Time) error {
	for _, game := range s.store.ListGames() {
		if game.Status == models.GameStatusFinished || game.AutoResolveTime.After(now) {
			continue
		}

		if err := s.betting.CancelBets(game.UUID); err != nil {
			return err
		}
		if err := s.store.RemoveGame(game.UUID); err != nil {
			return fmt.Errorf("failed to remove expired game %s: %w", game.UUID, err)
		}
		s.changeStatus(game, models.GameStatusCancelled)
	}
	return nil
}
