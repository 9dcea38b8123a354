package service

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// CreateGame opens a new game for betting
func (s *OperationServiceImpl) CreateGame(now time.Time, req *CreateGameRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := s.betting.checkModerator(req.Moderator); err != nil {
		return err
	}
	if s.store.IsUUIDUsed(req.UUID) {
		return fmt.Errorf("%w: game %s", models.ErrUUIDAlreadyUsed, req.UUID)
	}
	if !req.StartTime.After(now) {
		return fmt.Errorf("%w: %s is not after head block time %s",
			models.ErrInvalidStartTime, req.StartTime.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	if err := betting.ValidateGameMarkets(req.Type, req.Markets); err != nil {
		return err
	}

	game := &models.Game{
		UUID:            req.UUID,
		Name:            req.Name,
		Type:            req.Type,
		Status:          models.GameStatusCreated,
		Created:         now,
		StartTime:       req.StartTime,
		LastUpdate:      now,
		AutoResolveTime: req.StartTime.Add(req.AutoResolveDelay),
		Markets:         betting.SortMarkets(slices.Clone(req.Markets)),
	}
	s.store.MarkUUIDUsed(req.UUID)
	if err := s.store.CreateGame(game); err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	s.logger.Info().
		Str("game_uuid", game.UUID.String()).
		Int64("game_id", game.ID).
		Str("type", string(game.Type)).
		Int("markets", len(game.Markets)).
		Time("start_time", game.StartTime).
		Msg("game created")

	return nil
}

// CancelGame refunds every bet of a game and removes it
func (s *OperationServiceImpl) CancelGame(now time.Time, req *CancelGameRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	game, err := s.moderatedGame(req.Moderator, req.GameUUID)
	if err != nil {
		return err
	}

	if err := s.betting.CancelBets(game.UUID); err != nil {
		return err
	}
	if err := s.store.RemoveGame(game.UUID); err != nil {
		return fmt.Errorf("failed to remove game: %w", err)
	}
	s.changeStatus(game, models.GameStatusCancelled)

	return nil
}

// UpdateGameMarkets replaces the market list of a game. Bets on the markets
// that go away are refunded; a started game may only gain markets.
func (s *OperationServiceImpl) UpdateGameMarkets(now time.Time, req *UpdateGameMarketsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	game, err := s.moderatedGame(req.Moderator, req.GameUUID)
	if err != nil {
		return err
	}
	if err := betting.ValidateGameMarkets(game.Type, req.Markets); err != nil {
		return err
	}

	markets := betting.SortMarkets(slices.Clone(req.Markets))
	removed := removedMarkets(game.Markets, markets)

	if len(removed) > 0 {
		if game.Status == models.GameStatusStarted {
			return fmt.Errorf("%w: game %s would lose %d markets", models.ErrMarketRemoval, game.UUID, len(removed))
		}
		if err := s.betting.CancelBetsByMarkets(game.UUID, removed); err != nil {
			return err
		}
	}

	game.Markets = markets
	game.LastUpdate = now
	if err := s.store.UpdateGame(game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	s.logger.Info().
		Str("game_uuid", game.UUID.String()).
		Int("markets", len(markets)).
		Int("removed_markets", len(removed)).
		Msg("game markets updated")

	return nil
}

// UpdateGameStartTime moves the start of a game. A started game goes back to
// created and everything that happened in it since the old start is unwound.
func (s *OperationServiceImpl) UpdateGameStartTime(now time.Time, req *UpdateGameStartTimeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	game, err := s.moderatedGame(req.Moderator, req.GameUUID)
	if err != nil {
		return err
	}
	if !req.StartTime.After(now) {
		return fmt.Errorf("%w: %s is not after head block time %s",
			models.ErrInvalidStartTime, req.StartTime.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	oldStart := game.StartTime
	if game.Status == models.GameStatusStarted {
		if err := s.betting.CancelBetsCreatedFrom(game.UUID, oldStart); err != nil {
			return err
		}
		s.changeStatus(game, models.GameStatusCreated)
	}

	game.StartTime = req.StartTime
	game.AutoResolveTime = game.AutoResolveTime.Add(req.StartTime.Sub(oldStart))
	game.LastUpdate = now
	if err := s.store.UpdateGame(game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	s.logger.Info().
		Str("game_uuid", game.UUID.String()).
		Time("old_start_time", oldStart).
		Time("new_start_time", game.StartTime).
		Msg("game start time updated")

	return nil
}

// PostGameResults finishes a started game. Pending bets are refunded at once;
// matched bets wait for the resolve delay.
func (s *OperationServiceImpl) PostGameResults(now time.Time, req *PostGameResultsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	game, err := s.moderatedGame(req.Moderator, req.GameUUID)
	if err != nil {
		return err
	}
	if game.Status != models.GameStatusStarted {
		return fmt.Errorf("%w: game %s is %s", models.ErrInvalidStatus, game.UUID, game.Status)
	}

	results := betting.SortWincases(slices.Clone(req.Wincases))
	if err := validateResults(game, results); err != nil {
		return err
	}

	if err := s.betting.CancelPendingBets(game.UUID); err != nil {
		return err
	}

	game.Results = results
	game.BetsResolveTime = now.Add(s.store.BettingProperty().ResolveDelay)
	game.LastUpdate = now
	s.changeStatus(game, models.GameStatusFinished)
	if err := s.store.UpdateGame(game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	return nil
}

// moderatedGame checks the moderator and loads a game that is not finished
func (s *OperationServiceImpl) moderatedGame(moderator string, gameUUID uuid.UUID) (*models.Game, error) {
	if err := s.betting.checkModerator(moderator); err != nil {
		return nil, err
	}

	game, err := s.store.GetGame(gameUUID)
	if err != nil {
		return nil, err
	}
	if game.Status == models.GameStatusFinished {
		return nil, fmt.Errorf("%w: %s", models.ErrGameFinished, game.UUID)
	}
	return game, nil
}

// removedMarkets returns the markets of old whose wincases are missing from
// current, in market order
func removedMarkets(old, current []betting.Market) []betting.Market {
	kept := make(map[betting.Wincase]bool)
	for _, w := range betting.ExpandWincases(current) {
		kept[w] = true
	}

	var removed []betting.Market
	for _, w := range betting.ExpandWincases(old) {
		if !kept[w] {
			removed = append(removed, betting.CreateMarket(w))
		}
	}
	return betting.SortMarkets(removed)
}

// validateResults checks a sorted result set against the markets of a game
func validateResults(game *models.Game, results []betting.Wincase) error {
	families := make(map[betting.MarketFamily]bool, len(game.Markets))
	for _, m := range game.Markets {
		families[m.Kind.Family()] = true
	}

	posted := make(map[betting.Wincase]bool, len(results))
	for _, w := range results {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("%w: %w", models.ErrInvalidResults, err)
		}
		if !families[w.Market().Kind.Family()] {
			return fmt.Errorf("%w: %s is not offered by game %s", models.ErrInvalidResults, w, game.UUID)
		}
		posted[w] = true
	}

	for _, w := range results {
		if posted[w.Opposite()] {
			return fmt.Errorf("%w: both %s and %s won", models.ErrInvalidResults, w, w.Opposite())
		}
	}

	for _, m := range game.Markets {
		if m.HasThirdState() {
			continue
		}
		yes, no := betting.CreateWincases(m)
		if !posted[yes] && !posted[no] {
			return fmt.Errorf("%w: market %s has no result", models.ErrInvalidResults, m)
		}
	}

	return nil
}
