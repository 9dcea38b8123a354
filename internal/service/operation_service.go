package service

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/repository"
	"github.com/cypherlabdev/betting-node/pkg/betting"
	"github.com/cypherlabdev/betting-node/pkg/matchingengine"
)

// BetMatcher runs a freshly placed pending bet against the book
type BetMatcher interface {
	Match(incoming *models.PendingBet) ([]*models.MatchedBet, error)
}

// BetResolver settles the matched bets of a finished game
type BetResolver interface {
	ResolveMatchedBets(gameUUID uuid.UUID, results []betting.Wincase) error
}

// OperationServiceImpl implements the OperationService interface
type OperationServiceImpl struct {
	store     repository.Store
	betting   *BettingService
	matcher   BetMatcher
	resolver  BetResolver
	sink      matchingengine.EventSink
	logger    zerolog.Logger
	validator *validator.Validate
}

// NewOperationService creates a new operation service instance
func NewOperationService(
	store repository.Store,
	bettingService *BettingService,
	matcher BetMatcher,
	resolver BetResolver,
	sink matchingengine.EventSink,
	logger zerolog.Logger,
) OperationService {
	return &OperationServiceImpl{
		store:     store,
		betting:   bettingService,
		matcher:   matcher,
		resolver:  resolver,
		sink:      sink,
		logger:    logger.With().Str("component", "operation_service").Logger(),
		validator: validator.New(),
	}
}

// changeStatus reports a game lifecycle transition. The caller stores the game.
func (s *OperationServiceImpl) changeStatus(game *models.Game, to models.GameStatus) {
	from := game.Status
	if to != models.GameStatusCancelled {
		game.Status = to
	}

	s.sink.Emit(models.GameStatusChangedEvent{
		GameUUID:  game.UUID,
		OldStatus: from,
		NewStatus: to,
	})

	s.logger.Info().
		Str("game_uuid", game.UUID.String()).
		Str("old_status", string(from)).
		Str("new_status", string(to)).
		Msg("game status changed")
}
