package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

func TestBettingService_IsBettingModerator(t *testing.T) {
	setup := setupTestService(t)

	assert.True(t, setup.betting.IsBettingModerator(moderator))
	assert.False(t, setup.betting.IsBettingModerator("alice"))
	assert.ErrorIs(t, setup.betting.checkModerator("alice"), models.ErrNotModerator)
}

func TestBettingService_CancelMatchedBets_NeverTransfers(t *testing.T) {
	setup := setupTestService(t)
	gameUUID := setup.createGame(t, betting.Total(1500))
	setup.postBet(t, headTime, gameUUID, "alice", over1500, "3/2", 100, false)
	setup.postBet(t, headTime, gameUUID, "bob", under1500, "3/1", 30, false)
	setup.postBet(t, headTime, gameUUID, "carol", under1500, "3/1", 10, false)
	matched := setup.store.ListMatchedBets(gameUUID)
	require.Len(t, matched, 2)

	require.NoError(t, setup.betting.CancelMatchedBets(gameUUID))

	assert.Empty(t, setup.store.ListMatchedBets(gameUUID))
	// alice keeps the unmatched rest of her bet in the book
	assert.Equal(t, initialBalance-20, setup.store.Balance("alice"))
	assert.Equal(t, initialBalance, setup.store.Balance("bob"))
	assert.Equal(t, initialBalance, setup.store.Balance("carol"))

	refunded := make(map[string]betting.Asset)
	for _, e := range setup.events.Events() {
		if cancelled, ok := e.(models.BetCancelledEvent); ok {
			assert.Equal(t, models.CancelMatched, cancelled.Kind)
			refunded[cancelled.Better] += cancelled.Stake
		}
	}
	assert.Equal(t, map[string]betting.Asset{"alice": 80, "bob": 30, "carol": 10}, refunded)
}

func TestBettingService_CancelPendingBetsByKind(t *testing.T) {
	setup := setupTestService(t)
	gameUUID := setup.createGame(t, betting.Total(1500))
	setup.postBet(t, headTime, gameUUID, "alice", over1500, "3/2", 100, false)
	live := setup.postBet(t, headTime, gameUUID, "bob", over1500, "3/2", 70, true)

	require.NoError(t, setup.betting.CancelPendingBetsByKind(gameUUID, models.PendingBetLive))

	pending := setup.store.ListPendingBets(gameUUID)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].Data.Better)
	assert.Equal(t, initialBalance, setup.store.Balance("bob"))
	_, err := setup.store.GetPendingBetByUUID(live)
	assert.ErrorIs(t, err, models.ErrPendingBetNotFound)
	assert.Equal(t, models.BettingStats{PendingBetsVolume: 100}, setup.store.BettingStats())
}

func TestBettingService_CancelBetsCreatedFrom_GrowsExistingPendingBet(t *testing.T) {
	setup := setupTestService(t)
	gameUUID := setup.createGame(t, betting.Total(1500))
	alice := setup.postBet(t, headTime, gameUUID, "alice", over1500, "3/2", 100, true)
	setup.startGames(t)
	setup.postBet(t, startTime.Add(time.Minute), gameUUID, "bob", under1500, "3/1", 20, true)

	partial, err := setup.store.GetPendingBetByUUID(alice)
	require.NoError(t, err)
	require.Equal(t, betting.Asset(60), partial.Data.Stake)
	mark := setup.events.Len()

	require.NoError(t, setup.betting.CancelBetsCreatedFrom(gameUUID, startTime))

	grown, err := setup.store.GetPendingBetByUUID(alice)
	require.NoError(t, err)
	assert.Equal(t, partial.ID, grown.ID)
	assert.Equal(t, betting.Asset(100), grown.Data.Stake)
	assert.Empty(t, setup.store.ListMatchedBets(gameUUID))
	assert.Equal(t, initialBalance, setup.store.Balance("bob"))
	assert.Equal(t, models.BettingStats{PendingBetsVolume: 100}, setup.store.BettingStats())

	events := setup.events.Events()[mark:]
	require.Len(t, events, 2)
	assert.Equal(t, models.BetUpdatedEvent{
		GameUUID: gameUUID,
		BetUUID:  alice,
		Better:   "alice",
		OldStake: 60,
		NewStake: 100,
	}, events[0])
	assert.Equal(t, models.EventTypeBetCancelled, events[1].EventType())
}

func TestBettingService_CancelBetsCreatedFrom_RefundsNewPendingBets(t *testing.T) {
	setup := setupTestService(t)
	gameUUID := setup.createGame(t, betting.Total(1500))
	old := setup.postBet(t, headTime, gameUUID, "alice", over1500, "3/2", 100, true)
	setup.startGames(t)
	setup.postBet(t, startTime, gameUUID, "bob", over1500, "3/2", 40, true)

	require.NoError(t, setup.betting.CancelBetsCreatedFrom(gameUUID, startTime))

	pending := setup.store.ListPendingBets(gameUUID)
	require.Len(t, pending, 1)
	assert.Equal(t, old, pending[0].Data.UUID)
	assert.Equal(t, initialBalance, setup.store.Balance("bob"))
}

func TestBettingService_CancelBetsByMarkets(t *testing.T) {
	setup := setupTestService(t)
	gameUUID := setup.createGame(t, betting.ResultHome(), betting.Total(1500))
	setup.postBet(t, headTime, gameUUID, "alice", over1500, "3/2", 100, false)
	setup.postBet(t, headTime, gameUUID, "bob", under1500, "3/1", 50, false)
	setup.postBet(t, headTime, gameUUID, "carol", betting.ResultHome().Yes(), "2/1", 100, false)

	require.NoError(t, setup.betting.CancelBetsByMarkets(gameUUID, []betting.Market{betting.Total(1500)}))

	assert.Empty(t, setup.store.ListMatchedBets(gameUUID))
	pending := setup.store.ListPendingBets(gameUUID)
	require.Len(t, pending, 1)
	assert.Equal(t, "carol", pending[0].Data.Better)
	assert.Equal(t, models.BettingStats{PendingBetsVolume: 100}, setup.store.BettingStats())
}
