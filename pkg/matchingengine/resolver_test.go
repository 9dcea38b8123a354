package matchingengine

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cypherlabdev/betting-node/internal/mocks"
	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

func (b *testBook) resolver() *Resolver {
	return NewResolver(b.store, b.store, b.store, b.events, zerolog.Nop())
}

// lock stores a matched bet between two fresh wagers
func (b *testBook) lock(t *testing.T, leg1, leg2 models.BetData) *models.MatchedBet {
	t.Helper()
	mb := &models.MatchedBet{
		GameUUID: b.game.UUID,
		Market:   betting.CreateMarket(leg1.Wincase),
		Created:  testTime,
		Bet1:     leg1,
		Bet2:     leg2,
	}
	require.NoError(t, b.store.CreateMatchedBet(mb))
	stats := b.store.BettingStats()
	stats.AddMatched(leg1.Stake + leg2.Stake)
	b.store.SetBettingStats(stats)
	return mb
}

func leg(better string, w betting.Wincase, odds string, stake betting.Asset) models.BetData {
	return models.BetData{
		UUID:    uuid.New(),
		Better:  better,
		Wincase: w,
		Odds:    mustOdds(odds),
		Stake:   stake,
		Created: testTime,
		Kind:    models.PendingBetLive,
	}
}

func TestResolver_ResolveMatchedBets_WinnerTakesPool(t *testing.T) {
	book := newTestBook(t)
	alice := leg("alice", over1500, "3/2", 100)
	bob := leg("bob", under1500, "3/1", 50)
	book.lock(t, alice, bob)

	err := book.resolver().ResolveMatchedBets(book.game.UUID, []betting.Wincase{over1500})
	require.NoError(t, err)

	assert.Equal(t, betting.Asset(150), book.store.Balance("alice"))
	assert.Equal(t, betting.Asset(0), book.store.Balance("bob"))
	assert.Empty(t, book.store.ListMatchedBets(book.game.UUID))
	assert.Equal(t, betting.Asset(0), book.store.BettingStats().MatchedBetsVolume)

	require.Len(t, book.events.Events(), 1)
	assert.Equal(t, models.BetResolvedEvent{
		GameUUID: book.game.UUID,
		BetUUID:  alice.UUID,
		Better:   "alice",
		Income:   150,
		Kind:     models.ResolveWin,
	}, book.events.Events()[0])
}

func TestResolver_ResolveMatchedBets_NeitherLegWonIsPush(t *testing.T) {
	book := newTestBook(t)
	over2000, under2000 := betting.Total(2000).Over(), betting.Total(2000).Under()
	alice := leg("alice", over2000, "3/2", 100)
	bob := leg("bob", under2000, "3/1", 50)
	book.lock(t, alice, bob)

	err := book.resolver().ResolveMatchedBets(book.game.UUID, []betting.Wincase{over1500})
	require.NoError(t, err)

	assert.Equal(t, betting.Asset(100), book.store.Balance("alice"))
	assert.Equal(t, betting.Asset(50), book.store.Balance("bob"))
	assert.Empty(t, book.store.ListMatchedBets(book.game.UUID))

	require.Len(t, book.events.Events(), 2)
	for _, e := range book.events.Events() {
		resolved, ok := e.(models.BetResolvedEvent)
		require.True(t, ok)
		assert.Equal(t, models.ResolveDraw, resolved.Kind)
	}
}

func TestResolver_ResolveMatchedBets_AggregatesPerBet(t *testing.T) {
	book := newTestBook(t)

	// alice's bet was filled in two parts against bob and carol
	alice := leg("alice", over1500, "3/2", 60)
	bob := leg("bob", under1500, "3/1", 30)
	carol := leg("carol", under1500, "3/1", 20)
	aliceSecond := alice
	aliceSecond.Stake = 40
	book.lock(t, alice, bob)
	book.lock(t, aliceSecond, carol)

	err := book.resolver().ResolveMatchedBets(book.game.UUID, []betting.Wincase{over1500})
	require.NoError(t, err)

	assert.Equal(t, betting.Asset(150), book.store.Balance("alice"))
	require.Len(t, book.events.Events(), 1)
	resolved := book.events.Events()[0].(models.BetResolvedEvent)
	assert.Equal(t, alice.UUID, resolved.BetUUID)
	assert.Equal(t, betting.Asset(150), resolved.Income)
}

func TestResolver_ResolveMatchedBets_EventsInBetUUIDOrder(t *testing.T) {
	book := newTestBook(t)
	book.lock(t, leg("alice", over1500, "3/2", 10), leg("bob", under1500, "3/1", 5))
	book.lock(t, leg("carol", over1500, "3/2", 10), leg("dave", under1500, "3/1", 5))

	err := book.resolver().ResolveMatchedBets(book.game.UUID, []betting.Wincase{betting.ResultHome().Yes()})
	require.NoError(t, err)

	events := book.events.Events()
	require.Len(t, events, 4)
	for i := 1; i < len(events); i++ {
		prev := events[i-1].(models.BetResolvedEvent).BetUUID
		cur := events[i].(models.BetResolvedEvent).BetUUID
		assert.Negative(t, bytes.Compare(prev[:], cur[:]))
	}
}

func TestResolver_ResolveMatchedBets_Conservation(t *testing.T) {
	book := newTestBook(t)
	var pool betting.Asset
	for _, p := range []struct{ s1, s2 betting.Asset }{{100, 50}, {7, 3}, {1000, 500}} {
		book.lock(t, leg("alice", over1500, "3/2", p.s1), leg("bob", under1500, "3/1", p.s2))
		pool += p.s1 + p.s2
	}
	over2000, under2000 := betting.Total(2000).Over(), betting.Total(2000).Under()
	book.lock(t, leg("carol", over2000, "3/2", 30), leg("dave", under2000, "3/1", 15))
	pool += 45

	err := book.resolver().ResolveMatchedBets(book.game.UUID, []betting.Wincase{under1500})
	require.NoError(t, err)

	var credited betting.Asset
	for _, e := range book.events.Events() {
		credited += e.(models.BetResolvedEvent).Income
	}
	assert.Equal(t, pool, credited)
	assert.Equal(t, pool, book.store.Balance("bob")+book.store.Balance("carol")+book.store.Balance("dave"))
	assert.Equal(t, betting.Asset(0), book.store.Balance("alice"))
}

func TestResolver_ResolveMatchedBets_NoMatchedBets(t *testing.T) {
	book := newTestBook(t)
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockEventSink(ctrl)

	resolver := NewResolver(book.store, book.store, book.store, sink, zerolog.Nop())
	require.NoError(t, resolver.ResolveMatchedBets(book.game.UUID, []betting.Wincase{over1500}))
}

func TestResolver_ResolveMatchedBets_SecondCallIsNoop(t *testing.T) {
	book := newTestBook(t)
	book.lock(t, leg("alice", over1500, "3/2", 100), leg("bob", under1500, "3/1", 50))
	resolver := book.resolver()

	require.NoError(t, resolver.ResolveMatchedBets(book.game.UUID, []betting.Wincase{over1500}))
	require.NoError(t, resolver.ResolveMatchedBets(book.game.UUID, []betting.Wincase{over1500}))

	assert.Equal(t, betting.Asset(150), book.store.Balance("alice"))
	assert.Len(t, book.events.Events(), 1)
}

func TestResolver_ResolveMatchedBets_InvariantViolations(t *testing.T) {
	tests := []struct {
		name    string
		leg1    models.BetData
		leg2    models.BetData
		results []betting.Wincase
		wantErr error
	}{
		{
			name:    "both legs won",
			leg1:    leg("alice", over1500, "3/2", 100),
			leg2:    leg("bob", under1500, "3/1", 50),
			results: []betting.Wincase{over1500, under1500},
			wantErr: models.ErrInconsistentResults,
		},
		{
			name:    "legs not opposite",
			leg1:    leg("alice", over1500, "3/2", 100),
			leg2:    leg("bob", over1500, "3/1", 50),
			results: []betting.Wincase{over1500},
			wantErr: models.ErrInconsistentMatchedBet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := newTestBook(t)
			book.lock(t, tt.leg1, tt.leg2)

			err := book.resolver().ResolveMatchedBets(book.game.UUID, tt.results)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, models.ErrInvariantViolation)
		})
	}
}

func TestResolver_RefundMatchedBets(t *testing.T) {
	book := newTestBook(t)
	alice := leg("alice", over1500, "3/2", 100)
	bob := leg("bob", under1500, "3/1", 50)
	mb := book.lock(t, alice, bob)

	err := book.resolver().RefundMatchedBets([]*models.MatchedBet{mb})
	require.NoError(t, err)

	assert.Equal(t, betting.Asset(100), book.store.Balance("alice"))
	assert.Equal(t, betting.Asset(50), book.store.Balance("bob"))
	assert.Empty(t, book.store.ListMatchedBets(book.game.UUID))
	assert.Equal(t, betting.Asset(0), book.store.BettingStats().MatchedBetsVolume)

	assert.Equal(t, []models.Event{
		models.BetCancelledEvent{GameUUID: book.game.UUID, BetUUID: alice.UUID, Better: "alice", Stake: 100, Kind: models.CancelMatched},
		models.BetCancelledEvent{GameUUID: book.game.UUID, BetUUID: bob.UUID, Better: "bob", Stake: 50, Kind: models.CancelMatched},
	}, book.events.Events())
}
