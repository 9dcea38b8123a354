package main

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/repository"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

func TestReplay_Lifecycle(t *testing.T) {
	f, err := os.Open("testdata/lifecycle.yaml")
	require.NoError(t, err)
	defer f.Close()

	out, err := replay(context.Background(), f, true, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, int64(4), out.Head.Height)
	require.Len(t, out.Blocks, 4)

	assert.Equal(t, 3, out.Blocks[0].Applied)
	require.Len(t, out.Blocks[0].Events, 1)
	assert.Equal(t, models.EventTypeBetMatched, out.Blocks[0].Events[0].EventType())

	assert.Equal(t, 0, out.Blocks[1].Applied)
	require.Len(t, out.Blocks[1].Rejected, 1)
	assert.Equal(t, "cancel_pending_bets", string(out.Blocks[1].Rejected[0].Type))

	resolved, ok := out.Blocks[3].Events[0].(models.BetResolvedEvent)
	require.True(t, ok)
	assert.Equal(t, betting.Asset(150), resolved.Income)

	require.NotNil(t, out.State)
	assert.Equal(t, []repository.AccountBalance{
		{Account: "alice", Balance: 1_000_050},
		{Account: "bob", Balance: 999_950},
	}, out.State.Accounts)
}

func TestReplay_Errors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr string
	}{
		{
			name:    "unknown field",
			source:  "genesis: {}\nwitnesses: []\n",
			wantErr: "decode scenario",
		},
		{
			name:    "invalid genesis",
			source:  "genesis:\n  property:\n    moderator: \"\"\n",
			wantErr: "moderator is required",
		},
		{
			name: "height gap",
			source: `
genesis:
  time: 2026-03-01T17:00:00Z
  property: {moderator: moderator, resolve_delay: 1h, min_bet_stake: 10}
blocks:
  - {height: 2, timestamp: 2026-03-01T17:01:00Z}
`,
			wantErr: "block 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := replay(context.Background(), strings.NewReader(tt.source), false, zerolog.Nop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
