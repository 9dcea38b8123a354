package chain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/service"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

func TestOperation_JSON(t *testing.T) {
	gameUUID := uuid.New()
	block := &Block{
		Height:    3,
		Timestamp: genesisTime,
		Operations: []Operation{
			createGameOp(t, gameUUID, betting.Total(1500), betting.ResultHome()),
			postBetOp(t, gameUUID, "alice", over1500, "3/2", 100),
		},
	}

	data, err := json.Marshal(block)
	require.NoError(t, err)

	var fields struct {
		Operations []map[string]any `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "create_game", fields.Operations[0]["type"])
	assert.Equal(t, "soccer", fields.Operations[0]["game_type"])
	assert.Equal(t, "post_bet", fields.Operations[1]["type"])
	assert.Equal(t, "3/2", fields.Operations[1]["odds"])
	assert.Equal(t, "total::over(1500)", fields.Operations[1]["wincase"])

	var decoded Block
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *block, decoded)

	before, err := ComputeBlockHash(block)
	require.NoError(t, err)
	after, err := ComputeBlockHash(&decoded)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOperation_YAML(t *testing.T) {
	source := `
height: 1
timestamp: 2026-03-01T17:01:00Z
operations:
  - type: create_game
    moderator: moderator
    uuid: 6f1c2a5e-8a2b-4c1d-9e3f-0a1b2c3d4e5f
    name: home vs away
    game_type: soccer
    start_time: 2026-03-01T18:00:00Z
    auto_resolve_delay: 24h
    markets: ["total(1500)", "result_home"]
  - type: post_bet
    better: alice
    game_uuid: 6f1c2a5e-8a2b-4c1d-9e3f-0a1b2c3d4e5f
    uuid: 0e6b7f4c-3b0c-4d7e-8a1f-2b3c4d5e6f70
    wincase: total::over(1500)
    odds: 3/2
    stake: 100
    live: true
`
	var block Block
	require.NoError(t, yaml.Unmarshal([]byte(source), &block))

	assert.Equal(t, int64(1), block.Height)
	assert.Equal(t, genesisTime.Add(time.Minute), block.Timestamp)
	require.Len(t, block.Operations, 2)

	create, ok := block.Operations[0].Payload.(*service.CreateGameRequest)
	require.True(t, ok)
	assert.Equal(t, OpCreateGame, block.Operations[0].Type)
	assert.Equal(t, 24*time.Hour, create.AutoResolveDelay)
	assert.Equal(t, []betting.Market{betting.Total(1500), betting.ResultHome()}, create.Markets)

	bet, ok := block.Operations[1].Payload.(*service.PostBetRequest)
	require.True(t, ok)
	assert.Equal(t, "alice", bet.Better)
	assert.Equal(t, over1500, bet.Wincase)
	assert.Equal(t, "3/2", bet.Odds.String())
	assert.Equal(t, betting.Asset(100), bet.Stake)
	assert.True(t, bet.Live)
}

func TestOperation_UnknownType(t *testing.T) {
	var op Operation
	err := json.Unmarshal([]byte(`{"type":"transfer","to":"bob"}`), &op)
	assert.ErrorIs(t, err, models.ErrUnknownOperation)

	err = yaml.Unmarshal([]byte("type: transfer\n"), &op)
	assert.ErrorIs(t, err, models.ErrUnknownOperation)

	_, err = NewOperation(&struct{}{})
	assert.ErrorIs(t, err, models.ErrUnknownOperation)
}
