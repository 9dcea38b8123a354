package models

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// GameStatus represents the lifecycle state of a game
type GameStatus string

const (
	GameStatusCreated  GameStatus = "created"
	GameStatusStarted  GameStatus = "started"
	GameStatusFinished GameStatus = "finished"

	// GameStatusCancelled never lives in the store, it only reports removal
	GameStatusCancelled GameStatus = "cancelled"
)

// Game is an external event bets are placed on. Markets are kept sorted and
// unique; Results are set only once the game is finished.
type Game struct {
	ID              int64             `json:"id"`
	UUID            uuid.UUID         `json:"uuid"`
	Name            string            `json:"name"`
	Type            betting.GameType  `json:"type"`
	Status          GameStatus        `json:"status"`
	Created         time.Time         `json:"created"`
	StartTime       time.Time         `json:"start_time"`
	LastUpdate      time.Time         `json:"last_update"`
	BetsResolveTime time.Time         `json:"bets_resolve_time"`
	AutoResolveTime time.Time         `json:"auto_resolve_time"`
	Markets         []betting.Market  `json:"markets"`
	Results         []betting.Wincase `json:"results,omitempty"`
}

// HasMarket reports whether m is one of the game's active markets
func (g *Game) HasMarket(m betting.Market) bool {
	_, found := slices.BinarySearchFunc(g.Markets, m, betting.Market.Compare)
	return found
}

// IsOpen reports whether bets and market updates are still accepted
func (g *Game) IsOpen() bool {
	return g.Status == GameStatusCreated || g.Status == GameStatusStarted
}

// Clone returns a copy that shares no slices with g
func (g *Game) Clone() *Game {
	c := *g
	c.Markets = slices.Clone(g.Markets)
	c.Results = slices.Clone(g.Results)
	return &c
}
