package models

import (
	"encoding/json"
	"time"
)

// Checkpoint is the persisted state after a block was applied
type Checkpoint struct {
	Height    int64           `json:"height" db:"height"`
	BlockHash string          `json:"block_hash" db:"block_hash"`
	State     json.RawMessage `json:"state" db:"state"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
