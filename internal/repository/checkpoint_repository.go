package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/betting-node/internal/models"
)

// CheckpointRepository defines the interface for applied-block checkpoints
type CheckpointRepository interface {
	// Check looks up the checkpoint of a block height
	// Returns exists=false if the height was never applied
	// Returns ErrBlockHashMismatch if the height was applied with another block hash
	Check(ctx context.Context, height int64, blockHash string) (exists bool, err error)

	// SaveInTransaction stores the checkpoint of an applied block
	// MUST be called within a transaction
	SaveInTransaction(ctx context.Context, tx pgx.Tx, checkpoint *models.Checkpoint) error

	// Latest retrieves the checkpoint with the highest height
	// Returns ErrCheckpointNotFound if nothing was applied yet
	Latest(ctx context.Context) (*models.Checkpoint, error)

	// Prune removes checkpoints older than the newest keep ones
	// Returns the number of deleted checkpoints
	Prune(ctx context.Context, keep int64) (int64, error)
}

// PostgresCheckpointRepository implements CheckpointRepository using PostgreSQL
type PostgresCheckpointRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewPostgresCheckpointRepository creates a new PostgreSQL checkpoint repository
func NewPostgresCheckpointRepository(db DBTX, logger zerolog.Logger) *PostgresCheckpointRepository {
	return &PostgresCheckpointRepository{
		db:     db,
		logger: logger.With().Str("component", "postgres_checkpoint_repository").Logger(),
	}
}

// Check looks up the checkpoint of a block height and validates its hash
func (r *PostgresCheckpointRepository) Check(ctx context.Context, height int64, blockHash string) (bool, error) {
	query := `
		SELECT block_hash
		FROM block_checkpoints
		WHERE height = $1
	`

	var storedHash string
	err := r.db.QueryRow(ctx, query, height).Scan(&storedHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.logger.Error().Err(err).
			Int64("height", height).
			Msg("failed to check block checkpoint")
		return false, fmt.Errorf("check block checkpoint: %w", err)
	}

	if storedHash != blockHash {
		r.logger.Warn().
			Int64("height", height).
			Str("stored_hash", storedHash).
			Str("block_hash", blockHash).
			Msg("block hash mismatch")
		return true, fmt.Errorf("%w: height %d", models.ErrBlockHashMismatch, height)
	}

	return true, nil
}

// SaveInTransaction stores the checkpoint of an applied block
func (r *PostgresCheckpointRepository) SaveInTransaction(ctx context.Context, tx pgx.Tx, checkpoint *models.Checkpoint) error {
	query := `
		INSERT INTO block_checkpoints (height, block_hash, state, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if checkpoint.CreatedAt.IsZero() {
		checkpoint.CreatedAt = time.Now()
	}

	_, err := tx.Exec(ctx, query,
		checkpoint.Height,
		checkpoint.BlockHash,
		[]byte(checkpoint.State),
		checkpoint.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Int64("height", checkpoint.Height).
			Msg("failed to save block checkpoint")
		return fmt.Errorf("save block checkpoint: %w", err)
	}

	r.logger.Debug().
		Int64("height", checkpoint.Height).
		Str("block_hash", checkpoint.BlockHash).
		Int("state_size", len(checkpoint.State)).
		Msg("block checkpoint saved")

	return nil
}

// Latest retrieves the checkpoint with the highest height
func (r *PostgresCheckpointRepository) Latest(ctx context.Context) (*models.Checkpoint, error) {
	query := `
		SELECT height, block_hash, state, created_at
		FROM block_checkpoints
		ORDER BY height DESC
		LIMIT 1
	`

	var checkpoint models.Checkpoint
	var state []byte
	err := r.db.QueryRow(ctx, query).Scan(
		&checkpoint.Height,
		&checkpoint.BlockHash,
		&state,
		&checkpoint.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrCheckpointNotFound
		}
		r.logger.Error().Err(err).Msg("failed to load latest checkpoint")
		return nil, fmt.Errorf("load latest checkpoint: %w", err)
	}
	checkpoint.State = state

	return &checkpoint, nil
}

// Prune removes checkpoints older than the newest keep ones
func (r *PostgresCheckpointRepository) Prune(ctx context.Context, keep int64) (int64, error) {
	query := `
		DELETE FROM block_checkpoints
		WHERE height <= (SELECT COALESCE(MAX(height), 0) FROM block_checkpoints) - $1
	`

	result, err := r.db.Exec(ctx, query, keep)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to prune checkpoints")
		return 0, fmt.Errorf("prune checkpoints: %w", err)
	}

	deletedCount := result.RowsAffected()
	if deletedCount > 0 {
		r.logger.Info().
			Int64("deleted_count", deletedCount).
			Int64("keep", keep).
			Msg("pruned block checkpoints")
	}

	return deletedCount, nil
}

// ComputeHash computes a SHA-256 hash of the JSON encoding of v
func ComputeHash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal hash input: %w", err)
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
