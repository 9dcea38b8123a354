package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/observability"
	"github.com/cypherlabdev/betting-node/internal/repository"
)

// Database defines the interface for database operations
type Database interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresPersister stores the checkpoint of a block together with its
// events in the outbox, in one transaction
type PostgresPersister struct {
	db          Database
	checkpoints repository.CheckpointRepository
	outbox      repository.OutboxRepository
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// NewPostgresPersister creates a new block persister
func NewPostgresPersister(
	db Database,
	checkpoints repository.CheckpointRepository,
	outbox repository.OutboxRepository,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *PostgresPersister {
	return &PostgresPersister{
		db:          db,
		checkpoints: checkpoints,
		outbox:      outbox,
		metrics:     metrics,
		logger:      logger.With().Str("component", "block_persister").Logger(),
	}
}

var _ Persister = (*PostgresPersister)(nil)

// PersistBlock records an applied block. Replaying a block that is already
// stored with the same hash is a no-op.
func (p *PostgresPersister) PersistBlock(ctx context.Context, block *AppliedBlock) error {
	start := time.Now()
	defer func() {
		p.metrics.DatabaseOperationDuration.WithLabelValues("persist_block").Observe(time.Since(start).Seconds())
	}()

	exists, err := p.checkpoints.Check(ctx, block.Height, block.Hash)
	if err != nil {
		p.metrics.DatabaseErrors.WithLabelValues("persist_block", "checkpoint_check").Inc()
		return err
	}
	if exists {
		p.logger.Debug().
			Int64("height", block.Height).
			Msg("block already persisted")
		return nil
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		p.metrics.DatabaseErrors.WithLabelValues("persist_block", "begin").Inc()
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = p.checkpoints.SaveInTransaction(ctx, tx, &models.Checkpoint{
		Height:    block.Height,
		BlockHash: block.Hash,
		State:     block.State,
		CreatedAt: block.Timestamp,
	})
	if err != nil {
		p.metrics.DatabaseErrors.WithLabelValues("persist_block", "checkpoint_save").Inc()
		return err
	}

	for seq, event := range block.Events {
		outboxEvent, err := models.NewOutboxEvent(block.Height, seq, event)
		if err != nil {
			return err
		}
		outboxEvent.CreatedAt = block.Timestamp

		if err := p.outbox.Create(ctx, tx, outboxEvent); err != nil {
			p.metrics.DatabaseErrors.WithLabelValues("persist_block", "outbox_create").Inc()
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		p.metrics.DatabaseErrors.WithLabelValues("persist_block", "commit").Inc()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	p.logger.Debug().
		Int64("height", block.Height).
		Str("block_hash", block.Hash).
		Int("events", len(block.Events)).
		Msg("block persisted")

	return nil
}

// RunPruner deletes all but the newest keep checkpoints every interval
// until ctx is cancelled
func (p *PostgresPersister) RunPruner(ctx context.Context, interval time.Duration, keep int64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.prune(ctx, keep)
		case <-ctx.Done():
			return
		}
	}
}

func (p *PostgresPersister) prune(ctx context.Context, keep int64) {
	if _, err := p.checkpoints.Prune(ctx, keep); err != nil {
		p.metrics.DatabaseErrors.WithLabelValues("prune_checkpoints", "delete").Inc()
		p.logger.Error().Err(err).Int64("keep", keep).Msg("failed to prune checkpoints")
	}
}
