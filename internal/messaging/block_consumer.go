package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/betting-node/internal/chain"
)

// BlockApplier is the part of the chain node the consumer drives
type BlockApplier interface {
	ApplyBlock(ctx context.Context, block *chain.Block) (*chain.BlockResult, error)
	Head() chain.BlockHead
}

// BlockConsumer feeds blocks read from a Kafka topic into the node. The
// topic must carry blocks in height order on a single partition.
type BlockConsumer struct {
	group        sarama.ConsumerGroup
	topics       []string
	node         BlockApplier
	logger       zerolog.Logger
	retryBackoff time.Duration
}

var _ sarama.ConsumerGroupHandler = (*BlockConsumer)(nil)

// NewBlockConsumer creates a new block consumer
func NewBlockConsumer(
	group sarama.ConsumerGroup,
	topics []string,
	node BlockApplier,
	logger zerolog.Logger,
) *BlockConsumer {
	return &BlockConsumer{
		group:        group,
		topics:       topics,
		node:         node,
		logger:       logger.With().Str("component", "block_consumer").Logger(),
		retryBackoff: time.Second,
	}
}

// Start consumes until ctx is cancelled. A session that fails is joined
// again after a backoff, resuming from the last committed block.
func (c *BlockConsumer) Start(ctx context.Context) {
	c.logger.Info().Strs("topics", c.topics).Msg("block consumer started")

	for {
		if err := c.group.Consume(ctx, c.topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				c.logger.Info().Msg("consumer group closed")
				return
			}
			c.logger.Error().Err(err).Msg("consumer session failed")
		}

		select {
		case <-ctx.Done():
			c.logger.Info().Msg("block consumer stopping")
			return
		case <-time.After(c.retryBackoff):
		}
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (c *BlockConsumer) Setup(session sarama.ConsumerGroupSession) error {
	c.logger.Info().
		Int32("generation", session.GenerationID()).
		Int64("head_height", c.node.Head().Height).
		Msg("consumer session started")
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (c *BlockConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim applies the blocks of one partition in offset order. An
// offset is only marked once its block is applied, so a failing block is
// read again by the next session.
func (c *BlockConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.handleMessage(session.Context(), msg); err != nil {
				return err
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *BlockConsumer) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	logger := c.logger.With().
		Int32("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Logger()

	var block chain.Block
	if err := json.Unmarshal(msg.Value, &block); err != nil {
		// Undecodable messages can never be applied
		logger.Error().Err(err).Msg("skipping malformed block")
		return nil
	}

	if head := c.node.Head(); block.Height <= head.Height {
		logger.Debug().
			Int64("height", block.Height).
			Int64("head_height", head.Height).
			Msg("skipping already applied block")
		return nil
	}

	result, err := c.node.ApplyBlock(ctx, &block)
	if err != nil {
		logger.Error().Err(err).Int64("height", block.Height).Msg("failed to apply block")
		return err
	}

	logger.Debug().
		Int64("height", result.Height).
		Int("rejected", len(result.Rejected)).
		Msg("block consumed")

	return nil
}
