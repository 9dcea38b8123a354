package messaging

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/observability"
	"github.com/cypherlabdev/betting-node/internal/repository"
)

// Topics names the Kafka topics betting events are published to
type Topics struct {
	Bets  string
	Games string
}

// OutboxPublisher polls the outbox table and publishes events to Kafka
type OutboxPublisher struct {
	outboxRepo      repository.OutboxRepository
	kafkaProducer   sarama.SyncProducer
	metrics         *observability.Metrics
	logger          zerolog.Logger
	pollInterval    time.Duration
	batchSize       int
	cleanupInterval time.Duration
	retention       time.Duration
	defaultTopic    string
	topicMap        map[string]string // event_type -> Kafka topic
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(
	outboxRepo repository.OutboxRepository,
	kafkaProducer sarama.SyncProducer,
	topics Topics,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *OutboxPublisher {
	return &OutboxPublisher{
		outboxRepo:      outboxRepo,
		kafkaProducer:   kafkaProducer,
		metrics:         metrics,
		logger:          logger.With().Str("component", "outbox_publisher").Logger(),
		pollInterval:    100 * time.Millisecond,
		batchSize:       100,
		cleanupInterval: time.Hour,
		retention:       7 * 24 * time.Hour,
		defaultTopic:    topics.Bets,
		topicMap: map[string]string{
			models.EventTypeBetMatched:        topics.Bets,
			models.EventTypeBetResolved:       topics.Bets,
			models.EventTypeBetCancelled:      topics.Bets,
			models.EventTypeBetUpdated:        topics.Bets,
			models.EventTypeBetRestored:       topics.Bets,
			models.EventTypeGameStatusChanged: topics.Games,
		},
	}
}

// WithRetention sets how long processed events are kept
func (p *OutboxPublisher) WithRetention(retention time.Duration) *OutboxPublisher {
	p.retention = retention
	return p
}

// Start begins polling for outbox events
func (p *OutboxPublisher) Start(ctx context.Context) {
	p.logger.Info().Msg("outbox publisher started")
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	cleanup := time.NewTicker(p.cleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ticker.C:
			p.publishPending(ctx)
		case <-cleanup.C:
			if _, err := p.outboxRepo.CleanupProcessedEvents(ctx, p.retention); err != nil {
				p.logger.Error().Err(err).Msg("failed to cleanup processed events")
			}
		case <-ctx.Done():
			p.logger.Info().Msg("outbox publisher stopping")
			return
		}
	}
}

// publishPending retrieves and publishes unprocessed events
func (p *OutboxPublisher) publishPending(ctx context.Context) {
	events, err := p.outboxRepo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to get unprocessed events")
		return
	}

	for _, event := range events {
		publishErr := p.publishEvent(event)
		if publishErr != nil {
			p.metrics.OutboxEventsFailed.WithLabelValues(event.EventType).Inc()
			p.logger.Error().
				Err(publishErr).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Int64("block_height", event.BlockHeight).
				Msg("failed to publish event")

			// Increment retry count
			if err := p.outboxRepo.IncrementRetryCount(ctx, event.ID, publishErr.Error()); err != nil {
				p.logger.Error().Err(err).Msg("failed to increment retry count")
			}

			// Later events of the game must not overtake this one
			return
		}

		p.metrics.OutboxEventsPublished.WithLabelValues(event.EventType).Inc()
		if err := p.outboxRepo.MarkProcessed(ctx, event.ID); err != nil {
			p.logger.Error().Err(err).Msg("failed to mark event as processed")
		}
	}
}

// publishEvent publishes a single event to Kafka
func (p *OutboxPublisher) publishEvent(event *models.OutboxEvent) error {
	topic, ok := p.topicMap[event.EventType]
	if !ok {
		topic = p.defaultTopic
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.AggregateID.String()),
		Value: sarama.ByteEncoder(event.EventPayload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_id"), Value: []byte(event.ID.String())},
			{Key: []byte("event_type"), Value: []byte(event.EventType)},
			{Key: []byte("aggregate_type"), Value: []byte(event.AggregateType)},
			{Key: []byte("block_height"), Value: []byte(strconv.FormatInt(event.BlockHeight, 10))},
			{Key: []byte("sequence"), Value: []byte(strconv.Itoa(event.Sequence))},
		},
	}

	partition, offset, err := p.kafkaProducer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send to Kafka: %w", err)
	}

	p.logger.Debug().
		Str("event_type", event.EventType).
		Str("topic", topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("published event to Kafka")

	return nil
}
