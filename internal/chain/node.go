package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/observability"
	"github.com/cypherlabdev/betting-node/internal/repository"
	"github.com/cypherlabdev/betting-node/internal/service"
	"github.com/cypherlabdev/betting-node/pkg/betting"
	"github.com/cypherlabdev/betting-node/pkg/matchingengine"
)

// BlockHead identifies the last applied block
type BlockHead struct {
	Height    int64     `json:"height"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
}

// RejectedOperation reports an operation that left the state untouched
type RejectedOperation struct {
	Index int           `json:"index"`
	Type  OperationType `json:"type"`
	Error string        `json:"error"`
	Err   error         `json:"-"`
}

// BlockResult is the outcome of an applied block
type BlockResult struct {
	Height   int64               `json:"height"`
	Hash     string              `json:"hash"`
	Applied  int                 `json:"applied"`
	Rejected []RejectedOperation `json:"rejected,omitempty"`
	Events   []models.Event      `json:"events"`
}

// AppliedBlock is what a Persister records for one block
type AppliedBlock struct {
	Height    int64
	Hash      string
	Timestamp time.Time
	Events    []models.Event
	State     json.RawMessage
}

// Persister makes applied blocks durable. A block is only committed in
// memory once PersistBlock succeeded.
type Persister interface {
	PersistBlock(ctx context.Context, block *AppliedBlock) error
}

// NodeState is the checkpoint form of a node
type NodeState struct {
	Head  BlockHead              `json:"head"`
	Store *repository.StoreState `json:"store"`
}

// Genesis seeds an empty node
type Genesis struct {
	Time     time.Time                `json:"time" yaml:"time"`
	Property models.BettingProperty   `json:"property" yaml:"property"`
	Accounts map[string]betting.Asset `json:"accounts" yaml:"accounts"`
}

// Node applies blocks to the betting state. Writers hold the lock for a
// whole block, so readers never see a block half applied.
type Node struct {
	mu        sync.RWMutex
	store     repository.VersionedStore
	events    *models.EventBuffer
	service   service.OperationService
	persister Persister
	metrics   *observability.Metrics
	logger    zerolog.Logger
	tracer    trace.Tracer
	head      BlockHead
}

// NewNode creates a node over an already wired operation service. events
// must be the buffer the service emits into. persister may be nil.
func NewNode(
	store repository.VersionedStore,
	events *models.EventBuffer,
	svc service.OperationService,
	persister Persister,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Node {
	return &Node{
		store:     store,
		events:    events,
		service:   svc,
		persister: persister,
		metrics:   metrics,
		logger:    logger.With().Str("component", "chain_node").Logger(),
		tracer:    otel.Tracer("betting-node"),
	}
}

// NewBettingNode wires the engines and services over store
func NewBettingNode(
	store repository.VersionedStore,
	persister Persister,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Node {
	events := &models.EventBuffer{}
	resolver := matchingengine.NewResolver(store, store, store, events, logger)
	bettingService := service.NewBettingService(store, resolver, events, logger)
	matcher := matchingengine.NewMatcher(store, store, store, bettingService, events, logger)
	svc := service.NewOperationService(store, bettingService, matcher, resolver, events, logger)

	return NewNode(store, events, svc, persister, metrics, logger)
}

// InitGenesis seeds the property and the account balances of a fresh node
func (n *Node) InitGenesis(genesis Genesis) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.head.Height != 0 {
		return fmt.Errorf("%w: genesis after block %d", models.ErrInvalidBlock, n.head.Height)
	}

	n.store.SetBettingProperty(genesis.Property)
	for _, account := range slices.Sorted(maps.Keys(genesis.Accounts)) {
		if err := n.store.Credit(account, genesis.Accounts[account]); err != nil {
			return fmt.Errorf("fund %s: %w", account, err)
		}
	}
	n.head = BlockHead{Timestamp: genesis.Time}

	n.logger.Info().
		Str("moderator", genesis.Property.Moderator).
		Int("accounts", len(genesis.Accounts)).
		Time("genesis_time", genesis.Time).
		Msg("genesis initialized")

	return nil
}

// Restore replaces the node state with a checkpoint
func (n *Node) Restore(checkpoint *models.Checkpoint) error {
	var state NodeState
	if err := json.Unmarshal(checkpoint.State, &state); err != nil {
		return fmt.Errorf("decode checkpoint %d: %w", checkpoint.Height, err)
	}
	if state.Head.Height != checkpoint.Height || state.Store == nil {
		return fmt.Errorf("%w: checkpoint %d holds head %d", models.ErrInvalidBlock, checkpoint.Height, state.Head.Height)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.store.Load(state.Store); err != nil {
		return fmt.Errorf("load checkpoint %d: %w", checkpoint.Height, err)
	}
	n.head = state.Head
	n.observeState()

	n.logger.Info().
		Int64("height", state.Head.Height).
		Str("block_hash", state.Head.Hash).
		Msg("state restored from checkpoint")

	return nil
}

// Head returns the last applied block
func (n *Node) Head() BlockHead {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.head
}

// View runs fn against a consistent state. fn must not keep store.
func (n *Node) View(fn func(store repository.Store, head BlockHead)) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	fn(n.store, n.head)
}

// ApplyBlock evaluates the operations of a block in order, then runs the
// block tasks. A rejected operation leaves no trace in the state or the
// events. An invariant violation abandons the whole block.
func (n *Node) ApplyBlock(ctx context.Context, block *Block) (*BlockResult, error) {
	ctx, span := n.tracer.Start(ctx, "chain.ApplyBlock",
		trace.WithAttributes(
			attribute.Int64("block.height", block.Height),
			attribute.Int("block.operations", len(block.Operations)),
		),
	)
	defer span.End()

	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	result, err := n.applyBlock(ctx, block)
	n.metrics.BlockApplyDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("block.rejected", len(result.Rejected)),
		attribute.Int("block.events", len(result.Events)),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (n *Node) applyBlock(ctx context.Context, block *Block) (*BlockResult, error) {
	if block.Height != n.head.Height+1 {
		n.metrics.BlocksAppliedTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: height %d after head %d", models.ErrInvalidBlock, block.Height, n.head.Height)
	}
	if block.Timestamp.Before(n.head.Timestamp) {
		n.metrics.BlocksAppliedTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: timestamp %s before head %s", models.ErrInvalidBlock, block.Timestamp, n.head.Timestamp)
	}

	hash, err := ComputeBlockHash(block)
	if err != nil {
		n.metrics.BlocksAppliedTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidBlock, err)
	}

	logger := observability.BlockLogger(n.logger, block.Height, hash)
	result := &BlockResult{Height: block.Height, Hash: hash}
	head := BlockHead{Height: block.Height, Timestamp: block.Timestamp, Hash: hash}

	n.store.StartSession()

	if err := n.runBlock(block, result, logger); err != nil {
		n.abort(logger)
		n.metrics.BlocksAppliedTotal.WithLabelValues("aborted").Inc()
		logger.Error().Err(err).Msg("block aborted")
		return nil, fmt.Errorf("apply block %d: %w", block.Height, err)
	}

	if n.persister != nil {
		if err := n.persist(ctx, head); err != nil {
			n.abort(logger)
			n.metrics.BlocksAppliedTotal.WithLabelValues("failed").Inc()
			logger.Error().Err(err).Msg("failed to persist block")
			return nil, fmt.Errorf("persist block %d: %w", block.Height, err)
		}
	}

	if err := n.store.Commit(); err != nil {
		return nil, fmt.Errorf("commit block %d: %w", block.Height, err)
	}
	result.Events = n.events.Drain()
	n.head = head

	n.metrics.BlocksAppliedTotal.WithLabelValues("applied").Inc()
	n.recordCommitted(block, result)
	n.observeState()

	logger.Info().
		Int("applied", result.Applied).
		Int("rejected", len(result.Rejected)).
		Int("events", len(result.Events)).
		Msg("block applied")

	return result, nil
}

func (n *Node) runBlock(block *Block, result *BlockResult, logger zerolog.Logger) error {
	for i, op := range block.Operations {
		err := n.applyOperation(op, block.Timestamp)
		if err == nil {
			result.Applied++
			continue
		}
		if errors.Is(err, models.ErrInvariantViolation) {
			return fmt.Errorf("operation %d (%s): %w", i, op.Type, err)
		}

		result.Rejected = append(result.Rejected, RejectedOperation{
			Index: i,
			Type:  op.Type,
			Error: err.Error(),
			Err:   err,
		})
		opLogger := observability.OperationLogger(logger, i, string(op.Type))
		opLogger.Warn().Err(err).
			Msg("operation rejected")
	}

	if err := n.service.RunBlockTasks(block.Timestamp); err != nil {
		return fmt.Errorf("block tasks: %w", err)
	}
	return nil
}

// applyOperation runs op in its own store session
func (n *Node) applyOperation(op Operation, now time.Time) error {
	start := time.Now()
	mark := n.events.Len()
	n.store.StartSession()

	status := "applied"
	err := op.apply(n.service, now)
	if err != nil {
		status = "rejected"
		if undoErr := n.store.Undo(); undoErr != nil {
			return fmt.Errorf("%w: undo operation: %v", models.ErrInvariantViolation, undoErr)
		}
		n.events.Truncate(mark)
	} else if commitErr := n.store.Commit(); commitErr != nil {
		return fmt.Errorf("%w: commit operation: %v", models.ErrInvariantViolation, commitErr)
	}

	n.metrics.OperationsTotal.WithLabelValues(string(op.Type), status).Inc()
	n.metrics.OperationDuration.WithLabelValues(string(op.Type)).Observe(time.Since(start).Seconds())
	return err
}

func (n *Node) persist(ctx context.Context, head BlockHead) error {
	state, err := json.Marshal(NodeState{Head: head, Store: n.store.Export()})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	return n.persister.PersistBlock(ctx, &AppliedBlock{
		Height:    head.Height,
		Hash:      head.Hash,
		Timestamp: head.Timestamp,
		Events:    n.events.Events(),
		State:     state,
	})
}

// abort reverts the block session and drops its events
func (n *Node) abort(logger zerolog.Logger) {
	if err := n.store.Undo(); err != nil {
		logger.Error().Err(err).Msg("failed to undo block")
	}
	n.events.Truncate(0)
}

// recordCommitted counts the placements and events of a committed block.
// Rejected operations and aborted blocks never reach it.
func (n *Node) recordCommitted(block *Block, result *BlockResult) {
	rejected := make(map[int]bool, len(result.Rejected))
	for _, op := range result.Rejected {
		rejected[op.Index] = true
	}
	for i, op := range block.Operations {
		if rejected[i] {
			continue
		}
		switch req := op.Payload.(type) {
		case *service.CreateGameRequest:
			n.metrics.GamesTotal.WithLabelValues(string(models.GameStatusCreated)).Inc()
		case *service.PostBetRequest:
			n.metrics.BetsPlacedTotal.WithLabelValues(string(req.Kind())).Inc()
		}
	}

	for _, event := range result.Events {
		switch e := event.(type) {
		case models.BetMatchedEvent:
			n.metrics.BetsMatchedTotal.Inc()
		case models.BetCancelledEvent:
			n.metrics.BetsCancelledTotal.WithLabelValues(string(e.Kind)).Inc()
		case models.BetResolvedEvent:
			n.metrics.BetsResolvedTotal.Inc()
		case models.GameStatusChangedEvent:
			n.metrics.GamesTotal.WithLabelValues(string(e.NewStatus)).Inc()
		}
	}
}

func (n *Node) observeState() {
	stats := n.store.BettingStats()
	n.metrics.HeadBlockHeight.Set(float64(n.head.Height))
	n.metrics.PendingBetsVolume.Set(stats.PendingBetsVolume.Decimal().InexactFloat64())
	n.metrics.MatchedBetsVolume.Set(stats.MatchedBetsVolume.Decimal().InexactFloat64())
}

// ComputeBlockHash identifies a block by the sha-256 of its JSON encoding
func ComputeBlockHash(block *Block) (string, error) {
	return repository.ComputeHash(block)
}
