package chain

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/service"
)

// OperationType names an operation on the wire
type OperationType string

const (
	OpCreateGame          OperationType = "create_game"
	OpCancelGame          OperationType = "cancel_game"
	OpUpdateGameMarkets   OperationType = "update_game_markets"
	OpUpdateGameStartTime OperationType = "update_game_start_time"
	OpPostGameResults     OperationType = "post_game_results"
	OpPostBet             OperationType = "post_bet"
	OpCancelPendingBets   OperationType = "cancel_pending_bets"
)

// Operation is one signed action carried by a block. Payload holds a pointer
// to the service request matching Type.
//
// On the wire an operation is the request object with an extra "type" field:
//
//	{"type": "post_bet", "better": "alice", "game_uuid": "...", ...}
type Operation struct {
	Type    OperationType
	Payload any
}

// NewOperation wraps a service request
func NewOperation(payload any) (Operation, error) {
	var t OperationType
	switch payload.(type) {
	case *service.CreateGameRequest:
		t = OpCreateGame
	case *service.CancelGameRequest:
		t = OpCancelGame
	case *service.UpdateGameMarketsRequest:
		t = OpUpdateGameMarkets
	case *service.UpdateGameStartTimeRequest:
		t = OpUpdateGameStartTime
	case *service.PostGameResultsRequest:
		t = OpPostGameResults
	case *service.PostBetRequest:
		t = OpPostBet
	case *service.CancelPendingBetsRequest:
		t = OpCancelPendingBets
	default:
		return Operation{}, fmt.Errorf("%w: %T", models.ErrUnknownOperation, payload)
	}
	return Operation{Type: t, Payload: payload}, nil
}

func newPayload(t OperationType) (any, error) {
	switch t {
	case OpCreateGame:
		return &service.CreateGameRequest{}, nil
	case OpCancelGame:
		return &service.CancelGameRequest{}, nil
	case OpUpdateGameMarkets:
		return &service.UpdateGameMarketsRequest{}, nil
	case OpUpdateGameStartTime:
		return &service.UpdateGameStartTimeRequest{}, nil
	case OpPostGameResults:
		return &service.PostGameResultsRequest{}, nil
	case OpPostBet:
		return &service.PostBetRequest{}, nil
	case OpCancelPendingBets:
		return &service.CancelPendingBetsRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownOperation, t)
	}
}

// MarshalJSON flattens the payload fields next to "type". Keys come out
// sorted, so an operation always encodes to the same bytes.
func (op Operation) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(op.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s operation: %w", op.Type, err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s operation: %w", op.Type, err)
	}
	fields["type"], err = json.Marshal(op.Type)
	if err != nil {
		return nil, err
	}

	return json.Marshal(fields)
}

func (op *Operation) UnmarshalJSON(data []byte) error {
	var head struct {
		Type OperationType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode operation: %w", err)
	}

	payload, err := newPayload(head.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("decode %s operation: %w", head.Type, err)
	}

	op.Type = head.Type
	op.Payload = payload
	return nil
}

func (op *Operation) UnmarshalYAML(value *yaml.Node) error {
	var head struct {
		Type OperationType `yaml:"type"`
	}
	if err := value.Decode(&head); err != nil {
		return fmt.Errorf("decode operation: %w", err)
	}

	payload, err := newPayload(head.Type)
	if err != nil {
		return err
	}
	if err := value.Decode(payload); err != nil {
		return fmt.Errorf("decode %s operation: %w", head.Type, err)
	}

	op.Type = head.Type
	op.Payload = payload
	return nil
}

// apply evaluates the operation at the block time now
func (op Operation) apply(svc service.OperationService, now time.Time) error {
	switch req := op.Payload.(type) {
	case *service.CreateGameRequest:
		return svc.CreateGame(now, req)
	case *service.CancelGameRequest:
		return svc.CancelGame(now, req)
	case *service.UpdateGameMarketsRequest:
		return svc.UpdateGameMarkets(now, req)
	case *service.UpdateGameStartTimeRequest:
		return svc.UpdateGameStartTime(now, req)
	case *service.PostGameResultsRequest:
		return svc.PostGameResults(now, req)
	case *service.PostBetRequest:
		return svc.PostBet(now, req)
	case *service.CancelPendingBetsRequest:
		return svc.CancelPendingBets(now, req)
	default:
		return fmt.Errorf("%w: %T", models.ErrUnknownOperation, op.Payload)
	}
}

// Block is an ordered batch of operations sharing one timestamp
type Block struct {
	Height     int64       `json:"height" yaml:"height"`
	Timestamp  time.Time   `json:"timestamp" yaml:"timestamp"`
	Operations []Operation `json:"operations" yaml:"operations"`
}
