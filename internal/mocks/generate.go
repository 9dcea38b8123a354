package mocks

//go:generate mockgen -destination=mock_repository.go -package=mocks github.com/cypherlabdev/betting-node/internal/repository OutboxRepository,CheckpointRepository
//go:generate mockgen -destination=mock_matchingengine.go -package=mocks github.com/cypherlabdev/betting-node/pkg/matchingengine BetCanceller,EventSink
