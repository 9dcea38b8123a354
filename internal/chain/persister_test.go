package chain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cypherlabdev/betting-node/internal/mocks"
	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/observability"
)

// testPersisterSetup is a helper struct to hold test dependencies
type testPersisterSetup struct {
	persister       *PostgresPersister
	mockCheckpoints *mocks.MockCheckpointRepository
	mockOutbox      *mocks.MockOutboxRepository
	mockPool        pgxmock.PgxPoolIface
	ctrl            *gomock.Controller
}

func setupTestPersister(t *testing.T) *testPersisterSetup {
	ctrl := gomock.NewController(t)

	mockCheckpoints := mocks.NewMockCheckpointRepository(ctrl)
	mockOutbox := mocks.NewMockOutboxRepository(ctrl)

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)

	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	return &testPersisterSetup{
		persister:       NewPostgresPersister(mockPool, mockCheckpoints, mockOutbox, metrics, zerolog.Nop()),
		mockCheckpoints: mockCheckpoints,
		mockOutbox:      mockOutbox,
		mockPool:        mockPool,
		ctrl:            ctrl,
	}
}

func (s *testPersisterSetup) cleanup() {
	s.ctrl.Finish()
	s.mockPool.Close()
}

func testAppliedBlock() *AppliedBlock {
	gameUUID := uuid.New()
	return &AppliedBlock{
		Height:    7,
		Hash:      "abc123",
		Timestamp: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		Events: []models.Event{
			models.GameStatusChangedEvent{GameUUID: gameUUID, OldStatus: models.GameStatusCreated, NewStatus: models.GameStatusStarted},
			models.BetCancelledEvent{GameUUID: gameUUID, BetUUID: uuid.New(), Better: "alice", Stake: 100, Kind: models.CancelPending},
		},
		State: json.RawMessage(`{"head":{"height":7}}`),
	}
}

func TestPostgresPersister_PersistBlock_Success(t *testing.T) {
	setup := setupTestPersister(t)
	defer setup.cleanup()

	ctx := context.Background()
	block := testAppliedBlock()

	setup.mockCheckpoints.EXPECT().
		Check(gomock.Any(), int64(7), "abc123").
		Return(false, nil)

	setup.mockPool.ExpectBegin()

	setup.mockCheckpoints.EXPECT().
		SaveInTransaction(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ any, checkpoint *models.Checkpoint) error {
			assert.Equal(t, int64(7), checkpoint.Height)
			assert.Equal(t, "abc123", checkpoint.BlockHash)
			assert.JSONEq(t, `{"head":{"height":7}}`, string(checkpoint.State))
			return nil
		})

	var created []*models.OutboxEvent
	setup.mockOutbox.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ any, event *models.OutboxEvent) error {
			created = append(created, event)
			return nil
		}).
		Times(2)

	setup.mockPool.ExpectCommit()

	err := setup.persister.PersistBlock(ctx, block)
	require.NoError(t, err)

	require.Len(t, created, 2)
	for i, event := range created {
		assert.Equal(t, int64(7), event.BlockHeight)
		assert.Equal(t, i, event.Sequence)
		assert.Equal(t, block.Events[i].EventType(), event.EventType)
		assert.Equal(t, block.Events[i].GameID(), event.AggregateID)
		assert.Equal(t, block.Timestamp, event.CreatedAt)
	}
	assert.NotEqual(t, created[0].ID, created[1].ID)

	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestPostgresPersister_PersistBlock_AlreadyPersisted(t *testing.T) {
	setup := setupTestPersister(t)
	defer setup.cleanup()

	setup.mockCheckpoints.EXPECT().
		Check(gomock.Any(), int64(7), "abc123").
		Return(true, nil)

	err := setup.persister.PersistBlock(context.Background(), testAppliedBlock())

	assert.NoError(t, err)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestPostgresPersister_PersistBlock_HashMismatch(t *testing.T) {
	setup := setupTestPersister(t)
	defer setup.cleanup()

	setup.mockCheckpoints.EXPECT().
		Check(gomock.Any(), int64(7), "abc123").
		Return(true, models.ErrBlockHashMismatch)

	err := setup.persister.PersistBlock(context.Background(), testAppliedBlock())

	assert.ErrorIs(t, err, models.ErrBlockHashMismatch)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestPostgresPersister_PersistBlock_OutboxFailureRollsBack(t *testing.T) {
	setup := setupTestPersister(t)
	defer setup.cleanup()

	outboxErr := errors.New("connection reset")

	setup.mockCheckpoints.EXPECT().
		Check(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(false, nil)
	setup.mockPool.ExpectBegin()
	setup.mockCheckpoints.EXPECT().
		SaveInTransaction(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	setup.mockOutbox.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(outboxErr)
	setup.mockPool.ExpectRollback()

	err := setup.persister.PersistBlock(context.Background(), testAppliedBlock())

	assert.ErrorIs(t, err, outboxErr)
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestPostgresPersister_PersistBlock_BeginFailure(t *testing.T) {
	setup := setupTestPersister(t)
	defer setup.cleanup()

	setup.mockCheckpoints.EXPECT().
		Check(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(false, nil)
	setup.mockPool.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := setup.persister.PersistBlock(context.Background(), testAppliedBlock())

	assert.ErrorContains(t, err, "failed to start transaction")
	assert.NoError(t, setup.mockPool.ExpectationsWereMet())
}

func TestPostgresPersister_RunPruner(t *testing.T) {
	setup := setupTestPersister(t)
	defer setup.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	setup.mockCheckpoints.EXPECT().
		Prune(gomock.Any(), int64(50)).
		DoAndReturn(func(context.Context, int64) (int64, error) {
			cancel()
			return 3, nil
		}).
		MinTimes(1)

	done := make(chan struct{})
	go func() {
		setup.persister.RunPruner(ctx, time.Millisecond, 50)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pruner did not stop")
	}
}
