package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherlabdev/betting-node/internal/models"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mockPool.ExpectationsWereMet())
		mockPool.Close()
	})
	return mockPool
}

func TestCheckpointRepository_Check(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(mock pgxmock.PgxPoolIface)
		wantExists bool
		wantErr    error
	}{
		{
			name: "not applied",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT block_hash")).
					WithArgs(int64(5)).
					WillReturnError(pgx.ErrNoRows)
			},
		},
		{
			name: "same block",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT block_hash")).
					WithArgs(int64(5)).
					WillReturnRows(pgxmock.NewRows([]string{"block_hash"}).AddRow("abc"))
			},
			wantExists: true,
		},
		{
			name: "different block",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT block_hash")).
					WithArgs(int64(5)).
					WillReturnRows(pgxmock.NewRows([]string{"block_hash"}).AddRow("def"))
			},
			wantExists: true,
			wantErr:    models.ErrBlockHashMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPool := newMockPool(t)
			tt.setup(mockPool)
			repo := NewPostgresCheckpointRepository(mockPool, zerolog.Nop())

			exists, err := repo.Check(context.Background(), 5, "abc")

			assert.Equal(t, tt.wantExists, exists)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckpointRepository_SaveInTransaction(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewPostgresCheckpointRepository(mockPool, zerolog.Nop())
	ctx := context.Background()
	createdAt := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO block_checkpoints")).
		WithArgs(int64(5), "abc", []byte(`{"head":{}}`), createdAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mockPool.Begin(ctx)
	require.NoError(t, err)

	err = repo.SaveInTransaction(ctx, tx, &models.Checkpoint{
		Height:    5,
		BlockHash: "abc",
		State:     json.RawMessage(`{"head":{}}`),
		CreatedAt: createdAt,
	})

	assert.NoError(t, err)
}

func TestCheckpointRepository_Latest(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewPostgresCheckpointRepository(mockPool, zerolog.Nop())
	createdAt := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(regexp.QuoteMeta("ORDER BY height DESC")).
		WillReturnRows(pgxmock.NewRows([]string{"height", "block_hash", "state", "created_at"}).
			AddRow(int64(9), "abc", []byte(`{"head":{"height":9}}`), createdAt))

	checkpoint, err := repo.Latest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(9), checkpoint.Height)
	assert.Equal(t, "abc", checkpoint.BlockHash)
	assert.JSONEq(t, `{"head":{"height":9}}`, string(checkpoint.State))
	assert.Equal(t, createdAt, checkpoint.CreatedAt)
}

func TestCheckpointRepository_Latest_Empty(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewPostgresCheckpointRepository(mockPool, zerolog.Nop())

	mockPool.ExpectQuery(regexp.QuoteMeta("ORDER BY height DESC")).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Latest(context.Background())

	assert.ErrorIs(t, err, models.ErrCheckpointNotFound)
}

func TestCheckpointRepository_Prune(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewPostgresCheckpointRepository(mockPool, zerolog.Nop())

	mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM block_checkpoints")).
		WithArgs(int64(100)).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	deleted, err := repo.Prune(context.Background(), 100)

	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
}

func TestOutboxRepository_Create(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewPostgresOutboxRepository(mockPool, zerolog.Nop())
	ctx := context.Background()
	gameUUID := uuid.New()

	event, err := models.NewOutboxEvent(3, 1, models.GameStatusChangedEvent{
		GameUUID:  gameUUID,
		OldStatus: models.GameStatusCreated,
		NewStatus: models.GameStatusStarted,
	})
	require.NoError(t, err)

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
		WithArgs(
			event.ID,
			gameUUID,
			event.AggregateType,
			models.EventTypeGameStatusChanged,
			[]byte(event.EventPayload),
			int64(3),
			1,
			pgxmock.AnyArg(),
			0,
			event.MaxRetries,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mockPool.Begin(ctx)
	require.NoError(t, err)

	assert.NoError(t, repo.Create(ctx, tx, event))
	assert.False(t, event.CreatedAt.IsZero())
}

func TestOutboxRepository_MarkProcessed(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewPostgresOutboxRepository(mockPool, zerolog.Nop())
	found, missing := uuid.New(), uuid.New()

	mockPool.ExpectExec(regexp.QuoteMeta("SET processed_at = NOW()")).
		WithArgs(found).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(regexp.QuoteMeta("SET processed_at = NOW()")).
		WithArgs(missing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.MarkProcessed(context.Background(), found))
	assert.ErrorContains(t, repo.MarkProcessed(context.Background(), missing), "event not found")
}

func TestOutboxRepository_IncrementRetryCount(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewPostgresOutboxRepository(mockPool, zerolog.Nop())
	eventID := uuid.New()

	mockPool.ExpectExec(regexp.QuoteMeta("SET retry_count = retry_count + 1")).
		WithArgs(eventID, "broker down").
		WillReturnError(errors.New("connection reset"))

	err := repo.IncrementRetryCount(context.Background(), eventID, "broker down")

	assert.ErrorContains(t, err, "increment retry count")
}

func TestOutboxRepository_CleanupProcessedEvents(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewPostgresOutboxRepository(mockPool, zerolog.Nop())

	mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM outbox_events")).
		WithArgs("168h0m0s").
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	deleted, err := repo.CleanupProcessedEvents(context.Background(), 7*24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
}
