package postgres

import (
	"context"
	"testing"
	"time"

	"escrow-settlement-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	log := &domain.IdempotencyLog{
		Key:          "create_hold:key-1",
		Operation:    domain.OpCreateHold,
		ResponseJSON: []byte(`{"id":"abc"}`),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_logs").
		WithArgs(log.Key, log.Operation, log.ResponseJSON, log.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, log)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	rows := pgxmock.NewRows([]string{"key", "operation", "response_json", "created_at"}).
		AddRow("resolve_hold:key-1", domain.OpResolveHold, []byte(`{"status":"RELEASED"}`), createdAt)

	mock.ExpectQuery("SELECT .+ FROM idempotency_logs WHERE key").
		WithArgs("resolve_hold:key-1").
		WillReturnRows(rows)

	log, err := repo.Get(context.Background(), "resolve_hold:key-1")
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, domain.OpResolveHold, log.Operation)
	assert.Equal(t, []byte(`{"status":"RELEASED"}`), log.ResponseJSON)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM idempotency_logs WHERE key").
		WithArgs("top_up:unseen").
		WillReturnError(pgx.ErrNoRows)

	log, err := repo.Get(context.Background(), "top_up:unseen")
	require.NoError(t, err)
	assert.Nil(t, log)
	assert.NoError(t, mock.ExpectationsWereMet())
}
