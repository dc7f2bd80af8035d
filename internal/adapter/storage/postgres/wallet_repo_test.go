package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"escrow-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(ownerRef string) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:        uuid.New(),
		OwnerRef:  ownerRef,
		OwnerKind: domain.OwnerKindUser,
		Currency:  "USD",
		Balance:   1000,
		Version:   3,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func walletTestColumns() []string {
	return []string{"id", "owner_ref", "owner_kind", "currency", "balance", "version", "last_transaction_id", "active", "created_at", "updated_at"}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletTestColumns()).AddRow(
		w.ID, w.OwnerRef, w.OwnerKind, w.Currency,
		w.Balance, w.Version, w.LastTransactionID, w.Active,
		w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("user-1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.OwnerRef, w.OwnerKind, w.Currency,
			w.Balance, w.Version, w.LastTransactionID, w.Active,
			w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByOwnerRef(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("user-1")

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_ref").
		WithArgs("user-1").
		WillReturnRows(walletRow(w))

	result, err := repo.GetByOwnerRef(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.Equal(t, int64(1000), result.Balance)
	assert.Equal(t, int64(3), result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByOwnerRef_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_ref").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByOwnerRef(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("user-1")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id .+ FOR UPDATE").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByOwnerRefForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("agency-1")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_ref .+ FOR UPDATE").
		WithArgs("agency-1").
		WillReturnRows(walletRow(w))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByOwnerRefForUpdate(context.Background(), tx, "agency-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "agency-1", result.OwnerRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()
	txID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(int64(1500), int64(4), txID, walletID, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, walletID, 1500, 4, txID, 3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalance_VersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()
	txID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(int64(1500), int64(4), txID, walletID, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, walletID, 1500, 4, txID, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVersionConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Deactivate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()

	mock.ExpectExec("UPDATE wallets SET active").
		WithArgs(walletID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.Deactivate(context.Background(), walletID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Deactivate_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()

	mock.ExpectExec("UPDATE wallets SET active").
		WithArgs(walletID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.Deactivate(context.Background(), walletID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
