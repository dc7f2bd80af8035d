package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// The in-memory repos emulate the storage layer closely enough to exercise
// the full stack: the transactor serializes "transactions" behind one mutex
// (standing in for SELECT FOR UPDATE row locks), wallet updates check the
// optimistic version, ledger entries enforce the unique
// (wallet_id, idempotency_key) index, and hold status flips only out of HELD.

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.ID] = *w
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *inMemoryWalletRepo) GetByOwnerRef(ctx context.Context, ownerRef string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerRef == ownerRef {
			w := w
			return &w, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) GetByOwnerRefForUpdate(ctx context.Context, tx pgx.Tx, ownerRef string) (*domain.Wallet, error) {
	return r.GetByOwnerRef(ctx, ownerRef)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance, newVersion int64, lastTxID uuid.UUID, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok || w.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	w.Balance = balance
	w.Version = newVersion
	w.LastTransactionID = &lastTxID
	w.UpdatedAt = time.Now().UTC()
	r.wallets[walletID] = w
	return nil
}

func (r *inMemoryWalletRepo) Deactivate(ctx context.Context, walletID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	w.Active = false
	r.wallets[walletID] = w
	return nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu      sync.RWMutex
	entries []domain.WalletTransaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.WalletID == t.WalletID && e.IdempotencyKey == t.IdempotencyKey {
			return fmt.Errorf("duplicate key value violates unique constraint")
		}
	}
	r.entries = append(r.entries, *t)
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) GetByWalletAndKey(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, idempotencyKey string) (*domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.WalletID == walletID && e.IdempotencyKey == idempotencyKey {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.WalletTransaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WalletTransaction
	for _, e := range r.entries {
		if e.WalletID != params.WalletID {
			continue
		}
		if params.Kind != nil && e.Kind != *params.Kind {
			continue
		}
		if params.From != nil && e.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && e.CreatedAt.Unix() > *params.To {
			continue
		}
		result = append(result, e)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.WalletTransaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Hold Repo ---

type inMemoryHoldRepo struct {
	mu    sync.RWMutex
	holds map[uuid.UUID]domain.EscrowHold
}

func newInMemoryHoldRepo() *inMemoryHoldRepo {
	return &inMemoryHoldRepo{holds: make(map[uuid.UUID]domain.EscrowHold)}
}

func (r *inMemoryHoldRepo) Create(ctx context.Context, tx pgx.Tx, h *domain.EscrowHold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.holds {
		if existing.ContractRef == h.ContractRef {
			return fmt.Errorf("duplicate key value violates unique constraint")
		}
	}
	r.holds[h.ID] = *h
	return nil
}

func (r *inMemoryHoldRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.holds[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r *inMemoryHoldRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.EscrowHold, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryHoldRepo) GetByContractRef(ctx context.Context, contractRef string) (*domain.EscrowHold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.holds {
		if h.ContractRef == contractRef {
			h := h
			return &h, nil
		}
	}
	return nil, nil
}

func (r *inMemoryHoldRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.EscrowHold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var holds []domain.EscrowHold
	for _, h := range r.holds {
		if h.PayerWalletID == walletID || h.PayeeWalletID == walletID {
			holds = append(holds, h)
		}
	}
	return holds, nil
}

func (r *inMemoryHoldRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.HoldStatus, resolvedAt time.Time, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holds[id]
	if !ok || h.Status != domain.HoldStatusHeld {
		return domain.ErrNotHeld
	}
	h.Status = status
	h.ResolvedAt = &resolvedAt
	h.ResolutionReason = reason
	r.holds[id] = h
	return nil
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu   sync.RWMutex
	logs map[string]domain.IdempotencyLog
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{logs: make(map[string]domain.IdempotencyLog)}
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[log.Key] = *log
	return nil
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// --- In-Memory Revocation Repo ---

type inMemoryRevocationRepo struct {
	mu   sync.RWMutex
	revs map[uuid.UUID]domain.AccessRevocation
}

func newInMemoryRevocationRepo() *inMemoryRevocationRepo {
	return &inMemoryRevocationRepo{revs: make(map[uuid.UUID]domain.AccessRevocation)}
}

func (r *inMemoryRevocationRepo) Create(ctx context.Context, rev *domain.AccessRevocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revs[rev.ID] = *rev
	return nil
}

func (r *inMemoryRevocationRepo) Update(ctx context.Context, rev *domain.AccessRevocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.revs[rev.ID]; !ok {
		return fmt.Errorf("revocation not found: %s", rev.ID)
	}
	r.revs[rev.ID] = *rev
	return nil
}

func (r *inMemoryRevocationRepo) ListPending(ctx context.Context, dueBefore time.Time, limit int) ([]domain.AccessRevocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var revs []domain.AccessRevocation
	for _, rev := range r.revs {
		if rev.Status != domain.RevocationStatusPending {
			continue
		}
		if rev.NextRetryAt != nil && rev.NextRetryAt.After(dueBefore) {
			continue
		}
		revs = append(revs, rev)
		if len(revs) == limit {
			break
		}
	}
	return revs, nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes transactions behind one mutex, standing in
// for the per-row locks the real storage takes with SELECT FOR UPDATE.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	tx := &lockingTx{}
	tx.release = func() { t.mu.Unlock() }
	return tx, nil
}

// lockingTx holds the transactor lock until Commit or Rollback, whichever
// comes first.
type lockingTx struct {
	noopTx
	once    sync.Once
	release func()
}

func (t *lockingTx) Commit(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

func (t *lockingTx) Rollback(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
