package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor over the connection pool. Every
// money movement (top-up, hold, settlement, adjustment) runs inside one of
// these transactions so the row locks and the version check the wallet repo
// relies on actually hold.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a read-write transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
