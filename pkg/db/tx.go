package db

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TxManager opens the unit of work every ledger and guard operation runs in.
// Callers receive the transaction handle and must pass it to repositories explicitly.
type TxManager struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewTxManager(conn *gorm.DB, cfg Config) *TxManager {
	return &TxManager{db: conn, timeout: cfg.TxTimeout}
}

func (m *TxManager) DB() *gorm.DB {
	return m.db
}

// WithinTx runs fn inside a single transaction. A configured timeout bounds the
// whole unit of work; expiry surfaces as the store's error and nothing commits.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

// ForUpdate adds a row lock on dialects that support it and is a no-op elsewhere.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if !SupportsRowLocks(tx) {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
