// Package walletstore implements C2: typed access to the wallets table —
// locked reads and versioned updates — grounded on the teacher's
// services/wallet/internal/repository/wallet_repository.go.
package walletstore

import (
	"context"
	"database/sql"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/money"
)

// Type is the category of value-bearing account a wallet represents.
type Type string

const (
	TypePool     Type = "POOL"
	TypeUser     Type = "USER"
	TypeMerchant Type = "MERCHANT"
)

// Status is the lifecycle state of a wallet.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusClosed    Status = "CLOSED"
)

// Wallet is a value-bearing account, per spec.md §3.
type Wallet struct {
	ID        string
	OwnerID   string
	Type      Type
	Balance   money.Money
	Currency  string
	Status    Status
	Version   int64
	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime
}

// IsActive reports whether the wallet may participate in a transfer.
func (w *Wallet) IsActive() bool {
	return w.Status == StatusActive
}

// Store is the narrow data-access surface the transfer coordinator needs
// against the wallets table. Every method takes an explicit transaction
// handle where the spec requires the call to participate in the caller's
// serializable section.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store bound to a *sql.DB.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LockForUpdate acquires a row-level exclusive lock on the wallet and
// returns its current state. Must be called inside a transaction.
func (s *Store) LockForUpdate(ctx context.Context, tx *sql.Tx, id string) (*Wallet, *apperr.Error) {
	w := &Wallet{}
	err := tx.QueryRowContext(ctx, `
		SELECT id, owner_id, type, balance, currency, status, version, created_at, updated_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&w.ID, &w.OwnerID, &w.Type, &w.Balance, &w.Currency, &w.Status, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFoundWithID("wallet", id)
		}
		return nil, apperr.DatabaseWrap(err, "failed to lock wallet")
	}
	return w, nil
}

// UpdateVersioned applies a balance change with an optimistic-lock
// predicate: the update only takes effect if the stored version still
// matches expectedVersion. Returns the number of rows affected (0 or 1).
func (s *Store) UpdateVersioned(ctx context.Context, tx *sql.Tx, id string, newBalance money.Money, expectedVersion int64) (int64, *apperr.Error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`, newBalance, id, expectedVersion)
	if err != nil {
		return 0, apperr.DatabaseWrap(err, "failed to update wallet balance")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.DatabaseWrap(err, "failed to read rows affected")
	}
	return n, nil
}

// Get retrieves a wallet without locking, for read-only surfaces such as
// the balance-check endpoint, wallet reconciliation, and the interest
// calculator.
func (s *Store) Get(ctx context.Context, id string) (*Wallet, *apperr.Error) {
	w := &Wallet{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, type, balance, currency, status, version, created_at, updated_at
		FROM wallets
		WHERE id = $1
	`, id).Scan(
		&w.ID, &w.OwnerID, &w.Type, &w.Balance, &w.Currency, &w.Status, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFoundWithID("wallet", id)
		}
		return nil, apperr.DatabaseWrap(err, "failed to get wallet")
	}
	return w, nil
}
