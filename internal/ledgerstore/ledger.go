// Package ledgerstore implements C4: append-only double-entry ledger
// rows, grounded on the teacher's services/ledger/internal/models
// (Account, JournalEntry/LedgerLine) generalized down to the simple
// debit/credit pair spec.md §3 calls for.
package ledgerstore

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/money"
)

// EntryType is one side of a double-entry pair.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// Entry is one half of a double-entry pair, per spec.md §3.
type Entry struct {
	ID            string
	TransactionID string
	WalletID      string
	Type          EntryType
	Amount        money.Money
	Currency      string
	BalanceAfter  money.Money
	Description   *string
	CreatedAt     sql.NullTime
	UpdatedAt     sql.NullTime
}

// Store is the narrow data-access surface over ledger_entries.
type Store struct{}

// NewStore creates a Store. It carries no state of its own: every method
// takes the caller's transaction handle, since ledger rows are only ever
// written inside the transfer coordinator's serializable section.
func NewStore() *Store {
	return &Store{}
}

// AppendPair inserts the debit and credit halves of one transfer inside
// the caller's transaction, after verifying they actually balance — a
// programming-error guard per spec.md §4.5, not a business rule a caller
// should ever be able to trigger.
func (s *Store) AppendPair(ctx context.Context, tx *sql.Tx, transactionID string, debit, credit Entry) *apperr.Error {
	if err := s.validatePair(transactionID, debit, credit); err != nil {
		return err
	}

	for _, e := range []Entry{debit, credit} {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries
				(id, transaction_id, wallet_id, type, amount, currency, balance_after, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, id, transactionID, e.WalletID, e.Type, e.Amount, e.Currency, e.BalanceAfter, e.Description)
		if err != nil {
			return apperr.DatabaseWrap(err, "failed to append ledger entry")
		}
	}

	return nil
}

// validatePair enforces the invariant in spec.md §3: equal amount, equal
// currency, opposite sides, same transaction_id.
func (s *Store) validatePair(transactionID string, debit, credit Entry) *apperr.Error {
	if debit.Type != EntryDebit || credit.Type != EntryCredit {
		return apperr.Internal("ledger pair must be one debit and one credit")
	}
	if !debit.Amount.Equal(credit.Amount) {
		return apperr.Internal("ledger pair amounts do not match")
	}
	if debit.Currency != credit.Currency {
		return apperr.Internal("ledger pair currencies do not match")
	}
	if debit.TransactionID != transactionID || credit.TransactionID != transactionID {
		return apperr.Internal("ledger pair transaction ids do not match")
	}
	if debit.Amount.IsZero() || debit.Amount.IsNegative() {
		return apperr.Internal("ledger entry amount must be positive")
	}
	return nil
}

// SumForWallet computes Σ(credits) − Σ(debits) for a wallet across
// COMPLETED transactions only — the quantity spec.md §8 property 2
// ("balanced ledger at rest") asserts equals the wallet's balance.
func (s *Store) SumForWallet(ctx context.Context, db *sql.DB, walletID string) (money.Money, *apperr.Error) {
	var creditTotal, debitTotal money.Money
	err := db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN le.type = 'CREDIT' THEN le.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN le.type = 'DEBIT' THEN le.amount ELSE 0 END), 0)
		FROM ledger_entries le
		JOIN transaction_logs tl ON tl.id = le.transaction_id
		WHERE le.wallet_id = $1 AND tl.status = 'COMPLETED'
	`, walletID).Scan(&creditTotal, &debitTotal)
	if err != nil {
		return money.Zero, apperr.DatabaseWrap(err, "failed to sum ledger entries")
	}
	return creditTotal.Sub(debitTotal), nil
}

// ByTransaction returns the ledger rows for a transaction id, used to
// reconstruct an idempotent-replay Result when the cached JSON has
// expired but the underlying transfer already completed.
func (s *Store) ByTransaction(ctx context.Context, db *sql.DB, transactionID string) ([]Entry, *apperr.Error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, transaction_id, wallet_id, type, amount, currency, balance_after, description, created_at, updated_at
		FROM ledger_entries
		WHERE transaction_id = $1
	`, transactionID)
	if err != nil {
		return nil, apperr.DatabaseWrap(err, "failed to list ledger entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.WalletID, &e.Type, &e.Amount, &e.Currency, &e.BalanceAfter, &e.Description, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, apperr.DatabaseWrap(err, "failed to scan ledger entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.DatabaseWrap(err, "failed to iterate ledger entries")
	}
	return entries, nil
}

// CountForTransaction returns the number of ledger rows for a
// transaction id — spec.md §8 property 5 expects exactly two for any
// COMPLETED transfer.
func (s *Store) CountForTransaction(ctx context.Context, db *sql.DB, transactionID string) (int, *apperr.Error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE transaction_id = $1`, transactionID).Scan(&count)
	if err != nil {
		return 0, apperr.DatabaseWrap(err, "failed to count ledger entries")
	}
	return count, nil
}
