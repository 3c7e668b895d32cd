// Package txlogstore implements C3: the durable record of one transfer
// attempt, enforcing UNIQUE(idempotency_key) and the status state machine
// from spec.md §4.1. Grounded on the teacher's transaction service models
// and on the claim/complete/fail pattern in
// other_examples/2cf5b58a_SimonKvalheim-hm9-banking__internal-processor-transfer.go.go.
package txlogstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/dbx"
	"github.com/nivocore/paycore/internal/money"
)

// Type is the kind of ledger movement a log row represents. The core
// only ever inserts TRANSFER; the other values are carried in the model
// so the schema matches spec.md §3 without implying unimplemented paths.
type Type string

const (
	TypeTransfer   Type = "TRANSFER"
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypeRefund     Type = "REFUND"
)

// Status is a TransactionLog's position in the state machine of spec.md §4.1.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusRolledBack Status = "ROLLED_BACK"
)

// Log is the durable record of one transfer attempt, per spec.md §3.
type Log struct {
	ID             string
	IdempotencyKey string
	Type           Type
	FromWalletID   string
	ToWalletID     string
	Amount         money.Money
	Currency       string
	Status         Status
	Description    *string
	ErrorMessage   *string
	Metadata       map[string]string
	CompletedAt    sql.NullTime
	CreatedAt      sql.NullTime
	UpdatedAt      sql.NullTime
}

// InsertFields carries the subset of Log populated at PENDING insertion.
type InsertFields struct {
	IdempotencyKey string
	Type           Type
	FromWalletID   string
	ToWalletID     string
	Amount         money.Money
	Currency       string
	Description    *string
	Metadata       map[string]string
}

// Store is the narrow data-access surface over transaction_logs.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store bound to a *sql.DB.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert creates a PENDING log row. Returns a Conflict *apperr.Error
// (Code CodeConflict) when idempotency_key already exists — callers
// distinguish a fresh duplicate from a stale one by re-reading via
// GetByKey, per spec.md §4.1's durable-intent step.
func (s *Store) Insert(ctx context.Context, f InsertFields) (*Log, *apperr.Error) {
	metadataJSON, err := json.Marshal(f.Metadata)
	if err != nil {
		return nil, apperr.Internal("failed to marshal metadata")
	}

	log := &Log{
		ID:             uuid.NewString(),
		IdempotencyKey: f.IdempotencyKey,
		Type:           f.Type,
		FromWalletID:   f.FromWalletID,
		ToWalletID:     f.ToWalletID,
		Amount:         f.Amount,
		Currency:       f.Currency,
		Status:         StatusPending,
		Description:    f.Description,
		Metadata:       f.Metadata,
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO transaction_logs
			(id, idempotency_key, type, from_wallet_id, to_wallet_id, amount, currency, status, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, log.ID, log.IdempotencyKey, log.Type, log.FromWalletID, log.ToWalletID, log.Amount, log.Currency, log.Status, log.Description, metadataJSON,
	).Scan(&log.CreatedAt, &log.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, apperr.Conflict("idempotency key already exists")
		}
		return nil, apperr.DatabaseWrap(err, "failed to insert transaction log")
	}

	return log, nil
}

// UpdateStatus transitions the log row to a new status. When tx is
// non-nil the update participates in the caller's transaction (used for
// the PENDING->PROCESSING and PROCESSING->COMPLETED transitions inside
// the serializable section); otherwise it runs as a standalone
// best-effort statement (used for the FAILED transition on the error
// path, per spec.md §4.1).
func (s *Store) UpdateStatus(ctx context.Context, tx *sql.Tx, id string, status Status, errorMessage *string) *apperr.Error {
	query := `
		UPDATE transaction_logs
		SET status = $1,
		    error_message = COALESCE($2, error_message),
		    completed_at = CASE WHEN $1 = 'COMPLETED' THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $3
	`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, status, errorMessage, id)
	} else {
		_, err = s.db.ExecContext(ctx, query, status, errorMessage, id)
	}
	if err != nil {
		return apperr.DatabaseWrap(err, "failed to update transaction log status")
	}
	return nil
}

// GetByKey looks up a log row by its idempotency key.
func (s *Store) GetByKey(ctx context.Context, key string) (*Log, *apperr.Error) {
	return s.scanRow(s.db.QueryRowContext(ctx, selectByKeyQuery, key))
}

const selectByKeyQuery = `
	SELECT id, idempotency_key, type, from_wallet_id, to_wallet_id, amount, currency,
	       status, description, error_message, metadata, completed_at, created_at, updated_at
	FROM transaction_logs
	WHERE idempotency_key = $1
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanRow(row rowScanner) (*Log, *apperr.Error) {
	log := &Log{}
	var metadataJSON []byte
	err := row.Scan(
		&log.ID, &log.IdempotencyKey, &log.Type, &log.FromWalletID, &log.ToWalletID, &log.Amount, &log.Currency,
		&log.Status, &log.Description, &log.ErrorMessage, &metadataJSON, &log.CompletedAt, &log.CreatedAt, &log.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("transaction log not found")
		}
		return nil, apperr.DatabaseWrap(err, "failed to get transaction log")
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
			return nil, apperr.Internal("failed to parse transaction log metadata")
		}
	}
	return log, nil
}
