package transfer

import (
	"context"
	"database/sql"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/ledgerstore"
	"github.com/nivocore/paycore/internal/money"
	"github.com/nivocore/paycore/internal/txlogstore"
	"github.com/nivocore/paycore/internal/walletstore"
)

// WalletStore is the narrow wallet data-access surface the coordinator
// needs. *walletstore.Store satisfies it; tests substitute an in-memory
// fake, following the teacher's mock-the-repository-interface style.
type WalletStore interface {
	LockForUpdate(ctx context.Context, tx *sql.Tx, id string) (*walletstore.Wallet, *apperr.Error)
	UpdateVersioned(ctx context.Context, tx *sql.Tx, id string, newBalance money.Money, expectedVersion int64) (int64, *apperr.Error)
	Get(ctx context.Context, id string) (*walletstore.Wallet, *apperr.Error)
}

// TransactionLogStore is the narrow transaction-log surface the
// coordinator needs. *txlogstore.Store satisfies it.
type TransactionLogStore interface {
	Insert(ctx context.Context, f txlogstore.InsertFields) (*txlogstore.Log, *apperr.Error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id string, status txlogstore.Status, errorMessage *string) *apperr.Error
	GetByKey(ctx context.Context, key string) (*txlogstore.Log, *apperr.Error)
}

// LedgerStore is the narrow ledger surface the coordinator needs.
// *ledgerstore.Store satisfies it.
type LedgerStore interface {
	AppendPair(ctx context.Context, tx *sql.Tx, transactionID string, debit, credit ledgerstore.Entry) *apperr.Error
	ByTransaction(ctx context.Context, db *sql.DB, transactionID string) ([]ledgerstore.Entry, *apperr.Error)
	SumForWallet(ctx context.Context, db *sql.DB, walletID string) (money.Money, *apperr.Error)
	CountForTransaction(ctx context.Context, db *sql.DB, transactionID string) (int, *apperr.Error)
}

// TxRunner runs fn inside a database transaction. *dbx.DB satisfies it;
// tests substitute a fake that invokes fn with a nil *sql.Tx, since the
// fake stores above ignore the handle entirely.
type TxRunner interface {
	TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error
}
