package transfer

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/ledgerstore"
	"github.com/nivocore/paycore/internal/money"
	"github.com/nivocore/paycore/internal/txlogstore"
	"github.com/nivocore/paycore/internal/walletstore"
)

// fakeTxRunner runs fn against a nil *sql.Tx, matching TxRunner's
// commit-on-nil-error / return-on-error contract without a real
// database, following the teacher's mock-the-interface testing style.
type fakeTxRunner struct{}

func (fakeTxRunner) TransactionWithOptions(_ context.Context, _ *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

// fakeWalletStore is an in-memory WalletStore.
type fakeWalletStore struct {
	mu      sync.Mutex
	wallets map[string]*walletstore.Wallet

	// UpdateVersionedFunc, when set, overrides UpdateVersioned — used to
	// force a 0-rows-affected race without real concurrency.
	UpdateVersionedFunc func(ctx context.Context, tx *sql.Tx, id string, newBalance money.Money, expectedVersion int64) (int64, *apperr.Error)
}

func newFakeWalletStore(wallets ...*walletstore.Wallet) *fakeWalletStore {
	f := &fakeWalletStore{wallets: make(map[string]*walletstore.Wallet)}
	for _, w := range wallets {
		cp := *w
		f.wallets[w.ID] = &cp
	}
	return f
}

func (f *fakeWalletStore) LockForUpdate(_ context.Context, _ *sql.Tx, id string) (*walletstore.Wallet, *apperr.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[id]
	if !ok {
		return nil, apperr.NotFoundWithID("wallet", id)
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWalletStore) Get(_ context.Context, id string) (*walletstore.Wallet, *apperr.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[id]
	if !ok {
		return nil, apperr.NotFoundWithID("wallet", id)
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWalletStore) UpdateVersioned(ctx context.Context, tx *sql.Tx, id string, newBalance money.Money, expectedVersion int64) (int64, *apperr.Error) {
	if f.UpdateVersionedFunc != nil {
		return f.UpdateVersionedFunc(ctx, tx, id, newBalance, expectedVersion)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[id]
	if !ok {
		return 0, apperr.NotFoundWithID("wallet", id)
	}
	if w.Version != expectedVersion {
		return 0, nil
	}
	w.Balance = newBalance
	w.Version++
	return 1, nil
}

// fakeTxLogStore is an in-memory TransactionLogStore enforcing
// UNIQUE(idempotency_key) the way the real table does.
type fakeTxLogStore struct {
	mu    sync.Mutex
	byKey map[string]*txlogstore.Log
	byID  map[string]*txlogstore.Log

	// InsertFunc and GetByKeyFunc, when set, replace the corresponding
	// method on every call — used to simulate a racing caller completing a
	// transfer between this call's idempotency check and its insert.
	InsertFunc   func(ctx context.Context, f txlogstore.InsertFields) (*txlogstore.Log, *apperr.Error)
	GetByKeyFunc func(ctx context.Context, key string) (*txlogstore.Log, *apperr.Error)
}

func newFakeTxLogStore() *fakeTxLogStore {
	return &fakeTxLogStore{
		byKey: make(map[string]*txlogstore.Log),
		byID:  make(map[string]*txlogstore.Log),
	}
}

func (f *fakeTxLogStore) seed(log *txlogstore.Log) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey[log.IdempotencyKey] = log
	f.byID[log.ID] = log
}

func (f *fakeTxLogStore) Insert(ctx context.Context, fields txlogstore.InsertFields) (*txlogstore.Log, *apperr.Error) {
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, fields)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.byKey[fields.IdempotencyKey]; exists {
		return nil, apperr.Conflict("idempotency key already exists")
	}

	log := &txlogstore.Log{
		ID:             uuid.NewString(),
		IdempotencyKey: fields.IdempotencyKey,
		Type:           fields.Type,
		FromWalletID:   fields.FromWalletID,
		ToWalletID:     fields.ToWalletID,
		Amount:         fields.Amount,
		Currency:       fields.Currency,
		Status:         txlogstore.StatusPending,
		Description:    fields.Description,
		Metadata:       fields.Metadata,
	}
	f.byKey[log.IdempotencyKey] = log
	f.byID[log.ID] = log
	return log, nil
}

func (f *fakeTxLogStore) UpdateStatus(_ context.Context, _ *sql.Tx, id string, status txlogstore.Status, errorMessage *string) *apperr.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	log, ok := f.byID[id]
	if !ok {
		return apperr.NotFound("transaction log not found")
	}
	log.Status = status
	if errorMessage != nil {
		log.ErrorMessage = errorMessage
	}
	return nil
}

func (f *fakeTxLogStore) GetByKey(ctx context.Context, key string) (*txlogstore.Log, *apperr.Error) {
	if f.GetByKeyFunc != nil {
		return f.GetByKeyFunc(ctx, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	log, ok := f.byKey[key]
	if !ok {
		return nil, apperr.NotFound("transaction log not found")
	}
	cp := *log
	return &cp, nil
}

// fakeLedgerStore is an in-memory LedgerStore.
type fakeLedgerStore struct {
	mu      sync.Mutex
	entries []ledgerstore.Entry
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{}
}

func (f *fakeLedgerStore) AppendPair(_ context.Context, _ *sql.Tx, transactionID string, debit, credit ledgerstore.Entry) *apperr.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	debit.TransactionID, credit.TransactionID = transactionID, transactionID
	f.entries = append(f.entries, debit, credit)
	return nil
}

func (f *fakeLedgerStore) ByTransaction(_ context.Context, _ *sql.DB, transactionID string) ([]ledgerstore.Entry, *apperr.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ledgerstore.Entry
	for _, e := range f.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedgerStore) SumForWallet(_ context.Context, _ *sql.DB, walletID string) (money.Money, *apperr.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := money.Zero
	for _, e := range f.entries {
		if e.WalletID != walletID {
			continue
		}
		if e.Type == ledgerstore.EntryCredit {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
	}
	return sum, nil
}

func (f *fakeLedgerStore) CountForTransaction(_ context.Context, _ *sql.DB, transactionID string) (int, *apperr.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.entries {
		if e.TransactionID == transactionID {
			count++
		}
	}
	return count, nil
}
