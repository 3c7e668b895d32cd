package transfer

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/ledgerstore"
	"github.com/nivocore/paycore/internal/leasecache"
	"github.com/nivocore/paycore/internal/logging"
	"github.com/nivocore/paycore/internal/money"
	"github.com/nivocore/paycore/internal/txlogstore"
	"github.com/nivocore/paycore/internal/walletstore"
)

func testWallet(id string, balance string) *walletstore.Wallet {
	return &walletstore.Wallet{
		ID:       id,
		OwnerID:  "owner-" + id,
		Type:     walletstore.TypeUser,
		Balance:  money.MustParse(balance),
		Currency: "NGN",
		Status:   walletstore.StatusActive,
		Version:  0,
	}
}

func testConfig() Config {
	return Config{
		IdempotencyTTL:    24 * time.Hour,
		LeaseTTL:          30 * time.Second,
		MaxTransferAmount: money.MustParse("1000000000.00"),
		DefaultCurrency:   "NGN",
	}
}

func newTestCoordinator(wallets *fakeWalletStore, txlog *fakeTxLogStore, ledger *fakeLedgerStore, cache leasecache.Cache) *Coordinator {
	return &Coordinator{
		txRunner: fakeTxRunner{},
		rawDB:    nil,
		wallets:  wallets,
		txlog:    txlog,
		ledger:   ledger,
		cache:    cache,
		logger:   logging.New(logging.Config{Level: "error", Format: "console", ServiceName: "transfer-test"}),
		cfg:      testConfig(),
	}
}

func TestTransfer_HappyPath(t *testing.T) {
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), testWallet("w2", "500.00"))
	txlog := newFakeTxLogStore()
	ledger := newFakeLedgerStore()
	cache := leasecache.NewFakeCache()
	c := newTestCoordinator(wallets, txlog, ledger, cache)

	res, aerr := c.Transfer(context.Background(), Request{
		IdempotencyKey: "tx-1",
		From:           "w1",
		To:             "w2",
		Amount:         "100.00",
	})
	require.Nil(t, aerr)
	assert.Equal(t, "COMPLETED", res.Status)
	assert.Equal(t, "900.00", res.From.NewBalance.String())
	assert.Equal(t, "600.00", res.To.NewBalance.String())
	assert.Equal(t, "NGN", res.Currency)

	entries, eerr := ledger.ByTransaction(context.Background(), nil, res.TransactionID)
	require.Nil(t, eerr)
	assert.Len(t, entries, 2)
}

func TestTransfer_IdempotentReplay_CacheHit(t *testing.T) {
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), testWallet("w2", "500.00"))
	txlog := newFakeTxLogStore()
	ledger := newFakeLedgerStore()
	cache := leasecache.NewFakeCache()
	c := newTestCoordinator(wallets, txlog, ledger, cache)

	req := Request{IdempotencyKey: "tx-replay", From: "w1", To: "w2", Amount: "50.00"}

	first, aerr := c.Transfer(context.Background(), req)
	require.Nil(t, aerr)

	second, aerr := c.Transfer(context.Background(), req)
	require.Nil(t, aerr)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, first.From.NewBalance.String(), second.From.NewBalance.String())

	w1, _ := wallets.LockForUpdate(context.Background(), nil, "w1")
	assert.Equal(t, "950.00", w1.Balance.String(), "replay must not re-apply the movement")
}

func TestTransfer_IdempotentReplay_DBFallback(t *testing.T) {
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), testWallet("w2", "500.00"))
	txlog := newFakeTxLogStore()
	ledger := newFakeLedgerStore()

	c1 := newTestCoordinator(wallets, txlog, ledger, leasecache.NewFakeCache())
	req := Request{IdempotencyKey: "tx-fallback", From: "w1", To: "w2", Amount: "25.00"}

	first, aerr := c1.Transfer(context.Background(), req)
	require.Nil(t, aerr)

	// A second coordinator with a cold cache, sharing the same durable
	// stores, simulates a process restart or cache eviction.
	c2 := newTestCoordinator(wallets, txlog, ledger, leasecache.NewFakeCache())
	second, aerr := c2.Transfer(context.Background(), req)
	require.Nil(t, aerr)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, first.From.NewBalance.String(), second.From.NewBalance.String())
	assert.Equal(t, first.To.NewBalance.String(), second.To.NewBalance.String())
}

func TestTransfer_ValidationErrors(t *testing.T) {
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), testWallet("w2", "500.00"))
	c := newTestCoordinator(wallets, newFakeTxLogStore(), newFakeLedgerStore(), leasecache.NewFakeCache())

	cases := []struct {
		name string
		req  Request
	}{
		{"same wallet", Request{IdempotencyKey: "k", From: "w1", To: "w1", Amount: "1.00"}},
		{"empty key", Request{IdempotencyKey: "", From: "w1", To: "w2", Amount: "1.00"}},
		{"bad key charset", Request{IdempotencyKey: "has a space", From: "w1", To: "w2", Amount: "1.00"}},
		{"malformed amount", Request{IdempotencyKey: "k2", From: "w1", To: "w2", Amount: "abc"}},
		{"too many decimals", Request{IdempotencyKey: "k3", From: "w1", To: "w2", Amount: "1.005"}},
		{"zero amount", Request{IdempotencyKey: "k4", From: "w1", To: "w2", Amount: "0.00"}},
		{"negative amount", Request{IdempotencyKey: "k5", From: "w1", To: "w2", Amount: "-1.00"}},
		{"amount exceeds max", Request{IdempotencyKey: "k6", From: "w1", To: "w2", Amount: "9999999999.00"}},
		{"bad currency", Request{IdempotencyKey: "k7", From: "w1", To: "w2", Amount: "1.00", Currency: "ngn"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, aerr := c.Transfer(context.Background(), tc.req)
			require.NotNil(t, aerr)
			assert.Equal(t, apperr.CodeInvalidRequest, aerr.Code)
		})
	}
}

func TestTransfer_InactiveWallet(t *testing.T) {
	dest := testWallet("w2", "500.00")
	dest.Status = walletstore.StatusSuspended
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), dest)
	c := newTestCoordinator(wallets, newFakeTxLogStore(), newFakeLedgerStore(), leasecache.NewFakeCache())

	_, aerr := c.Transfer(context.Background(), Request{IdempotencyKey: "k", From: "w1", To: "w2", Amount: "10.00"})
	require.NotNil(t, aerr)
	assert.Equal(t, apperr.CodeInactiveWallet, aerr.Code)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	wallets := newFakeWalletStore(testWallet("w1", "10.00"), testWallet("w2", "500.00"))
	c := newTestCoordinator(wallets, newFakeTxLogStore(), newFakeLedgerStore(), leasecache.NewFakeCache())

	_, aerr := c.Transfer(context.Background(), Request{IdempotencyKey: "k", From: "w1", To: "w2", Amount: "100.00"})
	require.NotNil(t, aerr)
	assert.Equal(t, apperr.CodeInsufficientFunds, aerr.Code)
	assert.Equal(t, "10.00", aerr.Details["available"])
	assert.Equal(t, "100.00", aerr.Details["required"])
}

func TestTransfer_CurrencyMismatch(t *testing.T) {
	dest := testWallet("w2", "500.00")
	dest.Currency = "USD"
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), dest)
	c := newTestCoordinator(wallets, newFakeTxLogStore(), newFakeLedgerStore(), leasecache.NewFakeCache())

	_, aerr := c.Transfer(context.Background(), Request{IdempotencyKey: "k", From: "w1", To: "w2", Amount: "10.00", Currency: "NGN"})
	require.NotNil(t, aerr)
	assert.Equal(t, apperr.CodeInvalidRequest, aerr.Code)
}

func TestTransfer_VersionConflict(t *testing.T) {
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), testWallet("w2", "500.00"))
	// Simulate a concurrent modification landing between this call's lock
	// and its update: the optimistic-lock predicate matches zero rows.
	wallets.UpdateVersionedFunc = func(_ context.Context, _ *sql.Tx, _ string, _ money.Money, _ int64) (int64, *apperr.Error) {
		return 0, nil
	}
	txlog := newFakeTxLogStore()
	c := newTestCoordinator(wallets, txlog, newFakeLedgerStore(), leasecache.NewFakeCache())

	_, aerr := c.Transfer(context.Background(), Request{IdempotencyKey: "k", From: "w1", To: "w2", Amount: "10.00"})
	require.NotNil(t, aerr)
	assert.Equal(t, apperr.CodeVersionConflict, aerr.Code)

	log, gerr := txlog.GetByKey(context.Background(), "k")
	require.Nil(t, gerr)
	assert.Equal(t, txlogstore.StatusFailed, log.Status)
	require.NotNil(t, log.ErrorMessage)
}

func TestTransfer_LeaseContention(t *testing.T) {
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), testWallet("w2", "500.00"))
	cache := leasecache.NewFakeCache()
	c := newTestCoordinator(wallets, newFakeTxLogStore(), newFakeLedgerStore(), cache)

	ok, err := cache.TryAcquire(context.Background(), leasecache.LeaseKey("k"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, aerr := c.Transfer(context.Background(), Request{IdempotencyKey: "k", From: "w1", To: "w2", Amount: "10.00"})
	require.NotNil(t, aerr)
	assert.Equal(t, apperr.CodeConcurrentInProgress, aerr.Code)
}

func TestTransfer_DuplicatePendingRow_ConcurrentInProgress(t *testing.T) {
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), testWallet("w2", "500.00"))
	txlog := newFakeTxLogStore()
	txlog.seed(&txlogstore.Log{
		ID:             "existing-log",
		IdempotencyKey: "k2",
		Type:           txlogstore.TypeTransfer,
		FromWalletID:   "w1",
		ToWalletID:     "w2",
		Amount:         money.MustParse("10.00"),
		Currency:       "NGN",
		Status:         txlogstore.StatusProcessing,
	})
	c := newTestCoordinator(wallets, txlog, newFakeLedgerStore(), leasecache.NewFakeCache())

	_, aerr := c.Transfer(context.Background(), Request{IdempotencyKey: "k2", From: "w1", To: "w2", Amount: "10.00"})
	require.NotNil(t, aerr)
	assert.Equal(t, apperr.CodeConcurrentInProgress, aerr.Code)
}

func TestTransfer_InsertConflictRereadFindsCompleted(t *testing.T) {
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), testWallet("w2", "500.00"))
	ledger := newFakeLedgerStore()

	completedLog := &txlogstore.Log{
		ID:             "raced-log",
		IdempotencyKey: "k3",
		Type:           txlogstore.TypeTransfer,
		FromWalletID:   "w1",
		ToWalletID:     "w2",
		Amount:         money.MustParse("10.00"),
		Currency:       "NGN",
		Status:         txlogstore.StatusCompleted,
	}
	_ = ledger.AppendPair(context.Background(), nil, completedLog.ID,
		ledgerstore.Entry{WalletID: completedLog.FromWalletID, Type: ledgerstore.EntryDebit, Amount: completedLog.Amount, Currency: completedLog.Currency, BalanceAfter: money.MustParse("990.00")},
		ledgerstore.Entry{WalletID: completedLog.ToWalletID, Type: ledgerstore.EntryCredit, Amount: completedLog.Amount, Currency: completedLog.Currency, BalanceAfter: money.MustParse("510.00")},
	)

	var insertCalls int32
	txlog := newFakeTxLogStore()
	txlog.InsertFunc = func(ctx context.Context, f txlogstore.InsertFields) (*txlogstore.Log, *apperr.Error) {
		atomic.AddInt32(&insertCalls, 1)
		return nil, apperr.Conflict("idempotency key already exists")
	}
	txlog.GetByKeyFunc = func(ctx context.Context, key string) (*txlogstore.Log, *apperr.Error) {
		if key == "k3" && atomic.LoadInt32(&insertCalls) > 0 {
			return completedLog, nil
		}
		return nil, apperr.NotFound("transaction log not found")
	}

	c := newTestCoordinator(wallets, txlog, ledger, leasecache.NewFakeCache())

	res, aerr := c.Transfer(context.Background(), Request{IdempotencyKey: "k3", From: "w1", To: "w2", Amount: "10.00"})
	require.Nil(t, aerr)
	assert.Equal(t, completedLog.ID, res.TransactionID)
	assert.Equal(t, "990.00", res.From.NewBalance.String())
	assert.Equal(t, "510.00", res.To.NewBalance.String())
}

// TestTransfer_ConcurrentSameKey exercises property 3 of spec.md §8: of N
// goroutines calling Transfer with the same idempotency key, exactly one
// performs the movement and the rest either see ConcurrentInProgress or
// replay its Result.
func TestTransfer_ConcurrentSameKey(t *testing.T) {
	wallets := newFakeWalletStore(testWallet("w1", "1000.00"), testWallet("w2", "500.00"))
	txlog := newFakeTxLogStore()
	ledger := newFakeLedgerStore()
	cache := leasecache.NewFakeCache()
	c := newTestCoordinator(wallets, txlog, ledger, cache)

	const n = 10
	var wg sync.WaitGroup
	results := make([]*Result, n)
	errs := make([]*apperr.Error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, aerr := c.Transfer(context.Background(), Request{
				IdempotencyKey: "concurrent-key",
				From:           "w1",
				To:             "w2",
				Amount:         "20.00",
			})
			results[i], errs[i] = res, aerr
		}(i)
	}
	wg.Wait()

	w1, _ := wallets.LockForUpdate(context.Background(), nil, "w1")
	assert.Equal(t, "980.00", w1.Balance.String(), "the movement must apply exactly once")

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			assert.Equal(t, apperr.CodeConcurrentInProgress, errs[i].Code)
		} else {
			assert.Equal(t, "980.00", results[i].From.NewBalance.String())
		}
	}
}
