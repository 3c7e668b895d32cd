// Package transfer implements C6: the idempotent wallet-transfer
// coordinator, the core of paycore. Grounded on the claim/lock/check/
// ledger/commit shape of
// other_examples/2cf5b58a_SimonKvalheim-hm9-banking__internal-processor-transfer.go.go
// and on the ascending-ID lock ordering and optimistic-lock update in the
// teacher's services/wallet/internal/repository/wallet_repository.go
// (ProcessTransferWithinTx, CheckAndReserveLimitWithinTx).
package transfer

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/dbx"
	"github.com/nivocore/paycore/internal/ledgerstore"
	"github.com/nivocore/paycore/internal/leasecache"
	"github.com/nivocore/paycore/internal/logging"
	"github.com/nivocore/paycore/internal/metrics"
	"github.com/nivocore/paycore/internal/money"
	"github.com/nivocore/paycore/internal/txlogstore"
	"github.com/nivocore/paycore/internal/walletstore"
)

// Config carries the transfer coordinator's tunables, sourced from
// config.Config by the composition root.
type Config struct {
	IdempotencyTTL    time.Duration
	LeaseTTL          time.Duration
	MaxTransferAmount money.Money
	DefaultCurrency   string
}

// Coordinator implements Transfer, per spec.md §4.1.
type Coordinator struct {
	txRunner TxRunner
	rawDB    *sql.DB
	wallets  WalletStore
	txlog    TransactionLogStore
	ledger   LedgerStore
	cache    leasecache.Cache
	logger   *logging.Logger
	metrics  *metrics.Collector
	cfg      Config
}

// New builds a Coordinator from its collaborators. collector may be nil,
// in which case Transfer records no metrics.
func New(db *dbx.DB, wallets *walletstore.Store, txlog *txlogstore.Store, ledger *ledgerstore.Store, cache leasecache.Cache, collector *metrics.Collector, logger *logging.Logger, cfg Config) *Coordinator {
	return &Coordinator{
		txRunner: db,
		rawDB:    db.DB,
		wallets:  wallets,
		txlog:    txlog,
		ledger:   ledger,
		cache:    cache,
		logger:   logger,
		metrics:  collector,
		cfg:      cfg,
	}
}

// recordOutcome reports one Transfer attempt's outcome, amount, and
// latency, per SPEC_FULL.md's DOMAIN STACK prometheus wiring. A nil
// collector (e.g. in unit tests) is a no-op.
func (c *Coordinator) recordOutcome(outcome string, amount money.Money, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordTransfer(outcome, amount.Decimal().InexactFloat64(), time.Since(start))
}

// recordLeaseContention reports a failed lease acquisition. A nil collector
// (e.g. in unit tests) is a no-op.
func (c *Coordinator) recordLeaseContention() {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordLeaseContention()
}

// Transfer moves value from one wallet to another exactly once per
// idempotency_key, per spec.md §4.1. Concurrent callers sharing a key
// serialize on a Redis lease; repeat callers replay the first call's
// Result without re-applying the movement.
func (c *Coordinator) Transfer(ctx context.Context, req Request) (*Result, *apperr.Error) {
	v, verr := req.validate(c.cfg.MaxTransferAmount, c.cfg.DefaultCurrency)
	if verr != nil {
		return nil, verr
	}

	start := time.Now()
	resultKey := leasecache.ResultKey(v.idempotencyKey)
	leaseKey := leasecache.LeaseKey(v.idempotencyKey)

	if raw, ok, err := c.cache.GetResult(ctx, resultKey); err != nil {
		c.logger.WithError(err).Warn("idempotency cache read failed, falling back to durable store")
	} else if ok {
		var cached Result
		if err := json.Unmarshal(raw, &cached); err == nil {
			c.recordOutcome("idempotent_replay", v.amount, start)
			return &cached, nil
		}
		c.logger.Warn("idempotency cache held unparseable result, ignoring")
	}

	if existing, gerr := c.txlog.GetByKey(ctx, v.idempotencyKey); gerr == nil {
		if existing.Status == txlogstore.StatusCompleted {
			result, rerr := c.synthesizeAndCache(ctx, existing, resultKey)
			c.recordOutcome("idempotent_replay", v.amount, start)
			return result, rerr
		}
		// A PENDING/PROCESSING/FAILED row already exists for this key;
		// fall through to lease acquisition, which will resolve the race.
	} else if gerr.Code != apperr.CodeNotFound {
		c.recordOutcome("error", v.amount, start)
		return nil, gerr
	}

	acquired, err := c.cache.TryAcquire(ctx, leaseKey, c.cfg.LeaseTTL)
	if err != nil {
		c.recordOutcome("error", v.amount, start)
		return nil, apperr.Unavailable("lease store unavailable")
	}
	if !acquired {
		c.recordLeaseContention()
		c.recordOutcome("concurrent_in_progress", v.amount, start)
		return nil, apperr.ConcurrentInProgress("a transfer with this idempotency key is already in progress")
	}
	defer func() {
		if err := c.cache.Release(ctx, leaseKey); err != nil {
			c.logger.WithError(err).Warn("failed to release transfer lease")
		}
	}()

	log, ierr := c.txlog.Insert(ctx, txlogstore.InsertFields{
		IdempotencyKey: v.idempotencyKey,
		Type:           txlogstore.TypeTransfer,
		FromWalletID:   v.from,
		ToWalletID:     v.to,
		Amount:         v.amount,
		Currency:       v.currency,
		Description:    stringPtrOrNil(v.description),
		Metadata:       v.metadata,
	})
	if ierr != nil {
		if ierr.Code == apperr.CodeConflict {
			existing, gerr := c.txlog.GetByKey(ctx, v.idempotencyKey)
			if gerr != nil {
				c.recordOutcome("error", v.amount, start)
				return nil, gerr
			}
			if existing.Status == txlogstore.StatusCompleted {
				result, rerr := c.synthesizeAndCache(ctx, existing, resultKey)
				c.recordOutcome("idempotent_replay", v.amount, start)
				return result, rerr
			}
			c.recordOutcome("concurrent_in_progress", v.amount, start)
			return nil, apperr.ConcurrentInProgress("a transfer with this idempotency key is already in progress")
		}
		c.recordOutcome("error", v.amount, start)
		return nil, ierr
	}

	var fromBalance, toBalance money.Money

	txErr := c.txRunner.TransactionWithOptions(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(tx *sql.Tx) error {
		if aerr := c.txlog.UpdateStatus(ctx, tx, log.ID, txlogstore.StatusProcessing, nil); aerr != nil {
			return aerr
		}

		firstID, secondID := v.from, v.to
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}

		firstWallet, lerr := c.wallets.LockForUpdate(ctx, tx, firstID)
		if lerr != nil {
			return lerr
		}
		secondWallet, lerr := c.wallets.LockForUpdate(ctx, tx, secondID)
		if lerr != nil {
			return lerr
		}

		var fromWallet, toWallet *walletstore.Wallet
		if firstWallet.ID == v.from {
			fromWallet, toWallet = firstWallet, secondWallet
		} else {
			fromWallet, toWallet = secondWallet, firstWallet
		}

		if !fromWallet.IsActive() {
			return apperr.InactiveWallet("source", fromWallet.ID)
		}
		if !toWallet.IsActive() {
			return apperr.InactiveWallet("destination", toWallet.ID)
		}
		if fromWallet.Currency != v.currency {
			return apperr.BadRequest("source wallet currency does not match transfer currency")
		}
		if toWallet.Currency != v.currency {
			return apperr.BadRequest("destination wallet currency does not match transfer currency")
		}
		if !fromWallet.Balance.GreaterThanOrEqual(v.amount) {
			return apperr.InsufficientFunds(fromWallet.Balance.String(), v.amount.String())
		}

		newFromBalance := fromWallet.Balance.Sub(v.amount)
		newToBalance := toWallet.Balance.Add(v.amount)

		rows, uerr := c.wallets.UpdateVersioned(ctx, tx, fromWallet.ID, newFromBalance, fromWallet.Version)
		if uerr != nil {
			return uerr
		}
		if rows == 0 {
			return apperr.VersionConflictErr("source wallet was modified concurrently")
		}

		rows, uerr = c.wallets.UpdateVersioned(ctx, tx, toWallet.ID, newToBalance, toWallet.Version)
		if uerr != nil {
			return uerr
		}
		if rows == 0 {
			return apperr.VersionConflictErr("destination wallet was modified concurrently")
		}

		if aerr := c.ledger.AppendPair(ctx, tx, log.ID,
			ledgerstore.Entry{TransactionID: log.ID, WalletID: fromWallet.ID, Type: ledgerstore.EntryDebit, Amount: v.amount, Currency: v.currency, BalanceAfter: newFromBalance},
			ledgerstore.Entry{TransactionID: log.ID, WalletID: toWallet.ID, Type: ledgerstore.EntryCredit, Amount: v.amount, Currency: v.currency, BalanceAfter: newToBalance},
		); aerr != nil {
			return aerr
		}

		if aerr := c.txlog.UpdateStatus(ctx, tx, log.ID, txlogstore.StatusCompleted, nil); aerr != nil {
			return aerr
		}

		fromBalance, toBalance = newFromBalance, newToBalance
		return nil
	})

	if txErr != nil {
		aerr, ok := apperr.As(txErr)
		if !ok {
			if dbx.IsSerializationFailure(txErr) {
				aerr = apperr.VersionConflictErr("transfer conflicted with a concurrent update, retry with the same idempotency key")
			} else {
				aerr = apperr.DatabaseWrap(txErr, "transfer failed")
			}
		}
		msg := aerr.Error()
		if ferr := c.txlog.UpdateStatus(ctx, nil, log.ID, txlogstore.StatusFailed, &msg); ferr != nil {
			c.logger.WithError(ferr).Warn("failed to record transfer failure")
		}
		c.recordOutcome(string(aerr.Code), v.amount, start)
		return nil, aerr
	}

	c.recordOutcome("completed", v.amount, start)

	result := &Result{
		TransactionID: log.ID,
		Status:        string(txlogstore.StatusCompleted),
		From:          Side{WalletID: v.from, NewBalance: fromBalance},
		To:            Side{WalletID: v.to, NewBalance: toBalance},
		Currency:      v.currency,
		Amount:        v.amount,
		CompletedAt:   time.Now().UTC(),
	}
	// Take completed_at from the committed log row, the same value
	// buildResultFromLog uses when a replay misses the result cache.
	if committed, gerr := c.txlog.GetByKey(ctx, v.idempotencyKey); gerr == nil && committed.CompletedAt.Valid {
		result.CompletedAt = committed.CompletedAt.Time
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := c.cache.PutResult(ctx, resultKey, raw, c.cfg.IdempotencyTTL); err != nil {
			c.logger.WithError(err).Warn("failed to cache transfer result")
		}
	}

	return result, nil
}

// synthesizeAndCache rebuilds a Result from the durable ledger rows of an
// already-COMPLETED log row, per spec.md §4.1's idempotent-replay path,
// and best-effort repopulates the result cache so the next replay is a
// cache hit.
func (c *Coordinator) synthesizeAndCache(ctx context.Context, log *txlogstore.Log, resultKey string) (*Result, *apperr.Error) {
	entries, eerr := c.ledger.ByTransaction(ctx, c.rawDB, log.ID)
	if eerr != nil {
		return nil, eerr
	}

	result := buildResultFromLog(log, entries)

	if raw, err := json.Marshal(result); err == nil {
		if err := c.cache.PutResult(ctx, resultKey, raw, c.cfg.IdempotencyTTL); err != nil {
			c.logger.WithError(err).Warn("failed to repopulate idempotency cache")
		}
	}

	return result, nil
}

func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// buildResultFromLog reconstructs a Result from a COMPLETED log row and
// its two ledger entries. Pure and DB-free so it can be tested directly.
func buildResultFromLog(log *txlogstore.Log, entries []ledgerstore.Entry) *Result {
	result := &Result{
		TransactionID: log.ID,
		Status:        string(log.Status),
		Currency:      log.Currency,
		Amount:        log.Amount,
	}
	if log.CompletedAt.Valid {
		result.CompletedAt = log.CompletedAt.Time
	}
	for _, e := range entries {
		switch {
		case e.Type == ledgerstore.EntryDebit && e.WalletID == log.FromWalletID:
			result.From = Side{WalletID: e.WalletID, NewBalance: e.BalanceAfter}
		case e.Type == ledgerstore.EntryCredit && e.WalletID == log.ToWalletID:
			result.To = Side{WalletID: e.WalletID, NewBalance: e.BalanceAfter}
		}
	}
	return result
}
