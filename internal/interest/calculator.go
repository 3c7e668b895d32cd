package interest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/logging"
	"github.com/nivocore/paycore/internal/metrics"
	"github.com/nivocore/paycore/internal/money"
	"github.com/nivocore/paycore/internal/walletstore"
)

// intermediateScale is the internal computation width before the final
// banker's-rounding step to Money's scale 2, per SPEC_FULL.md.
const intermediateScale = 10

// WalletGetter is the narrow wallet read surface the calculator needs.
// *walletstore.Store satisfies it.
type WalletGetter interface {
	Get(ctx context.Context, id string) (*walletstore.Wallet, *apperr.Error)
}

// CalculationStore is the narrow interest_calculations surface the
// calculator needs. *Store satisfies it.
type CalculationStore interface {
	Insert(ctx context.Context, c *Calculation) *apperr.Error
	GetByPeriod(ctx context.Context, walletID string, periodStart, periodEnd time.Time) (*Calculation, *apperr.Error)
}

// RateGetter is the narrow rate-lookup surface the calculator needs.
// *RateStore satisfies it.
type RateGetter interface {
	GetRate(ctx context.Context, walletID string) (decimal.Decimal, DayCountBasis, *apperr.Error)
}

// Calculator implements CalculateDailyInterest, per SPEC_FULL.md.
type Calculator struct {
	wallets WalletGetter
	rates   RateGetter
	calcs   CalculationStore
	metrics *metrics.Collector
	logger  *logging.Logger
}

// New builds a Calculator from its collaborators. collector may be nil, in
// which case CalculateDailyInterest records no metrics.
func New(wallets WalletGetter, rates RateGetter, calcs CalculationStore, collector *metrics.Collector, logger *logging.Logger) *Calculator {
	return &Calculator{wallets: wallets, rates: rates, calcs: calcs, metrics: collector, logger: logger}
}

// recordOutcome reports one CalculateDailyInterest outcome. A nil collector
// (e.g. in unit tests) is a no-op.
func (c *Calculator) recordOutcome(outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordInterestCalculation(outcome)
}

// CalculateDailyInterest computes and persists one day's interest for a
// wallet as of asOfDate. Idempotent per (wallet_id, period_start,
// period_end): a second call for the same day returns the first call's
// row rather than recomputing.
func (c *Calculator) CalculateDailyInterest(ctx context.Context, walletID string, asOfDate time.Time) (*Calculation, *apperr.Error) {
	periodStart := truncateToDate(asOfDate)
	periodEnd := periodStart

	if existing, gerr := c.calcs.GetByPeriod(ctx, walletID, periodStart, periodEnd); gerr == nil {
		c.recordOutcome("idempotent_replay")
		return existing, nil
	} else if gerr.Code != apperr.CodeNotFound {
		c.recordOutcome("error")
		return nil, gerr
	}

	wallet, werr := c.wallets.Get(ctx, walletID)
	if werr != nil {
		c.recordOutcome("error")
		return nil, werr
	}

	rate, basis, rerr := c.rates.GetRate(ctx, walletID)
	if rerr != nil {
		c.recordOutcome("error")
		return nil, rerr
	}

	interestAmount := computeDailyInterest(wallet.Balance, rate, basis)

	calc := &Calculation{
		WalletID:       walletID,
		Principal:      wallet.Balance,
		AnnualRate:     rate,
		DayCountBasis:  basis,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		InterestAmount: interestAmount,
		CalculatedAt:   time.Now().UTC(),
	}

	if ierr := c.calcs.Insert(ctx, calc); ierr != nil {
		if ierr.Code == apperr.CodeConflict {
			existing, gerr := c.calcs.GetByPeriod(ctx, walletID, periodStart, periodEnd)
			if gerr != nil {
				c.recordOutcome("error")
				return nil, gerr
			}
			c.recordOutcome("idempotent_replay")
			return existing, nil
		}
		c.recordOutcome("error")
		return nil, ierr
	}

	c.logger.WithField("wallet_id", walletID).WithField("amount", interestAmount.String()).Info("interest calculated")
	c.recordOutcome("completed")
	return calc, nil
}

// computeDailyInterest is pure: principal * annual_rate / divisor,
// carried at intermediateScale and only rounded to Money's scale 2 (with
// banker's rounding) at the very end.
func computeDailyInterest(principal money.Money, annualRate decimal.Decimal, basis DayCountBasis) money.Money {
	divisor := decimal.NewFromInt(int64(basis.Divisor()))
	wide := principal.Decimal().Mul(annualRate).DivRound(divisor, intermediateScale)
	return money.FromDecimal(wide)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
