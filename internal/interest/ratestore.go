// Package interest implements the interest calculator's storage contract
// from SPEC_FULL.md, sharing C1 (Money) with the transfer coordinator but
// running as a single-writer scheduled job rather than a
// concurrently-retried client request.
package interest

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/nivocore/paycore/internal/apperr"
)

// DayCountBasis selects the divisor used to annualize a rate.
type DayCountBasis string

const (
	BasisActual365 DayCountBasis = "ACTUAL_365"
	BasisActual360 DayCountBasis = "ACTUAL_360"
)

// Divisor returns the day-count divisor for the basis.
func (b DayCountBasis) Divisor() int {
	if b == BasisActual360 {
		return 360
	}
	return 365
}

// RateStore reads a wallet's configured annual interest rate from the
// wallet_interest_rates side table, grounded on the teacher's
// account_repository.go lookup-with-default shape.
type RateStore struct {
	db           *sql.DB
	defaultRate  decimal.Decimal
	defaultBasis DayCountBasis
}

// NewRateStore creates a RateStore, falling back to defaultRate/basis for
// wallets with no configured row.
func NewRateStore(db *sql.DB, defaultRate decimal.Decimal, defaultBasis DayCountBasis) *RateStore {
	return &RateStore{db: db, defaultRate: defaultRate, defaultBasis: defaultBasis}
}

// GetRate returns the wallet's configured rate and basis, or the
// configured defaults when no row exists.
func (s *RateStore) GetRate(ctx context.Context, walletID string) (decimal.Decimal, DayCountBasis, *apperr.Error) {
	var rateStr string
	var basis DayCountBasis
	err := s.db.QueryRowContext(ctx, `
		SELECT annual_rate, day_count_basis FROM wallet_interest_rates WHERE wallet_id = $1
	`, walletID).Scan(&rateStr, &basis)
	if err == sql.ErrNoRows {
		return s.defaultRate, s.defaultBasis, nil
	}
	if err != nil {
		return decimal.Zero, "", apperr.DatabaseWrap(err, "failed to read wallet interest rate")
	}
	rate, perr := decimal.NewFromString(rateStr)
	if perr != nil {
		return decimal.Zero, "", apperr.Internal("stored annual rate is not a valid decimal")
	}
	return rate, basis, nil
}

// SetRate upserts a wallet's configured annual rate and day-count basis.
func (s *RateStore) SetRate(ctx context.Context, walletID string, rate decimal.Decimal, basis DayCountBasis) *apperr.Error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_interest_rates (wallet_id, annual_rate, day_count_basis)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet_id) DO UPDATE SET annual_rate = $2, day_count_basis = $3, updated_at = NOW()
	`, walletID, rate.String(), basis)
	if err != nil {
		return apperr.DatabaseWrap(err, "failed to set wallet interest rate")
	}
	return nil
}
