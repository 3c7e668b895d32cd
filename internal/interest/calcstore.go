package interest

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/dbx"
	"github.com/nivocore/paycore/internal/money"
)

// Calculation is one persisted, auditable interest computation, per
// SPEC_FULL.md's Interest Calculator section.
type Calculation struct {
	ID             string
	WalletID       string
	Principal      money.Money
	AnnualRate     decimal.Decimal
	DayCountBasis  DayCountBasis
	PeriodStart    time.Time
	PeriodEnd      time.Time
	InterestAmount money.Money
	CalculatedAt   time.Time
	CreatedAt      sql.NullTime
}

// Store is the narrow data-access surface over interest_calculations.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store bound to a *sql.DB.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert persists a new Calculation row. A unique-violation on
// (wallet_id, period_start, period_end) is surfaced as Conflict so the
// calculator can re-read and return the existing row, mirroring the
// transfer coordinator's idempotency discipline.
func (s *Store) Insert(ctx context.Context, c *Calculation) *apperr.Error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CalculatedAt.IsZero() {
		c.CalculatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO interest_calculations
			(id, wallet_id, principal, annual_rate, day_count_basis, period_start, period_end, interest_amount, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, c.ID, c.WalletID, c.Principal, c.AnnualRate.String(), c.DayCountBasis, c.PeriodStart, c.PeriodEnd, c.InterestAmount, c.CalculatedAt,
	).Scan(&c.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return apperr.Conflict("interest calculation already exists for this period")
		}
		return apperr.DatabaseWrap(err, "failed to insert interest calculation")
	}
	return nil
}

// GetByPeriod looks up an existing calculation for a wallet and period.
func (s *Store) GetByPeriod(ctx context.Context, walletID string, periodStart, periodEnd time.Time) (*Calculation, *apperr.Error) {
	c := &Calculation{}
	var rateStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, wallet_id, principal, annual_rate, day_count_basis, period_start, period_end, interest_amount, calculated_at, created_at
		FROM interest_calculations
		WHERE wallet_id = $1 AND period_start = $2 AND period_end = $3
	`, walletID, periodStart, periodEnd).Scan(
		&c.ID, &c.WalletID, &c.Principal, &rateStr, &c.DayCountBasis, &c.PeriodStart, &c.PeriodEnd, &c.InterestAmount, &c.CalculatedAt, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("interest calculation not found")
	}
	if err != nil {
		return nil, apperr.DatabaseWrap(err, "failed to get interest calculation")
	}
	rate, perr := decimal.NewFromString(rateStr)
	if perr != nil {
		return nil, apperr.Internal("stored annual rate is not a valid decimal")
	}
	c.AnnualRate = rate
	return c, nil
}
