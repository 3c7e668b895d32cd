// Package money implements C1: fixed-scale decimal arithmetic for paycore.
//
// Money is always scale 2 (two decimal digits) with 20 digits of overall
// precision, matching spec.md §4.2. Internal computations may use a wider
// scale and are rounded back to scale 2 with banker's rounding
// (round-half-to-even) — ties never accumulate bias across many
// transfers. Money never uses binary floating point for value-affecting
// arithmetic; everything is backed by shopspring/decimal, which stores an
// arbitrary-precision integer coefficient and exponent.
package money

import (
	"database/sql/driver"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Scale is the fixed number of fractional digits every Money value carries.
const Scale = 2

// Precision is the maximum number of significant digits supported.
const Precision = 20

// canonicalPattern matches the wire format spec.md §4.2 requires:
// an optional sign, at least one integer digit, and an optional
// one-or-two digit fractional part.
var canonicalPattern = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)

// Money is a fixed-scale (scale 2) decimal amount.
type Money struct {
	value decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{value: decimal.Zero}

// Parse parses a canonical decimal string into a Money value at scale 2.
// Rejects malformed strings, and implicitly rejects NaN/Inf sources since
// the canonical pattern only matches plain digit sequences.
func Parse(s string) (Money, error) {
	if !canonicalPattern.MatchString(s) {
		return Money{}, fmt.Errorf("money: invalid amount format: %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: %w", err)
	}
	return Money{value: d.RoundBank(Scale)}, nil
}

// MustParse parses s and panics on error. Intended for literals in tests
// and migrations, never for request input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal wraps a decimal.Decimal, rounding to scale 2 with banker's
// rounding. Used internally when a computation (e.g. interest) produces a
// wider-scale intermediate result.
func FromDecimal(d decimal.Decimal) Money {
	return Money{value: d.RoundBank(Scale)}
}

// Decimal returns the underlying decimal.Decimal at scale 2.
func (m Money) Decimal() decimal.Decimal {
	return m.value
}

// Add returns m + other, exact at scale 2.
func (m Money) Add(other Money) Money {
	return Money{value: m.value.Add(other.value).RoundBank(Scale)}
}

// Sub returns m - other, exact at scale 2.
func (m Money) Sub(other Money) Money {
	return Money{value: m.value.Sub(other.value).RoundBank(Scale)}
}

// Cmp returns -1, 0, or 1 as m is less than, equal to, or greater than other.
func (m Money) Cmp(other Money) int {
	return m.value.Cmp(other.value)
}

// GreaterThanOrEqual reports whether m >= other.
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.value.Cmp(other.value) >= 0
}

// GreaterThan reports whether m > other.
func (m Money) GreaterThan(other Money) bool {
	return m.value.Cmp(other.value) > 0
}

// LessThanOrEqual reports whether m <= other.
func (m Money) LessThanOrEqual(other Money) bool {
	return m.value.Cmp(other.value) <= 0
}

// Equal reports whether m and other carry the same value.
func (m Money) Equal(other Money) bool {
	return m.value.Equal(other.value)
}

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool {
	return m.value.IsZero()
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool {
	return m.value.IsPositive()
}

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool {
	return m.value.IsNegative()
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{value: m.value.Neg()}
}

// String returns the canonical two-decimal representation, e.g. "900.00".
func (m Money) String() string {
	return m.value.StringFixed(Scale)
}

// MarshalJSON encodes Money as its canonical string, not a JSON number, to
// avoid floating-point round-tripping through JSON decoders.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes a canonical string into Money.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer so Money can be written to a NUMERIC column.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner so Money can be read from a NUMERIC column.
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		*m = Zero
		return nil
	}
	switch v := value.(type) {
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case float64:
		*m = FromDecimal(decimal.NewFromFloat(v))
		return nil
	default:
		return fmt.Errorf("money: cannot scan type %T", value)
	}
}
