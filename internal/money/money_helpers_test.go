package money

import "github.com/shopspring/decimal"

// decimalFromString parses an arbitrary-scale decimal literal, bypassing
// Money's scale-2 canonical format restriction. Used only to construct
// wider-scale intermediates for rounding tests.
func decimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
