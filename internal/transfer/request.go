package transfer

import (
	"regexp"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/money"
)

var (
	idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	currencyPattern       = regexp.MustCompile(`^[A-Z]{3}$`)
)

const maxIdempotencyKeyLen = 255

// Request is the transport-agnostic contract for Transfer, per spec.md §4.1.
type Request struct {
	IdempotencyKey string
	From           string
	To             string
	Amount         string // canonical decimal string, parsed to Money during validation
	Currency       string // optional; defaults to DefaultCurrency
	Description    string
	Metadata       map[string]string
}

// validated holds the parsed/defaulted form of a Request after
// pre-validation succeeds.
type validated struct {
	idempotencyKey string
	from           string
	to             string
	amount         money.Money
	currency       string
	description    string
	metadata       map[string]string
}

// validate performs the fail-fast pre-validation of spec.md §4.1, before
// any external I/O. maxAmount and defaultCurrency come from Config.
func (r Request) validate(maxAmount money.Money, defaultCurrency string) (*validated, *apperr.Error) {
	if r.IdempotencyKey == "" || len(r.IdempotencyKey) > maxIdempotencyKeyLen {
		return nil, apperr.BadRequest("idempotency_key must be 1-255 characters")
	}
	if !idempotencyKeyPattern.MatchString(r.IdempotencyKey) {
		return nil, apperr.BadRequest("idempotency_key must match [A-Za-z0-9_-]+")
	}
	if r.From == "" || r.To == "" {
		return nil, apperr.BadRequest("from and to wallet ids are required")
	}
	if r.From == r.To {
		return nil, apperr.BadRequest("from and to wallets must differ")
	}

	amount, err := money.Parse(r.Amount)
	if err != nil {
		return nil, apperr.BadRequest("amount must be a valid decimal string")
	}
	if !amount.IsPositive() {
		return nil, apperr.BadRequest("amount must be greater than zero")
	}
	if amount.GreaterThan(maxAmount) {
		return nil, apperr.BadRequest("amount exceeds the maximum transfer amount")
	}

	currency := r.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	if !currencyPattern.MatchString(currency) {
		return nil, apperr.BadRequest("currency must be three uppercase letters")
	}

	return &validated{
		idempotencyKey: r.IdempotencyKey,
		from:           r.From,
		to:             r.To,
		amount:         amount,
		currency:       currency,
		description:    r.Description,
		metadata:       r.Metadata,
	}, nil
}
