package ledgerstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/money"
)

func validPair() (Entry, Entry) {
	debit := Entry{
		TransactionID: "tx-1",
		WalletID:      "wallet-a",
		Type:          EntryDebit,
		Amount:        money.MustParse("100.00"),
		Currency:      "NGN",
		BalanceAfter:  money.MustParse("900.00"),
	}
	credit := Entry{
		TransactionID: "tx-1",
		WalletID:      "wallet-b",
		Type:          EntryCredit,
		Amount:        money.MustParse("100.00"),
		Currency:      "NGN",
		BalanceAfter:  money.MustParse("1100.00"),
	}
	return debit, credit
}

func TestValidatePair_AcceptsBalancedPair(t *testing.T) {
	s := NewStore()
	debit, credit := validPair()
	assert.Nil(t, s.validatePair("tx-1", debit, credit))
}

func TestValidatePair_RejectsMismatchedSides(t *testing.T) {
	s := NewStore()
	debit, credit := validPair()
	credit.Type = EntryDebit

	aerr := s.validatePair("tx-1", debit, credit)
	assert.NotNil(t, aerr)
	assert.Equal(t, apperr.CodeInternal, aerr.Code)
}

func TestValidatePair_RejectsMismatchedAmounts(t *testing.T) {
	s := NewStore()
	debit, credit := validPair()
	credit.Amount = money.MustParse("99.99")

	aerr := s.validatePair("tx-1", debit, credit)
	assert.NotNil(t, aerr)
}

func TestValidatePair_RejectsMismatchedCurrencies(t *testing.T) {
	s := NewStore()
	debit, credit := validPair()
	credit.Currency = "USD"

	aerr := s.validatePair("tx-1", debit, credit)
	assert.NotNil(t, aerr)
}

func TestValidatePair_RejectsNonPositiveAmount(t *testing.T) {
	s := NewStore()
	debit, credit := validPair()
	debit.Amount = money.MustParse("0.00")
	credit.Amount = money.MustParse("0.00")

	aerr := s.validatePair("tx-1", debit, credit)
	assert.NotNil(t, aerr)
}
