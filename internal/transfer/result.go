package transfer

import (
	"time"

	"github.com/nivocore/paycore/internal/money"
)

// Side is one leg of a completed transfer's outcome.
type Side struct {
	WalletID   string      `json:"wallet_id"`
	NewBalance money.Money `json:"new_balance"`
}

// Result is the outcome of a Transfer call, whether freshly computed or
// replayed from the idempotency cache. Two calls with the same
// idempotency_key return byte-identical JSON, per spec.md §4.1.
type Result struct {
	TransactionID string      `json:"transaction_id"`
	Status        string      `json:"status"`
	From          Side        `json:"from"`
	To            Side        `json:"to"`
	Currency      string      `json:"currency"`
	Amount        money.Money `json:"amount"`
	CompletedAt   time.Time   `json:"completed_at"`
}
