package transfer

import (
	"context"

	"github.com/nivocore/paycore/internal/apperr"
)

// ReconciliationReport is the result of a read-only audit of one wallet's
// or one transaction's ledger entries against spec.md §8's conservation
// and count properties. It never mutates state — unlike a recovery daemon
// that resurrects stuck PROCESSING rows, this only reports on what the
// ledger already contains.
type ReconciliationReport struct {
	WalletID      string `json:"wallet_id,omitempty"`
	WalletBalance string `json:"wallet_balance,omitempty"`
	LedgerSum     string `json:"ledger_sum,omitempty"`
	Balanced      bool   `json:"balanced"`

	TransactionID  string `json:"transaction_id,omitempty"`
	LedgerRowCount int    `json:"ledger_row_count,omitempty"`
	PairComplete   bool   `json:"pair_complete"`
}

// ReconcileWallet checks property 2 of spec.md §8 ("balanced ledger at
// rest"): the wallet's committed balance must equal the signed sum of its
// COMPLETED ledger entries.
func (c *Coordinator) ReconcileWallet(ctx context.Context, walletID string) (*ReconciliationReport, *apperr.Error) {
	wallet, werr := c.wallets.Get(ctx, walletID)
	if werr != nil {
		return nil, werr
	}
	sum, serr := c.ledger.SumForWallet(ctx, c.rawDB, walletID)
	if serr != nil {
		return nil, serr
	}
	return &ReconciliationReport{
		WalletID:      walletID,
		WalletBalance: wallet.Balance.String(),
		LedgerSum:     sum.String(),
		Balanced:      wallet.Balance.Equal(sum),
	}, nil
}

// ReconcileTransaction checks property 5 of spec.md §8: a COMPLETED
// transfer must have exactly two ledger rows (one DEBIT, one CREDIT).
func (c *Coordinator) ReconcileTransaction(ctx context.Context, transactionID string) (*ReconciliationReport, *apperr.Error) {
	count, cerr := c.ledger.CountForTransaction(ctx, c.rawDB, transactionID)
	if cerr != nil {
		return nil, cerr
	}
	return &ReconciliationReport{
		TransactionID:  transactionID,
		LedgerRowCount: count,
		PairComplete:   count == 2,
	}, nil
}
