package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nivocore/paycore/internal/logging"
	"github.com/nivocore/paycore/internal/transfer"
)

// ReconcileHandler exposes read-only audits of the ledger's conservation
// and pair-completeness properties. It never mutates state.
type ReconcileHandler struct {
	coordinator *transfer.Coordinator
	logger      *logging.Logger
}

// NewReconcileHandler builds a ReconcileHandler.
func NewReconcileHandler(coordinator *transfer.Coordinator, logger *logging.Logger) *ReconcileHandler {
	return &ReconcileHandler{coordinator: coordinator, logger: logger}
}

// Wallet reports whether a wallet's committed balance matches the signed
// sum of its COMPLETED ledger entries.
func (h *ReconcileHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	walletID := mux.Vars(r)["id"]

	report, aerr := h.coordinator.ReconcileWallet(r.Context(), walletID)
	if aerr != nil {
		writeError(w, h.logger, aerr)
		return
	}
	writeOK(w, h.logger, report)
}

// Transaction reports whether a transfer has exactly two ledger rows.
func (h *ReconcileHandler) Transaction(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["id"]

	report, aerr := h.coordinator.ReconcileTransaction(r.Context(), transactionID)
	if aerr != nil {
		writeError(w, h.logger, aerr)
		return
	}
	writeOK(w, h.logger, report)
}
