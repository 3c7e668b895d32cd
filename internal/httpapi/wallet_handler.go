package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/logging"
	"github.com/nivocore/paycore/internal/walletstore"
)

// walletBalanceResponse is the wire shape for GET /wallet/{id}/balance.
type walletBalanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Version  int64  `json:"version"`
}

// WalletHandler serves read-only wallet endpoints.
type WalletHandler struct {
	wallets *walletstore.Store
	logger  *logging.Logger
}

// NewWalletHandler builds a WalletHandler.
func NewWalletHandler(wallets *walletstore.Store, logger *logging.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, logger: logger}
}

// Balance handles GET /wallet/{id}/balance.
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, h.logger, apperr.BadRequest("wallet id is required"))
		return
	}

	wallet, aerr := h.wallets.Get(r.Context(), id)
	if aerr != nil {
		writeError(w, h.logger, aerr)
		return
	}

	writeOK(w, h.logger, walletBalanceResponse{
		WalletID: wallet.ID,
		Balance:  wallet.Balance.String(),
		Currency: wallet.Currency,
		Status:   string(wallet.Status),
		Version:  wallet.Version,
	})
}
