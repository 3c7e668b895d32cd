package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nivocore/paycore/internal/interest"
	"github.com/nivocore/paycore/internal/logging"
	"github.com/nivocore/paycore/internal/metrics"
	"github.com/nivocore/paycore/internal/transfer"
	"github.com/nivocore/paycore/internal/validation"
	"github.com/nivocore/paycore/internal/walletstore"
)

// NewRouter wires paycore's HTTP surface, following the shape of the
// teacher's services/wallet/internal/router/router.go.
func NewRouter(
	coordinator *transfer.Coordinator,
	calculator *interest.Calculator,
	wallets *walletstore.Store,
	collector *metrics.Collector,
	logger *logging.Logger,
) http.Handler {
	v := validation.New()
	transferHandler := NewTransferHandler(coordinator, v, logger)
	walletHandler := NewWalletHandler(wallets, logger)
	interestHandler := NewInterestHandler(calculator, v, logger)
	reconcileHandler := NewReconcileHandler(coordinator, logger)

	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"paycore"}`))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/wallet/transfer", transferHandler.Transfer).Methods(http.MethodPost)
	r.HandleFunc("/wallet/{id}/balance", walletHandler.Balance).Methods(http.MethodGet)
	r.HandleFunc("/interest/calculate", interestHandler.Calculate).Methods(http.MethodPost)
	r.HandleFunc("/wallet/{id}/reconcile", reconcileHandler.Wallet).Methods(http.MethodGet)
	r.HandleFunc("/transfer/{id}/reconcile", reconcileHandler.Transaction).Methods(http.MethodGet)

	return collector.Middleware(r)
}
