// Package httpapi exposes paycore's transfer and interest operations over
// HTTP, following the teacher's shared/response envelope and
// io.ReadAll+gopantic decode pattern from
// services/ledger/internal/handler/ledger_handler.go.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/logging"
)

// envelope is the standardized response shape every paycore endpoint uses.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorData  `json:"error,omitempty"`
}

type errorData struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *logging.Logger, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

func writeOK(w http.ResponseWriter, logger *logging.Logger, data interface{}) {
	writeJSON(w, logger, http.StatusOK, envelope{Success: true, Data: data})
}

func writeCreated(w http.ResponseWriter, logger *logging.Logger, data interface{}) {
	writeJSON(w, logger, http.StatusCreated, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, logger *logging.Logger, aerr *apperr.Error) {
	writeJSON(w, logger, aerr.HTTPStatusCode(), envelope{
		Success: false,
		Error: &errorData{
			Code:    string(aerr.Code),
			Message: aerr.Message,
			Details: aerr.Details,
		},
	})
}
