package httpapi

import (
	"io"
	"net/http"

	"github.com/vnykmshr/gopantic/pkg/model"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/logging"
	"github.com/nivocore/paycore/internal/transfer"
	"github.com/nivocore/paycore/internal/validation"
)

// transferRequestDTO is the wire shape for POST /wallet/transfer. It
// carries its own validate tags above transfer.Request's own charset and
// range checks, per internal/validation's package doc.
type transferRequestDTO struct {
	IdempotencyKey string            `json:"idempotency_key" validate:"required,idempotency_key"`
	From           string            `json:"from" validate:"required,uuid"`
	To             string            `json:"to" validate:"required,uuid"`
	Amount         string            `json:"amount" validate:"required,money_amount"`
	Currency       string            `json:"currency" validate:"wallet_currency"`
	Description    string            `json:"description"`
	Metadata       map[string]string `json:"metadata"`
}

// TransferHandler serves the wallet-transfer endpoint.
type TransferHandler struct {
	coordinator *transfer.Coordinator
	validator   *validation.Validator
	logger      *logging.Logger
}

// NewTransferHandler builds a TransferHandler.
func NewTransferHandler(coordinator *transfer.Coordinator, validator *validation.Validator, logger *logging.Logger) *TransferHandler {
	return &TransferHandler{coordinator: coordinator, validator: validator, logger: logger}
}

// Transfer handles POST /wallet/transfer.
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, h.logger, apperr.BadRequest("failed to read request body"))
		return
	}

	dto, err := model.ParseInto[transferRequestDTO](body)
	if err != nil {
		writeError(w, h.logger, apperr.Validation(err.Error()))
		return
	}

	if aerr := h.validator.Validate(dto); aerr != nil {
		writeError(w, h.logger, aerr)
		return
	}

	req := transfer.Request{
		IdempotencyKey: dto.IdempotencyKey,
		From:           dto.From,
		To:             dto.To,
		Amount:         dto.Amount,
		Currency:       dto.Currency,
		Description:    dto.Description,
		Metadata:       dto.Metadata,
	}

	result, aerr := h.coordinator.Transfer(r.Context(), req)
	if aerr != nil {
		writeError(w, h.logger, aerr)
		return
	}

	writeOK(w, h.logger, result)
}
