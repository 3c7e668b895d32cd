package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/vnykmshr/gopantic/pkg/model"

	"github.com/nivocore/paycore/internal/apperr"
	"github.com/nivocore/paycore/internal/interest"
	"github.com/nivocore/paycore/internal/logging"
	"github.com/nivocore/paycore/internal/validation"
)

// interestCalculateRequestDTO is the wire shape for POST /interest/calculate.
type interestCalculateRequestDTO struct {
	WalletID string `json:"wallet_id" validate:"required"`
	AsOfDate string `json:"as_of_date" validate:"required"`
}

// interestCalculationResponse is the wire shape of a persisted calculation.
type interestCalculationResponse struct {
	ID             string    `json:"id"`
	WalletID       string    `json:"wallet_id"`
	Principal      string    `json:"principal"`
	AnnualRate     string    `json:"annual_rate"`
	DayCountBasis  string    `json:"day_count_basis"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	InterestAmount string    `json:"interest_amount"`
	CalculatedAt   time.Time `json:"calculated_at"`
}

// InterestHandler serves the interest-calculation endpoint.
type InterestHandler struct {
	calculator *interest.Calculator
	validator  *validation.Validator
	logger     *logging.Logger
}

// NewInterestHandler builds an InterestHandler.
func NewInterestHandler(calculator *interest.Calculator, validator *validation.Validator, logger *logging.Logger) *InterestHandler {
	return &InterestHandler{calculator: calculator, validator: validator, logger: logger}
}

// Calculate handles POST /interest/calculate.
func (h *InterestHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, h.logger, apperr.BadRequest("failed to read request body"))
		return
	}

	dto, err := model.ParseInto[interestCalculateRequestDTO](body)
	if err != nil {
		writeError(w, h.logger, apperr.Validation(err.Error()))
		return
	}

	if aerr := h.validator.Validate(dto); aerr != nil {
		writeError(w, h.logger, aerr)
		return
	}

	asOf, perr := time.Parse("2006-01-02", dto.AsOfDate)
	if perr != nil {
		writeError(w, h.logger, apperr.BadRequest("as_of_date must be formatted as YYYY-MM-DD"))
		return
	}

	calc, aerr := h.calculator.CalculateDailyInterest(r.Context(), dto.WalletID, asOf)
	if aerr != nil {
		writeError(w, h.logger, aerr)
		return
	}

	writeOK(w, h.logger, interestCalculationResponse{
		ID:             calc.ID,
		WalletID:       calc.WalletID,
		Principal:      calc.Principal.String(),
		AnnualRate:     calc.AnnualRate.String(),
		DayCountBasis:  string(calc.DayCountBasis),
		PeriodStart:    calc.PeriodStart,
		PeriodEnd:      calc.PeriodEnd,
		InterestAmount: calc.InterestAmount.String(),
		CalculatedAt:   calc.CalculatedAt,
	})
}
