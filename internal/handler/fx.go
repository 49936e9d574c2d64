package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/fx"
	"github.com/bancagt/backoffice/internal/logging"
)

type fxService interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*fx.Conversion, error)
	ListCurrencies(ctx context.Context, filter string) ([]domain.Currency, error)
	OverrideRate(ctx context.Context, code string, rate decimal.Decimal, caller domain.Principal) error
	RestoreOfficialRates(ctx context.Context, caller domain.Principal) error
}

type FXHandler struct {
	fx fxService
}

func NewFXHandler(fxSvc fxService) *FXHandler {
	return &FXHandler{fx: fxSvc}
}

type conversionResponse struct {
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	SourceAmount string `json:"source_amount"`
	DestAmount   string `json:"dest_amount"`
	FromRate     string `json:"from_rate"`
	ToRate       string `json:"to_rate"`
	Timestamp    string `json:"timestamp"`
}

func (h *FXHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, amountStr := q.Get("from"), q.Get("to"), q.Get("amount")

	var fields []FieldError
	if from == "" {
		fields = append(fields, FieldError{Field: "from", Message: "required"})
	}
	if to == "" {
		fields = append(fields, FieldError{Field: "to", Message: "required"})
	}
	amount, err := decimal.NewFromString(amountStr)
	if amountStr == "" || err != nil {
		fields = append(fields, FieldError{Field: "amount", Message: "must be a decimal number"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	conv, err := h.fx.Convert(r.Context(), amount, from, to)
	if err != nil {
		logging.FromContext(r.Context()).Warn("conversion failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, conversionResponse{
		FromCurrency: from,
		ToCurrency:   to,
		SourceAmount: conv.SourceAmount.String(),
		DestAmount:   conv.DestAmount.String(),
		FromRate:     conv.FromRate.String(),
		ToRate:       conv.ToRate.String(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

type currencyDTO struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Rate      string    `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListCurrencies returns the active catalog, optionally filtered with
// ?q=substring on code or name.
func (h *FXHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.fx.ListCurrencies(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]currencyDTO, len(currencies))
	for i, c := range currencies {
		dtos[i] = currencyDTO{
			Code:      c.Code,
			Name:      c.Name,
			Rate:      c.Rate.String(),
			UpdatedAt: c.UpdatedAt,
		}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

type overrideRateRequest struct {
	Rate string `json:"rate"`
}

func (h *FXHandler) OverrideRate(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req overrideRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "rate", Message: "must be a decimal number"}})
		return
	}

	if err := h.fx.OverrideRate(r.Context(), r.PathValue("code"), rate, p); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *FXHandler) RestoreRates(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.fx.RestoreOfficialRates(r.Context(), p); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"status": "restored"})
}
