package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bancagt/backoffice/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// RespondDomainError maps service sentinels to stable machine codes. The
// ledger-integrity case is logged loudly: it signals a broken invariant,
// not a client mistake.
func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrLedgerIntegrity):
		slog.Error("ledger integrity violation", "error", err)
		appErr = ErrLedgerIntegrity
	case errors.Is(err, domain.ErrForbidden):
		appErr = ErrForbidden
	case errors.Is(err, domain.ErrInsufficientFunds):
		appErr = ErrInsufficientFunds
	case errors.Is(err, domain.ErrSameAccountTransfer):
		appErr = ErrSelfTransfer
	case errors.Is(err, domain.ErrTransferCapExceeded):
		appErr = ErrTransferCapExceeded
	case errors.Is(err, domain.ErrDailyCapExceeded):
		appErr = ErrDailyCapExceeded
	case errors.Is(err, domain.ErrAccountNotFound):
		appErr = ErrAccountNotFound
	case errors.Is(err, domain.ErrAccountInactive):
		appErr = ErrAccountInactive
	case errors.Is(err, domain.ErrAccountExists):
		appErr = ErrAccountExists
	case errors.Is(err, domain.ErrNotReversible):
		appErr = ErrNotReversible
	case errors.Is(err, domain.ErrAlreadyReversed):
		appErr = ErrAlreadyReversed
	case errors.Is(err, domain.ErrReversalWindowExpired):
		appErr = ErrReversalWindowExpired
	case errors.Is(err, domain.ErrProductUnavailable):
		appErr = ErrProductUnavailable
	case errors.Is(err, domain.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, domain.ErrFavoriteExists):
		appErr = ErrFavoriteExists
	case errors.Is(err, domain.ErrOwnAccountFavorite):
		appErr = ErrOwnAccountFavorite
	case errors.Is(err, domain.ErrInvalidAlias):
		appErr = ErrValidationFailed
	case errors.Is(err, domain.ErrVersionConflict):
		appErr = ErrVersionConflict
	case errors.Is(err, domain.ErrRateProviderFailure):
		appErr = ErrRateProviderFailure
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
