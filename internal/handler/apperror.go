package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrForbidden          = &AppError{http.StatusForbidden, "FORBIDDEN", "Not allowed to perform this operation"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount         = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be at least 0.01"}
	ErrInsufficientFunds     = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrSelfTransfer          = &AppError{http.StatusUnprocessableEntity, "SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to the same account"}
	ErrTransferCapExceeded   = &AppError{http.StatusUnprocessableEntity, "TRANSFER_CAP_EXCEEDED", "Per-transaction transfer cap exceeded"}
	ErrDailyCapExceeded      = &AppError{http.StatusUnprocessableEntity, "DAILY_CAP_EXCEEDED", "Daily transfer cap exceeded"}
	ErrAccountNotFound       = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrAccountInactive       = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_INACTIVE", "Account is inactive"}
	ErrAccountExists         = &AppError{http.StatusConflict, "ACCOUNT_ALREADY_EXISTS", "Owner already has an account"}
	ErrNotReversible         = &AppError{http.StatusUnprocessableEntity, "NOT_REVERSIBLE", "Only deposits can be reversed"}
	ErrAlreadyReversed       = &AppError{http.StatusConflict, "ALREADY_REVERSED", "Movement already reversed"}
	ErrReversalWindowExpired = &AppError{http.StatusUnprocessableEntity, "REVERSAL_WINDOW_EXPIRED", "Reversal window expired"}
	ErrProductUnavailable    = &AppError{http.StatusUnprocessableEntity, "PRODUCT_UNAVAILABLE", "Product or service not available"}
	ErrInvalidCurrency       = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Currency not found or inactive"}
	ErrFavoriteExists        = &AppError{http.StatusConflict, "FAVORITE_ALREADY_EXISTS", "Account already in favorites"}
	ErrOwnAccountFavorite    = &AppError{http.StatusUnprocessableEntity, "OWN_ACCOUNT_FAVORITE", "Cannot favorite own account"}
	ErrVersionConflict       = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrRateProviderFailure   = &AppError{http.StatusBadGateway, "RATE_PROVIDER_UNAVAILABLE", "Rate provider unavailable, stored rates still apply"}
	ErrLedgerIntegrity       = &AppError{http.StatusInternalServerError, "LEDGER_INTEGRITY", "Ledger integrity violation"}
)
