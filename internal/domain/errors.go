package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidAmount          = errors.New("amount must be at least 0.01")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrSameAccountTransfer    = errors.New("cannot transfer to the same account")
	ErrTransferCapExceeded    = errors.New("per-transaction transfer cap exceeded")
	ErrDailyCapExceeded       = errors.New("daily transfer cap exceeded")
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrAccountExists          = errors.New("owner already has an account")
	ErrNotReversible          = errors.New("only deposits can be reversed")
	ErrAlreadyReversed        = errors.New("movement already reversed")
	ErrReversalWindowExpired  = errors.New("reversal window expired")
	ErrProductUnavailable     = errors.New("product or service not available")
	ErrInvalidCurrency        = errors.New("currency not found or inactive")
	ErrFavoriteExists         = errors.New("account already in favorites")
	ErrInvalidAlias           = errors.New("alias must not be empty")
	ErrOwnAccountFavorite     = errors.New("cannot favorite own account")
	ErrVersionConflict        = errors.New("optimistic lock conflict")
	ErrRateProviderFailure    = errors.New("rate provider unavailable")

	// ErrLedgerIntegrity marks a partial-commit detection: a guarded balance
	// write failed while the row lock was held. Never a business rejection.
	ErrLedgerIntegrity = errors.New("ledger integrity violation")
)
