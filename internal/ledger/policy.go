package ledger

import (
	"fmt"

	"github.com/bancagt/backoffice/internal/domain"
)

// The policy functions are pure: they decide, they never mutate. The caps
// come from config so every code path shares one definition. Checks run in
// a fixed order and each rule fails with its own sentinel.

func validateTransfer(amount int64, source, dest *domain.Account, txCap, dailyCap, sentToday int64) error {
	if source.Number == dest.Number {
		return fmt.Errorf("validateTransfer: %w", domain.ErrSameAccountTransfer)
	}
	if amount <= 0 {
		return fmt.Errorf("validateTransfer: %w", domain.ErrInvalidAmount)
	}
	if amount > txCap {
		return fmt.Errorf("validateTransfer: %w", domain.ErrTransferCapExceeded)
	}
	if !source.Active {
		return fmt.Errorf("validateTransfer: source: %w", domain.ErrAccountInactive)
	}
	if !dest.Active {
		return fmt.Errorf("validateTransfer: destination: %w", domain.ErrAccountInactive)
	}
	if source.Balance < amount {
		return fmt.Errorf("validateTransfer: %w", domain.ErrInsufficientFunds)
	}
	if sentToday+amount > dailyCap {
		return fmt.Errorf("validateTransfer: %w", domain.ErrDailyCapExceeded)
	}
	return nil
}

func validateDeposit(amount int64, dest *domain.Account) error {
	if amount <= 0 {
		return fmt.Errorf("validateDeposit: %w", domain.ErrInvalidAmount)
	}
	if !dest.Active {
		return fmt.Errorf("validateDeposit: %w", domain.ErrAccountInactive)
	}
	return nil
}

// validateCredit is a deposit that only an administrative principal may
// initiate.
func validateCredit(amount int64, dest *domain.Account, initiator domain.Principal) error {
	if !initiator.IsAdmin() {
		return fmt.Errorf("validateCredit: %w", domain.ErrForbidden)
	}
	return validateDeposit(amount, dest)
}

func validatePurchase(account *domain.Account, product *domain.Product, initiator domain.Principal) error {
	if account.OwnerID != initiator.ID && !initiator.IsAdmin() {
		return fmt.Errorf("validatePurchase: %w", domain.ErrForbidden)
	}
	if !account.Active {
		return fmt.Errorf("validatePurchase: %w", domain.ErrAccountInactive)
	}
	if !product.Available {
		return fmt.Errorf("validatePurchase: %w", domain.ErrProductUnavailable)
	}
	if account.Balance < product.Price {
		return fmt.Errorf("validatePurchase: %w", domain.ErrInsufficientFunds)
	}
	return nil
}
