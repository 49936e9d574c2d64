package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/logging"
)

type DepositRequest struct {
	DestNumber  string
	Amount      int64
	Description string
	Initiator   domain.Principal

	// Set when the deposit was tendered in a foreign currency: the original
	// amount in that currency's minor units and the rate used to convert it.
	// Amount is always base-currency centavos; these are a journal snapshot
	// only.
	ConvertedAmount *int64
	ExchangeRate    *decimal.Decimal
}

// Deposit credits an account and appends a DEPOSIT movement. Any
// authenticated principal may deposit into any active account; the
// initiator is recorded in the description so the journal keeps who paid
// in, not only where the money landed.
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (*domain.Movement, error) {
	m, err := s.executeCredit(ctx, req, domain.MovementKindDeposit, "Deposit")
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	return m, nil
}

// Credit is the administrative variant of a deposit, used for back-office
// adjustments. It shares the deposit mechanics but requires an admin.
func (s *Service) Credit(ctx context.Context, req DepositRequest) (*domain.Movement, error) {
	if !req.Initiator.IsAdmin() {
		return nil, fmt.Errorf("Credit: %w", domain.ErrForbidden)
	}
	m, err := s.executeCredit(ctx, req, domain.MovementKindCredit, "Credit")
	if err != nil {
		return nil, fmt.Errorf("Credit: %w", err)
	}
	return m, nil
}

func (s *Service) executeCredit(ctx context.Context, req DepositRequest, kind domain.MovementKind, fallback string) (*domain.Movement, error) {
	log := logging.FromContext(ctx)

	dest, err := s.accounts.GetByNumber(ctx, req.DestNumber)
	if err != nil {
		return nil, fmt.Errorf("executeCredit: destination: %w", wrapNotFound(err, domain.ErrAccountNotFound))
	}

	if err := validateDeposit(req.Amount, dest); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("executeCredit: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.accounts.GetForUpdate(ctx, tx, dest.ID)
	if err != nil {
		return nil, fmt.Errorf("executeCredit: lock destination: %w", err)
	}
	if err := validateDeposit(req.Amount, locked); err != nil {
		return nil, err
	}

	m := &domain.Movement{
		ID:              uuid.New(),
		DestAccountID:   &locked.ID,
		Amount:          req.Amount,
		Kind:            kind,
		OccurredAt:      s.now().UTC(),
		Description:     annotateInitiator(defaultDescription(req.Description, fallback), req.Initiator),
		ConvertedAmount: req.ConvertedAmount,
		ExchangeRate:    req.ExchangeRate,
	}
	if err := s.movements.Create(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("executeCredit: append movement: %w", err)
	}

	if err := s.credit(ctx, tx, locked, req.Amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("executeCredit: commit: %w", err)
	}

	log.Info("account credited",
		"movement_id", m.ID,
		"dest_account", locked.ID,
		"amount", req.Amount,
		"kind", kind,
	)

	return m, nil
}

func annotateInitiator(desc string, p domain.Principal) string {
	if p.Name == "" {
		return desc
	}
	return fmt.Sprintf("%s (initiated by: %s)", desc, p.Name)
}
