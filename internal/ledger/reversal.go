package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/logging"
)

// reversalEligibility decides whether a movement can still be undone. Only
// deposits are reversible, each at most once, and only within the
// configured window of its original timestamp.
func reversalEligibility(m *domain.Movement, now time.Time, window time.Duration) error {
	if m.Kind != domain.MovementKindDeposit {
		return fmt.Errorf("reversalEligibility: kind %s: %w", m.Kind, domain.ErrNotReversible)
	}
	if m.Reversed {
		return fmt.Errorf("reversalEligibility: %w", domain.ErrAlreadyReversed)
	}
	if now.Sub(m.OccurredAt) > window {
		return fmt.Errorf("reversalEligibility: %w", domain.ErrReversalWindowExpired)
	}
	return nil
}

// ReverseDeposit undoes a deposit: it marks the original movement reversed,
// appends a CANCELLATION movement linked back to it, and withdraws the
// deposited amount. If the funds were already spent the reversal is
// refused whole; partial reversals do not exist.
func (s *Service) ReverseDeposit(ctx context.Context, movementID uuid.UUID, initiator domain.Principal) (*domain.Movement, error) {
	log := logging.FromContext(ctx)

	if !initiator.IsAdmin() {
		return nil, fmt.Errorf("ReverseDeposit: %w", domain.ErrForbidden)
	}

	original, err := s.movements.GetByID(ctx, movementID)
	if err != nil {
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}
	if err := reversalEligibility(original, s.now().UTC(), s.config.ReversalWindow()); err != nil {
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReverseDeposit: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Re-read under lock: two concurrent reversals of the same deposit must
	// serialize here, and the loser sees reversed=true.
	original, err = s.movements.GetForUpdate(ctx, tx, movementID)
	if err != nil {
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}
	if err := reversalEligibility(original, s.now().UTC(), s.config.ReversalWindow()); err != nil {
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}
	if original.DestAccountID == nil {
		return nil, fmt.Errorf("ReverseDeposit: deposit %s has no destination: %w",
			original.ID, domain.ErrLedgerIntegrity)
	}

	dest, err := s.accounts.GetForUpdate(ctx, tx, *original.DestAccountID)
	if err != nil {
		return nil, fmt.Errorf("ReverseDeposit: lock destination: %w", err)
	}
	if dest.Balance < original.Amount {
		return nil, fmt.Errorf("ReverseDeposit: funds already spent: %w", domain.ErrInsufficientFunds)
	}

	if err := s.movements.MarkReversed(ctx, tx, original.ID); err != nil {
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}

	cancellation := &domain.Movement{
		ID:                 uuid.New(),
		SourceAccountID:    original.DestAccountID,
		Amount:             original.Amount,
		Kind:               domain.MovementKindCancellation,
		OccurredAt:         s.now().UTC(),
		OriginalMovementID: &original.ID,
		Description:        annotateInitiator(fmt.Sprintf("Reversal of deposit %s", original.ID), initiator),
	}
	if err := s.movements.Create(ctx, tx, cancellation); err != nil {
		return nil, fmt.Errorf("ReverseDeposit: append cancellation: %w", err)
	}

	if err := s.reverseCredit(ctx, tx, dest, original.Amount); err != nil {
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReverseDeposit: commit: %w", err)
	}

	log.Info("deposit reversed",
		"original_movement_id", original.ID,
		"cancellation_id", cancellation.ID,
		"dest_account", dest.ID,
		"amount", original.Amount,
	)

	return cancellation, nil
}
