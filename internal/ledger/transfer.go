package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/logging"
)

type TransferRequest struct {
	SourceNumber string
	DestNumber   string
	Amount       int64
	Description  string
	Initiator    domain.Principal
}

// Transfer moves funds between two accounts and appends one TRANSFER
// movement referencing both, as a single atomic unit. The daily-cap sum is
// recomputed inside the transaction, after the source row lock is held, so
// two concurrent transfers cannot jointly exceed the cap.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*domain.Movement, error) {
	log := logging.FromContext(ctx)

	source, err := s.accounts.GetByNumber(ctx, req.SourceNumber)
	if err != nil {
		return nil, fmt.Errorf("Transfer: source: %w", wrapNotFound(err, domain.ErrAccountNotFound))
	}
	dest, err := s.accounts.GetByNumber(ctx, req.DestNumber)
	if err != nil {
		return nil, fmt.Errorf("Transfer: destination: %w", wrapNotFound(err, domain.ErrAccountNotFound))
	}

	if source.OwnerID != req.Initiator.ID && !req.Initiator.IsAdmin() {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrForbidden)
	}

	// Unlocked precheck: rejects the obvious failures cheaply. Everything
	// is re-validated under the row locks before any write.
	if err := validateTransfer(req.Amount, source, dest, s.config.TransferTxCap, s.config.TransferDailyCap, 0); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	m, err := s.executeTransfer(ctx, req, source.ID, dest.ID)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	log.Info("transfer completed",
		"movement_id", m.ID,
		"source_account", source.ID,
		"dest_account", dest.ID,
		"amount", req.Amount,
	)

	return m, nil
}

func (s *Service) executeTransfer(ctx context.Context, req TransferRequest, sourceID, destID uuid.UUID) (*domain.Movement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := lockAccountsInOrder(ctx, tx, s.accounts, sourceID, destID)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}
	source, dest := locked[sourceID], locked[destID]

	now := s.now().UTC()
	sentToday, err := s.movements.SumTransfersSince(ctx, tx, sourceID, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}

	if err := validateTransfer(req.Amount, source, dest, s.config.TransferTxCap, s.config.TransferDailyCap, sentToday); err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}

	m := &domain.Movement{
		ID:              uuid.New(),
		SourceAccountID: &source.ID,
		DestAccountID:   &dest.ID,
		Amount:          req.Amount,
		Kind:            domain.MovementKindTransfer,
		OccurredAt:      now,
		Description:     defaultDescription(req.Description, "Transfer"),
	}
	if err := s.movements.Create(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("executeTransfer: append movement: %w", err)
	}

	if err := s.debit(ctx, tx, source, req.Amount); err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}
	if err := s.credit(ctx, tx, dest, req.Amount); err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("executeTransfer: commit: %w", err)
	}

	return m, nil
}

// startOfDay pins the daily cap to the UTC calendar day.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func defaultDescription(desc, fallback string) string {
	if desc == "" {
		return fallback
	}
	return desc
}

// wrapNotFound narrows a generic NotFound into the operation's specific
// sentinel while keeping unexpected errors untouched.
func wrapNotFound(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return sentinel
	}
	return err
}
