package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/logging"
)

type PurchaseRequest struct {
	SourceNumber string
	ProductID    uuid.UUID
	Initiator    domain.Principal
}

// Purchase debits the account by the catalog price and appends a PURCHASE
// movement linked to the product. The price is read once and used for both
// the validation and the debit, so a concurrent price change cannot split
// the two.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) (*domain.Movement, error) {
	log := logging.FromContext(ctx)

	source, err := s.accounts.GetByNumber(ctx, req.SourceNumber)
	if err != nil {
		return nil, fmt.Errorf("Purchase: source: %w", wrapNotFound(err, domain.ErrAccountNotFound))
	}

	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("Purchase: product: %w", err)
	}

	if err := validatePurchase(source, product, req.Initiator); err != nil {
		return nil, fmt.Errorf("Purchase: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Purchase: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.accounts.GetForUpdate(ctx, tx, source.ID)
	if err != nil {
		return nil, fmt.Errorf("Purchase: lock source: %w", err)
	}
	if err := validatePurchase(locked, product, req.Initiator); err != nil {
		return nil, fmt.Errorf("Purchase: %w", err)
	}

	m := &domain.Movement{
		ID:              uuid.New(),
		SourceAccountID: &locked.ID,
		Amount:          product.Price,
		Kind:            domain.MovementKindPurchase,
		ProductID:       &product.ID,
		OccurredAt:      s.now().UTC(),
		Description:     fmt.Sprintf("Purchase: %s", product.Name),
	}
	if err := s.movements.Create(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("Purchase: append movement: %w", err)
	}

	if err := s.debit(ctx, tx, locked, product.Price); err != nil {
		return nil, fmt.Errorf("Purchase: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Purchase: commit: %w", err)
	}

	log.Info("purchase completed",
		"movement_id", m.ID,
		"source_account", locked.ID,
		"product_id", product.ID,
		"amount", product.Price,
	)

	return m, nil
}
