package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/logging"
)

type favoriteRepo interface {
	Create(ctx context.Context, f *domain.Favorite) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Favorite, error)
	GetByOwnerAndAlias(ctx context.Context, ownerID uuid.UUID, alias string) (*domain.Favorite, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Favorite, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type accountRepo interface {
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
}

// Service manages per-user transfer shortcuts: a saved alias for someone
// else's account number.
type Service struct {
	favorites favoriteRepo
	accounts  accountRepo
	now       func() time.Time
}

func NewService(favorites favoriteRepo, accounts accountRepo) *Service {
	return &Service{favorites: favorites, accounts: accounts, now: time.Now}
}

func (s *Service) Add(ctx context.Context, owner domain.Principal, accountNumber, alias string) (*domain.Favorite, error) {
	if alias == "" {
		return nil, fmt.Errorf("Add: %w", domain.ErrInvalidAlias)
	}

	account, err := s.accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Add: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("Add: %w", err)
	}
	if account.OwnerID == owner.ID {
		return nil, fmt.Errorf("Add: %w", domain.ErrOwnAccountFavorite)
	}

	f := &domain.Favorite{
		ID:            uuid.New(),
		OwnerID:       owner.ID,
		AccountID:     account.ID,
		AccountNumber: account.Number,
		Alias:         alias,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.favorites.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("Add: %w", err)
	}

	logging.FromContext(ctx).Info("favorite added",
		"favorite_id", f.ID, "owner_id", owner.ID, "account_id", account.ID)

	return f, nil
}

func (s *Service) List(ctx context.Context, owner domain.Principal) ([]domain.Favorite, error) {
	favorites, err := s.favorites.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return favorites, nil
}

func (s *Service) Remove(ctx context.Context, owner domain.Principal, id uuid.UUID) error {
	f, err := s.favorites.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("Remove: %w", err)
	}
	if f.OwnerID != owner.ID {
		return fmt.Errorf("Remove: %w", domain.ErrForbidden)
	}
	if err := s.favorites.Delete(ctx, id); err != nil {
		return fmt.Errorf("Remove: %w", err)
	}
	return nil
}

// Resolve maps one of the owner's aliases to the underlying account number,
// so a transfer can be addressed by alias.
func (s *Service) Resolve(ctx context.Context, owner domain.Principal, alias string) (string, error) {
	f, err := s.favorites.GetByOwnerAndAlias(ctx, owner.ID, alias)
	if err != nil {
		return "", fmt.Errorf("Resolve: %w", err)
	}
	return f.AccountNumber, nil
}
