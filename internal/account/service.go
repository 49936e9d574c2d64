package account

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/logging"
)

const maxNumberAttempts = 10

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]domain.Account, int, error)
	Create(ctx context.Context, account *domain.Account) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetClass(ctx context.Context, id uuid.UUID, class domain.AccountClass) error
}

type ownerChecker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type Service struct {
	accounts accountRepo
	owners   ownerChecker
	now      func() time.Time
}

func NewService(accounts accountRepo, owners ownerChecker) *Service {
	return &Service{accounts: accounts, owners: owners, now: time.Now}
}

// Create opens the single account an owner may hold. The account number is
// a time-seeded candidate retried until unique, so concurrent creations
// racing on the same candidate resolve by retry instead of failing.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, class domain.AccountClass) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if _, err := s.owners.GetByID(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("Create: owner: %w", err)
	}

	if class == "" {
		class = domain.AccountClassSavings
	}
	if !class.IsValid() {
		return nil, fmt.Errorf("Create: class %q: %w", class, domain.ErrNotFound)
	}

	_, err := s.accounts.GetByOwner(ctx, ownerID)
	if err == nil {
		return nil, fmt.Errorf("Create: %w", domain.ErrAccountExists)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("Create: check existing: %w", err)
	}

	var account *domain.Account
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		candidate := generateNumber(s.now())

		if _, err := s.accounts.GetByNumber(ctx, candidate); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Create: check number: %w", err)
		}

		account = &domain.Account{
			ID:        uuid.New(),
			OwnerID:   ownerID,
			Number:    candidate,
			Class:     class,
			Balance:   0,
			Version:   1,
			Active:    true,
			CreatedAt: s.now().UTC(),
		}

		err = s.accounts.Create(ctx, account)
		if err == nil {
			break
		}
		account = nil
		// A racing creation for the same owner can slip past the precheck
		// above; the owner constraint settles it and retrying cannot help.
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, fmt.Errorf("Create: %w", err)
		}
		// Two creations can race on the same candidate between the lookup
		// and the insert; the unique index settles it and we try again.
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		return nil, fmt.Errorf("Create: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("Create: no unique number after %d attempts: %w",
			maxNumberAttempts, domain.ErrVersionConflict)
	}

	log.Info("account created",
		"account_id", account.ID,
		"owner_id", ownerID,
		"number", account.Number,
		"class", class,
	)

	return account, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string, caller domain.Principal) (*domain.Account, error) {
	account, err := s.accounts.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("GetByNumber: %w", err)
	}
	if account.OwnerID != caller.ID && !caller.IsAdmin() {
		return nil, fmt.Errorf("GetByNumber: %w", domain.ErrForbidden)
	}
	return account, nil
}

func (s *Service) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("GetByOwner: %w", err)
	}
	return account, nil
}

func (s *Service) List(ctx context.Context, caller domain.Principal, limit, offset int) ([]domain.Account, int, error) {
	if !caller.IsAdmin() {
		return nil, 0, fmt.Errorf("List: %w", domain.ErrForbidden)
	}
	accounts, total, err := s.accounts.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	return accounts, total, nil
}

// Deactivate is the soft delete: the row stays because movements reference
// it, but the ledger refuses further operations on an inactive account.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, caller domain.Principal) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("Deactivate: %w", domain.ErrForbidden)
	}
	if err := s.accounts.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}
	return nil
}

// UpdateClass reclassifies an account between SAVINGS and CHECKING. The
// class has no ledger meaning, so no lock is needed.
func (s *Service) UpdateClass(ctx context.Context, id uuid.UUID, class domain.AccountClass, caller domain.Principal) (*domain.Account, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("UpdateClass: %w", domain.ErrForbidden)
	}
	if !class.IsValid() {
		return nil, fmt.Errorf("UpdateClass: class %q: %w", class, domain.ErrNotFound)
	}
	if err := s.accounts.SetClass(ctx, id, class); err != nil {
		return nil, fmt.Errorf("UpdateClass: %w", err)
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateClass: %w", err)
	}
	return account, nil
}

// generateNumber builds a 10-digit candidate from the clock's trailing
// millisecond digits plus 4 random digits. Uniqueness comes from the retry
// loop and the unique index, not from this function.
func generateNumber(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	suffix := fmt.Sprintf("%04d", rand.Intn(10000))
	return ts[len(ts)-6:] + suffix
}
