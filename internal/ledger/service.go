package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bancagt/backoffice/internal/config"
	"github.com/bancagt/backoffice/internal/domain"
)

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	ApplyDelta(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance, newTotalIn, newTotalOut, newVersion int64) error
}

type movementRepo interface {
	Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Movement, error)
	MarkReversed(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	SumTransfersSince(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, since time.Time) (int64, error)
	Find(ctx context.Context, f domain.MovementFilter) ([]domain.Movement, int, error)
	FindDetailed(ctx context.Context, f domain.MovementFilter) ([]domain.MovementDetail, int, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

// Service is the transactional boundary of the ledger: every operation
// either commits all of its balance mutations and the journal append, or
// none of them.
type Service struct {
	accounts  accountRepo
	movements movementRepo
	products  productRepo
	db        *sql.DB
	config    *config.Config
	now       func() time.Time
}

func NewService(accounts accountRepo, movements movementRepo, products productRepo, db *sql.DB, cfg *config.Config) *Service {
	return &Service{
		accounts:  accounts,
		movements: movements,
		products:  products,
		db:        db,
		config:    cfg,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, for tests exercising the reversal
// window and the daily-cap day boundary.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetMovement returns one journal record. Clients may only read movements
// touching their own account.
func (s *Service) GetMovement(ctx context.Context, id uuid.UUID, caller domain.Principal) (*domain.Movement, error) {
	m, err := s.movements.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetMovement: %w", err)
	}
	if !caller.IsAdmin() {
		account, err := s.accounts.GetByOwner(ctx, caller.ID)
		if err != nil {
			return nil, fmt.Errorf("GetMovement: %w", err)
		}
		if !movementTouches(m, account.ID) {
			return nil, fmt.Errorf("GetMovement: %w", domain.ErrForbidden)
		}
	}
	return m, nil
}

func movementTouches(m *domain.Movement, accountID uuid.UUID) bool {
	if m.SourceAccountID != nil && *m.SourceAccountID == accountID {
		return true
	}
	return m.DestAccountID != nil && *m.DestAccountID == accountID
}

// FindMovements serves the journal read path. Clients only see movements
// touching their own account; admins may filter freely.
func (s *Service) FindMovements(ctx context.Context, f domain.MovementFilter, caller domain.Principal) ([]domain.MovementDetail, int, error) {
	if !caller.IsAdmin() {
		account, err := s.accounts.GetByOwner(ctx, caller.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("FindMovements: %w", err)
		}
		f.AccountID = &account.ID
	}
	details, total, err := s.movements.FindDetailed(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("FindMovements: %w", err)
	}
	return details, total, nil
}

// AccountHistory lists all movements touching an account, newest first,
// restricted to the owner or an admin.
func (s *Service) AccountHistory(ctx context.Context, number string, kind *domain.MovementKind, caller domain.Principal, limit, offset int) (*domain.Account, []domain.MovementDetail, int, error) {
	account, err := s.accounts.GetByNumber(ctx, number)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("AccountHistory: %w", err)
	}
	if account.OwnerID != caller.ID && !caller.IsAdmin() {
		return nil, nil, 0, fmt.Errorf("AccountHistory: %w", domain.ErrForbidden)
	}

	details, total, err := s.movements.FindDetailed(ctx, domain.MovementFilter{
		AccountID: &account.ID,
		Kind:      kind,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("AccountHistory: %w", err)
	}
	return account, details, total, nil
}

// lockAccountsInOrder acquires FOR UPDATE locks in ascending id order
// regardless of transfer direction, so two opposing transfers cannot
// deadlock.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts accountRepo, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, nil
}

// credit and debit write the guarded balance update for one locked account.
// A version conflict here is impossible unless something bypassed the row
// lock, so it is escalated to a fatal integrity error rather than a retry.
func (s *Service) credit(ctx context.Context, tx *sql.Tx, a *domain.Account, amount int64) error {
	err := s.accounts.ApplyDelta(ctx, tx, a.ID, a.Balance+amount, a.TotalIn+amount, a.TotalOut, a.Version+1)
	if err != nil {
		return integrityCheck("credit", a.ID, err)
	}
	return nil
}

func (s *Service) debit(ctx context.Context, tx *sql.Tx, a *domain.Account, amount int64) error {
	if a.Balance < amount {
		return fmt.Errorf("debit: %w", domain.ErrInsufficientFunds)
	}
	err := s.accounts.ApplyDelta(ctx, tx, a.ID, a.Balance-amount, a.TotalIn, a.TotalOut+amount, a.Version+1)
	if err != nil {
		return integrityCheck("debit", a.ID, err)
	}
	return nil
}

// reverseCredit undoes an earlier credit: balance and cumulative inflow
// both shrink by the original amount.
func (s *Service) reverseCredit(ctx context.Context, tx *sql.Tx, a *domain.Account, amount int64) error {
	if a.Balance < amount {
		return fmt.Errorf("reverseCredit: %w", domain.ErrInsufficientFunds)
	}
	err := s.accounts.ApplyDelta(ctx, tx, a.ID, a.Balance-amount, a.TotalIn-amount, a.TotalOut, a.Version+1)
	if err != nil {
		return integrityCheck("reverseCredit", a.ID, err)
	}
	return nil
}

func integrityCheck(op string, id uuid.UUID, err error) error {
	if errors.Is(err, domain.ErrVersionConflict) {
		return fmt.Errorf("%s: account %s changed under lock: %w", op, id, domain.ErrLedgerIntegrity)
	}
	return fmt.Errorf("%s: %w", op, err)
}
