package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bancagt/backoffice/internal/domain"
)

const (
	testTxCap    = 200000  // Q2,000.00
	testDailyCap = 1000000 // Q10,000.00
)

func activeAccount(balance int64) *domain.Account {
	return &domain.Account{
		ID:      uuid.New(),
		Number:  uuid.NewString()[:10],
		Balance: balance,
		Active:  true,
	}
}

func TestValidateTransfer(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		source    func() *domain.Account
		dest      func() *domain.Account
		sentToday int64
		wantErr   error
	}{
		{
			name:   "valid",
			amount: 50000,
			source: func() *domain.Account { return activeAccount(100000) },
			dest:   func() *domain.Account { return activeAccount(0) },
		},
		{
			name:   "same account",
			amount: 100,
			source: func() *domain.Account { return activeAccount(100000) },
			dest: func() *domain.Account {
				a := activeAccount(100000)
				a.Number = "same"
				return a
			},
			wantErr: domain.ErrSameAccountTransfer,
		},
		{
			name:    "zero amount",
			amount:  0,
			source:  func() *domain.Account { return activeAccount(100000) },
			dest:    func() *domain.Account { return activeAccount(0) },
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			amount:  -500,
			source:  func() *domain.Account { return activeAccount(100000) },
			dest:    func() *domain.Account { return activeAccount(0) },
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "over per-transfer cap",
			amount:  testTxCap + 1,
			source:  func() *domain.Account { return activeAccount(10000000) },
			dest:    func() *domain.Account { return activeAccount(0) },
			wantErr: domain.ErrTransferCapExceeded,
		},
		{
			name:   "exactly at per-transfer cap",
			amount: testTxCap,
			source: func() *domain.Account { return activeAccount(10000000) },
			dest:   func() *domain.Account { return activeAccount(0) },
		},
		{
			name:   "inactive source",
			amount: 100,
			source: func() *domain.Account {
				a := activeAccount(100000)
				a.Active = false
				return a
			},
			dest:    func() *domain.Account { return activeAccount(0) },
			wantErr: domain.ErrAccountInactive,
		},
		{
			name:   "inactive destination",
			amount: 100,
			source: func() *domain.Account { return activeAccount(100000) },
			dest: func() *domain.Account {
				a := activeAccount(0)
				a.Active = false
				return a
			},
			wantErr: domain.ErrAccountInactive,
		},
		{
			name:    "insufficient funds",
			amount:  100001,
			source:  func() *domain.Account { return activeAccount(100000) },
			dest:    func() *domain.Account { return activeAccount(0) },
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name:   "exact balance drains to zero",
			amount: 100000,
			source: func() *domain.Account { return activeAccount(100000) },
			dest:   func() *domain.Account { return activeAccount(0) },
		},
		{
			name:      "daily cap exceeded",
			amount:    testTxCap,
			source:    func() *domain.Account { return activeAccount(10000000) },
			dest:      func() *domain.Account { return activeAccount(0) },
			sentToday: testDailyCap - testTxCap + 1,
			wantErr:   domain.ErrDailyCapExceeded,
		},
		{
			name:      "exactly at daily cap",
			amount:    testTxCap,
			source:    func() *domain.Account { return activeAccount(10000000) },
			dest:      func() *domain.Account { return activeAccount(0) },
			sentToday: testDailyCap - testTxCap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, dest := tt.source(), tt.dest()
			err := validateTransfer(tt.amount, source, dest, testTxCap, testDailyCap, tt.sentToday)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateTransfer_SameAccountBeforeAmount(t *testing.T) {
	// A zero-amount self transfer must report the self transfer, matching
	// the documented check order.
	a := activeAccount(100000)
	err := validateTransfer(0, a, a, testTxCap, testDailyCap, 0)
	require.ErrorIs(t, err, domain.ErrSameAccountTransfer)
}

func TestValidateDeposit(t *testing.T) {
	require.NoError(t, validateDeposit(1, activeAccount(0)))
	require.ErrorIs(t, validateDeposit(0, activeAccount(0)), domain.ErrInvalidAmount)

	inactive := activeAccount(0)
	inactive.Active = false
	require.ErrorIs(t, validateDeposit(100, inactive), domain.ErrAccountInactive)
}

func TestValidateCredit(t *testing.T) {
	dest := activeAccount(0)
	client := domain.Principal{ID: uuid.New(), Role: domain.RoleClient}
	admin := domain.Principal{ID: uuid.New(), Role: domain.RoleAdmin}

	require.ErrorIs(t, validateCredit(100, dest, client), domain.ErrForbidden)
	require.NoError(t, validateCredit(100, dest, admin))
	require.ErrorIs(t, validateCredit(0, dest, admin), domain.ErrInvalidAmount)
}

func TestValidatePurchase(t *testing.T) {
	owner := uuid.New()
	account := activeAccount(5000)
	account.OwnerID = owner

	product := &domain.Product{ID: uuid.New(), Name: "Insurance", Price: 5000, Available: true}

	ownerPrincipal := domain.Principal{ID: owner, Role: domain.RoleClient}
	stranger := domain.Principal{ID: uuid.New(), Role: domain.RoleClient}
	admin := domain.Principal{ID: uuid.New(), Role: domain.RoleAdmin}

	require.NoError(t, validatePurchase(account, product, ownerPrincipal))
	require.NoError(t, validatePurchase(account, product, admin))
	require.ErrorIs(t, validatePurchase(account, product, stranger), domain.ErrForbidden)

	t.Run("unavailable product", func(t *testing.T) {
		unavailable := &domain.Product{ID: uuid.New(), Price: 100, Available: false}
		require.ErrorIs(t, validatePurchase(account, unavailable, ownerPrincipal), domain.ErrProductUnavailable)
	})

	t.Run("price above balance", func(t *testing.T) {
		pricey := &domain.Product{ID: uuid.New(), Price: 5001, Available: true}
		require.ErrorIs(t, validatePurchase(account, pricey, ownerPrincipal), domain.ErrInsufficientFunds)
	})

	t.Run("inactive account", func(t *testing.T) {
		frozen := activeAccount(5000)
		frozen.OwnerID = owner
		frozen.Active = false
		require.ErrorIs(t, validatePurchase(frozen, product, ownerPrincipal), domain.ErrAccountInactive)
	})
}
