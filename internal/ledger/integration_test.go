package ledger_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancagt/backoffice/internal/config"
	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/ledger"
	"github.com/bancagt/backoffice/internal/repository"
	"github.com/bancagt/backoffice/internal/testutil"
)

func newLedgerService(t *testing.T) (*ledger.Service, *sql.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		TransferTxCap:     200000,
		TransferDailyCap:  1000000,
		ReversalWindowMin: 60,
	}
	svc := ledger.NewService(
		repository.NewAccountRepository(db),
		repository.NewMovementRepository(db),
		repository.NewProductRepository(db),
		db, cfg,
	)
	return svc, db
}

func principal(u *domain.User) domain.Principal {
	return domain.Principal{ID: u.ID, Name: u.Name, Role: u.Role}
}

func TestTransfer_MovesFundsAtomically(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "Bob", domain.RoleClient)
	src := testutil.SeedTestAccount(t, db, alice.ID, "1000000001", 50000)
	dst := testutil.SeedTestAccount(t, db, bob.ID, "1000000002", 30000)

	m, err := svc.Transfer(context.Background(), ledger.TransferRequest{
		SourceNumber: src.Number,
		DestNumber:   dst.Number,
		Amount:       20000,
		Initiator:    principal(alice),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MovementKindTransfer, m.Kind)
	require.NotNil(t, m.SourceAccountID)
	require.NotNil(t, m.DestAccountID)
	assert.Equal(t, src.ID, *m.SourceAccountID)
	assert.Equal(t, dst.ID, *m.DestAccountID)

	assert.Equal(t, int64(30000), testutil.GetAccountBalance(t, db, src.ID))
	assert.Equal(t, int64(50000), testutil.GetAccountBalance(t, db, dst.ID))
	assert.Equal(t, 1, testutil.CountMovements(t, db, src.ID))
}

func TestTransfer_Rejections(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "Bob", domain.RoleClient)
	src := testutil.SeedTestAccount(t, db, alice.ID, "2000000001", 500000)
	dst := testutil.SeedTestAccount(t, db, bob.ID, "2000000002", 0)

	send := func(sourceNum, destNum string, amount int64, initiator domain.Principal) error {
		_, err := svc.Transfer(context.Background(), ledger.TransferRequest{
			SourceNumber: sourceNum,
			DestNumber:   destNum,
			Amount:       amount,
			Initiator:    initiator,
		})
		return err
	}

	require.ErrorIs(t, send(src.Number, src.Number, 100, principal(alice)), domain.ErrSameAccountTransfer)
	require.ErrorIs(t, send(src.Number, dst.Number, 0, principal(alice)), domain.ErrInvalidAmount)
	require.ErrorIs(t, send(src.Number, dst.Number, 200001, principal(alice)), domain.ErrTransferCapExceeded)
	require.ErrorIs(t, send(src.Number, dst.Number, 100, principal(bob)), domain.ErrForbidden)
	require.ErrorIs(t, send(src.Number, "9999999999", 100, principal(alice)), domain.ErrAccountNotFound)

	// Nothing above may have touched either balance or the journal.
	assert.Equal(t, int64(500000), testutil.GetAccountBalance(t, db, src.ID))
	assert.Equal(t, 0, testutil.CountMovements(t, db, src.ID))
}

// Twenty concurrent transfers race over a balance that only covers
// nineteen. Exactly one must fail, and the journal must account for every
// centavo that moved.
func TestTransfer_ConcurrentDrain(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	const n = 20
	const amount int64 = 1000

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "Bob", domain.RoleClient)
	src := testutil.SeedTestAccount(t, db, alice.ID, "3000000001", (n-1)*amount)
	dst := testutil.SeedTestAccount(t, db, bob.ID, "3000000002", 0)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Transfer(context.Background(), ledger.TransferRequest{
				SourceNumber: src.Number,
				DestNumber:   dst.Number,
				Amount:       amount,
				Initiator:    principal(alice),
			})
		}()
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	assert.Equal(t, int64(0), testutil.GetAccountBalance(t, db, src.ID))
	assert.Equal(t, (n-1)*amount, testutil.GetAccountBalance(t, db, dst.ID))
	assert.Equal(t, n-1, testutil.CountMovements(t, db, src.ID))
}

// Two concurrent transfers individually under the daily cap but jointly
// over it: the in-transaction recheck must reject exactly one.
func TestTransfer_ConcurrentDailyCap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "Bob", domain.RoleClient)
	src := testutil.SeedTestAccount(t, db, alice.ID, "4000000001", 10000000)
	dst := testutil.SeedTestAccount(t, db, bob.ID, "4000000002", 0)

	// Four transfers at the per-transfer cap fill Q8,000 of the Q10,000 day.
	for range 4 {
		_, err := svc.Transfer(context.Background(), ledger.TransferRequest{
			SourceNumber: src.Number,
			DestNumber:   dst.Number,
			Amount:       200000,
			Initiator:    principal(alice),
		})
		require.NoError(t, err)
	}

	// Two more at the cap race for the remaining Q2,000 headroom.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Transfer(context.Background(), ledger.TransferRequest{
				SourceNumber: src.Number,
				DestNumber:   dst.Number,
				Amount:       200000,
				Initiator:    principal(alice),
			})
		}()
	}
	wg.Wait()

	var capped int
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domain.ErrDailyCapExceeded)
			capped++
		}
	}
	assert.Equal(t, 1, capped)
	assert.Equal(t, int64(1000000), testutil.GetAccountBalance(t, db, dst.ID))
}

func TestDeposit_CreditsAndJournals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "Bob", domain.RoleClient)
	account := testutil.SeedTestAccount(t, db, alice.ID, "5000000001", 0)

	// Anyone may deposit into any active account.
	m, err := svc.Deposit(context.Background(), ledger.DepositRequest{
		DestNumber: account.Number,
		Amount:     75000,
		Initiator:  principal(bob),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MovementKindDeposit, m.Kind)
	assert.Contains(t, m.Description, "Bob")
	assert.Equal(t, int64(75000), testutil.GetAccountBalance(t, db, account.ID))

	_, err = svc.Deposit(context.Background(), ledger.DepositRequest{
		DestNumber: account.Number,
		Amount:     -5,
		Initiator:  principal(bob),
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	// A foreign-tender deposit keeps what was handed over and at which rate.
	foreign := int64(1000)
	rate := decimal.RequireFromString("7.8")
	fm, err := svc.Deposit(context.Background(), ledger.DepositRequest{
		DestNumber:      account.Number,
		Amount:          78000,
		Initiator:       principal(bob),
		ConvertedAmount: &foreign,
		ExchangeRate:    &rate,
	})
	require.NoError(t, err)

	stored, err := svc.GetMovement(context.Background(), fm.ID, principal(alice))
	require.NoError(t, err)
	require.NotNil(t, stored.ConvertedAmount)
	assert.Equal(t, foreign, *stored.ConvertedAmount)
	require.NotNil(t, stored.ExchangeRate)
	assert.True(t, stored.ExchangeRate.Equal(rate))
	assert.Equal(t, int64(153000), testutil.GetAccountBalance(t, db, account.ID))
}

func TestCredit_AdminOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	admin := testutil.SeedTestUser(t, db, "Root", domain.RoleAdmin)
	account := testutil.SeedTestAccount(t, db, alice.ID, "5100000001", 0)

	_, err := svc.Credit(context.Background(), ledger.DepositRequest{
		DestNumber: account.Number,
		Amount:     10000,
		Initiator:  principal(alice),
	})
	require.ErrorIs(t, err, domain.ErrForbidden)

	m, err := svc.Credit(context.Background(), ledger.DepositRequest{
		DestNumber: account.Number,
		Amount:     10000,
		Initiator:  principal(admin),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MovementKindCredit, m.Kind)
	assert.Equal(t, int64(10000), testutil.GetAccountBalance(t, db, account.ID))
}

func TestPurchase_DebitsPrice(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	account := testutil.SeedTestAccount(t, db, alice.ID, "5200000001", 80000)
	product := testutil.SeedTestProduct(t, db, "Travel insurance", 30000, true)
	soldOut := testutil.SeedTestProduct(t, db, "Gold card", 5000, false)

	m, err := svc.Purchase(context.Background(), ledger.PurchaseRequest{
		SourceNumber: account.Number,
		ProductID:    product.ID,
		Initiator:    principal(alice),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MovementKindPurchase, m.Kind)
	require.NotNil(t, m.ProductID)
	assert.Equal(t, product.ID, *m.ProductID)
	assert.Contains(t, m.Description, product.Name)
	assert.Equal(t, int64(50000), testutil.GetAccountBalance(t, db, account.ID))

	_, err = svc.Purchase(context.Background(), ledger.PurchaseRequest{
		SourceNumber: account.Number,
		ProductID:    soldOut.ID,
		Initiator:    principal(alice),
	})
	require.ErrorIs(t, err, domain.ErrProductUnavailable)
}

func TestReverseDeposit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	admin := testutil.SeedTestUser(t, db, "Root", domain.RoleAdmin)
	account := testutil.SeedTestAccount(t, db, alice.ID, "6000000001", 0)

	deposit, err := svc.Deposit(context.Background(), ledger.DepositRequest{
		DestNumber: account.Number,
		Amount:     40000,
		Initiator:  principal(alice),
	})
	require.NoError(t, err)

	_, err = svc.ReverseDeposit(context.Background(), deposit.ID, principal(alice))
	require.ErrorIs(t, err, domain.ErrForbidden)

	cancellation, err := svc.ReverseDeposit(context.Background(), deposit.ID, principal(admin))
	require.NoError(t, err)

	assert.Equal(t, domain.MovementKindCancellation, cancellation.Kind)
	require.NotNil(t, cancellation.OriginalMovementID)
	assert.Equal(t, deposit.ID, *cancellation.OriginalMovementID)
	assert.Equal(t, int64(0), testutil.GetAccountBalance(t, db, account.ID))

	reloaded, err := svc.GetMovement(context.Background(), deposit.ID, principal(admin))
	require.NoError(t, err)
	assert.True(t, reloaded.Reversed)

	// A second reversal of the same deposit must be refused.
	_, err = svc.ReverseDeposit(context.Background(), deposit.ID, principal(admin))
	require.ErrorIs(t, err, domain.ErrAlreadyReversed)
}

func TestReverseDeposit_ConcurrentDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	admin := testutil.SeedTestUser(t, db, "Root", domain.RoleAdmin)
	account := testutil.SeedTestAccount(t, db, alice.ID, "6100000001", 0)

	deposit, err := svc.Deposit(context.Background(), ledger.DepositRequest{
		DestNumber: account.Number,
		Amount:     25000,
		Initiator:  principal(alice),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.ReverseDeposit(context.Background(), deposit.ID, principal(admin))
		}()
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domain.ErrAlreadyReversed)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, int64(0), testutil.GetAccountBalance(t, db, account.ID))
}

func TestReverseDeposit_WindowExpired(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	admin := testutil.SeedTestUser(t, db, "Root", domain.RoleAdmin)
	account := testutil.SeedTestAccount(t, db, alice.ID, "6200000001", 0)

	depositedAt := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return depositedAt })

	deposit, err := svc.Deposit(context.Background(), ledger.DepositRequest{
		DestNumber: account.Number,
		Amount:     40000,
		Initiator:  principal(alice),
	})
	require.NoError(t, err)

	// One second past the 60 minute window.
	svc.WithClock(func() time.Time { return depositedAt.Add(60*time.Minute + time.Second) })

	_, err = svc.ReverseDeposit(context.Background(), deposit.ID, principal(admin))
	require.ErrorIs(t, err, domain.ErrReversalWindowExpired)
	assert.Equal(t, int64(40000), testutil.GetAccountBalance(t, db, account.ID))
}

// A deposit whose funds were already transferred away cannot be reversed,
// even inside the window. Reversals are whole or not at all.
func TestReverseDeposit_SpentFunds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "Bob", domain.RoleClient)
	admin := testutil.SeedTestUser(t, db, "Root", domain.RoleAdmin)
	account := testutil.SeedTestAccount(t, db, alice.ID, "6300000001", 0)
	other := testutil.SeedTestAccount(t, db, bob.ID, "6300000002", 0)

	deposit, err := svc.Deposit(context.Background(), ledger.DepositRequest{
		DestNumber: account.Number,
		Amount:     10000,
		Initiator:  principal(alice),
	})
	require.NoError(t, err)

	_, err = svc.Transfer(context.Background(), ledger.TransferRequest{
		SourceNumber: account.Number,
		DestNumber:   other.Number,
		Amount:       5000,
		Initiator:    principal(alice),
	})
	require.NoError(t, err)

	_, err = svc.ReverseDeposit(context.Background(), deposit.ID, principal(admin))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// The failed reversal must leave no trace.
	assert.Equal(t, int64(5000), testutil.GetAccountBalance(t, db, account.ID))
	reloaded, err := svc.GetMovement(context.Background(), deposit.ID, principal(admin))
	require.NoError(t, err)
	assert.False(t, reloaded.Reversed)
}

// Every operation kind in sequence, then the journal is replayed from
// scratch: the recomputed balance must equal the stored one.
func TestJournal_RecomputesToBalance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "Bob", domain.RoleClient)
	admin := testutil.SeedTestUser(t, db, "Root", domain.RoleAdmin)
	account := testutil.SeedTestAccount(t, db, alice.ID, "7000000001", 0)
	other := testutil.SeedTestAccount(t, db, bob.ID, "7000000002", 0)
	product := testutil.SeedTestProduct(t, db, "Checkbook", 2500, true)

	ctx := context.Background()

	_, err := svc.Deposit(ctx, ledger.DepositRequest{
		DestNumber: account.Number, Amount: 100000, Initiator: principal(alice),
	})
	require.NoError(t, err)

	_, err = svc.Credit(ctx, ledger.DepositRequest{
		DestNumber: account.Number, Amount: 20000, Initiator: principal(admin),
	})
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, ledger.TransferRequest{
		SourceNumber: account.Number, DestNumber: other.Number, Amount: 30000,
		Initiator: principal(alice),
	})
	require.NoError(t, err)

	_, err = svc.Purchase(ctx, ledger.PurchaseRequest{
		SourceNumber: account.Number, ProductID: product.ID, Initiator: principal(alice),
	})
	require.NoError(t, err)

	second, err := svc.Deposit(ctx, ledger.DepositRequest{
		DestNumber: account.Number, Amount: 5000, Initiator: principal(bob),
	})
	require.NoError(t, err)

	_, err = svc.ReverseDeposit(ctx, second.ID, principal(admin))
	require.NoError(t, err)

	stored := testutil.GetAccountBalance(t, db, account.ID)
	assert.Equal(t, int64(100000+20000-30000-2500), stored)
	assert.Equal(t, stored, testutil.RecomputeBalance(t, db, account.ID))
	assert.Equal(t, int64(0+30000), testutil.GetAccountBalance(t, db, other.ID))
	assert.Equal(t, testutil.GetAccountBalance(t, db, other.ID), testutil.RecomputeBalance(t, db, other.ID))
}

func TestAccountHistory_OwnerScoped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	svc, db := newLedgerService(t)

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "Bob", domain.RoleClient)
	admin := testutil.SeedTestUser(t, db, "Root", domain.RoleAdmin)
	account := testutil.SeedTestAccount(t, db, alice.ID, "8000000001", 0)

	ctx := context.Background()
	for range 3 {
		_, err := svc.Deposit(ctx, ledger.DepositRequest{
			DestNumber: account.Number, Amount: 1000, Initiator: principal(alice),
		})
		require.NoError(t, err)
	}

	_, _, _, err := svc.AccountHistory(ctx, account.Number, nil, principal(bob), 10, 0)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, details, total, err := svc.AccountHistory(ctx, account.Number, nil, principal(alice), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, details, 2)
	// Newest first: every page entry is a deposit into this account.
	for _, d := range details {
		assert.Equal(t, domain.MovementKindDeposit, d.Kind)
		require.NotNil(t, d.DestNumber)
		assert.Equal(t, account.Number, *d.DestNumber)
	}

	kind := domain.MovementKindTransfer
	_, details, total, err = svc.AccountHistory(ctx, account.Number, &kind, principal(admin), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, details)
}
