package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/repository"
	"github.com/bancagt/backoffice/internal/testutil"
)

func newAccount(ownerID uuid.UUID, number string) *domain.Account {
	return &domain.Account{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Number:    number,
		Class:     domain.AccountClassSavings,
		Version:   1,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

// The two unique constraints on accounts mean different things: a duplicate
// number is a retryable candidate collision, a duplicate owner is final.
func TestAccountCreate_UniqueConstraints(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := testutil.SetupTestDB(t)
	repo := repository.NewAccountRepository(db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "Alice", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "Bob", domain.RoleClient)

	require.NoError(t, repo.Create(ctx, newAccount(alice.ID, "9000000001")))

	err := repo.Create(ctx, newAccount(alice.ID, "9000000002"))
	require.ErrorIs(t, err, domain.ErrAccountExists)
	require.NotErrorIs(t, err, domain.ErrVersionConflict)

	err = repo.Create(ctx, newAccount(bob.ID, "9000000001"))
	require.ErrorIs(t, err, domain.ErrVersionConflict)
}
