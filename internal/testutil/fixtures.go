package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/bancagt/backoffice/internal/domain"
)

func SeedTestUser(t *testing.T, db *sql.DB, name string, role domain.Role) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("%s@test.local", uuid.NewString()[:8]),
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, role, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Active, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", name, err)
	}
	return u
}

func SeedTestAccount(t *testing.T, db *sql.DB, ownerID uuid.UUID, number string, balance int64) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Number:    number,
		Class:     domain.AccountClassSavings,
		Balance:   balance,
		TotalIn:   balance,
		Version:   1,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, owner_id, number, class, balance, total_in, total_out, version, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.OwnerID, a.Number, a.Class, a.Balance, a.TotalIn, a.TotalOut, a.Version, a.Active, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test account %s: %v", number, err)
	}
	return a
}

func SeedTestProduct(t *testing.T, db *sql.DB, name string, price int64, available bool) *domain.Product {
	t.Helper()

	p := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     price,
		Available: available,
	}

	_, err := db.Exec(
		`INSERT INTO products (id, name, price, available)
		 VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.Price, p.Available,
	)
	if err != nil {
		t.Fatalf("seed test product %s: %v", name, err)
	}
	return p
}

func SeedTestCurrency(t *testing.T, db *sql.DB, code, name string, rate decimal.Decimal) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO currencies (code, name, rate, active, updated_at)
		 VALUES ($1, $2, $3, TRUE, NOW())
		 ON CONFLICT (code) DO UPDATE SET rate = EXCLUDED.rate`,
		code, name, rate,
	)
	if err != nil {
		t.Fatalf("seed test currency %s: %v", code, err)
	}
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", accountID, err)
	}
	return balance
}

// RecomputeBalance replays the journal for one account: credits in, debits
// and cancellations out. A reversed deposit still counts as inflow because
// its cancellation row carries the matching outflow. Tests compare the
// result against the stored balance to prove the two never drift.
func RecomputeBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) int64 {
	t.Helper()

	var in, out int64
	err := db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM movements
		 WHERE dest_account_id = $1 AND kind IN ('TRANSFER', 'DEPOSIT', 'CREDIT')`,
		accountID,
	).Scan(&in)
	if err != nil {
		t.Fatalf("recompute inflow %s: %v", accountID, err)
	}
	err = db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM movements
		 WHERE source_account_id = $1 AND kind IN ('TRANSFER', 'PURCHASE', 'CANCELLATION')`,
		accountID,
	).Scan(&out)
	if err != nil {
		t.Fatalf("recompute outflow %s: %v", accountID, err)
	}
	return in - out
}

func CountMovements(t *testing.T, db *sql.DB, accountID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM movements WHERE source_account_id = $1 OR dest_account_id = $1`,
		accountID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count movements for account %s: %v", accountID, err)
	}
	return count
}
