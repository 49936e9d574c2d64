package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bancagt/backoffice/internal/domain"
)

const accountColumns = `id, owner_id, number, class, balance, total_in, total_out,
	version, active, created_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE number = $1`, number,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByNumber: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByNumber: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1`, ownerID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByOwner: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByOwner: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]domain.Account, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return accounts, total, nil
}

// Create inserts a new account. A unique violation on the number column is
// surfaced as ErrVersionConflict so the caller can retry with a fresh
// candidate; a violation on owner_id is ErrAccountExists, which no retry
// can resolve.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (
			id, owner_id, number, class, balance, total_in, total_out,
			version, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		account.ID, account.OwnerID, account.Number, account.Class,
		account.Balance, account.TotalIn, account.TotalOut,
		account.Version, account.Active, account.CreatedAt,
	)
	if err != nil {
		switch uniqueViolationConstraint(err) {
		case "accounts_owner_id_key":
			return fmt.Errorf("Create: %w", domain.ErrAccountExists)
		case "":
			return fmt.Errorf("Create: %w", err)
		default:
			return fmt.Errorf("Create: %w", domain.ErrVersionConflict)
		}
	}
	return nil
}

func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

// ApplyDelta is the only balance mutation primitive. It writes the new
// balance together with the cumulative inflow/outflow counters, guarded by
// the version counter; the accounts CHECK constraint backstops balance >= 0.
func (r *AccountRepository) ApplyDelta(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance, newTotalIn, newTotalOut, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, total_in = $2, total_out = $3, version = $4
		WHERE id = $5 AND version = $6`,
		newBalance, newTotalIn, newTotalOut, newVersion, id, newVersion-1,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("ApplyDelta: %w", domain.ErrInsufficientFunds)
		}
		return fmt.Errorf("ApplyDelta: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ApplyDelta: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("ApplyDelta: %w", domain.ErrVersionConflict)
	}
	return nil
}

// SetActive toggles the soft-delete flag; accounts referenced by movements
// are never physically deleted.
func (r *AccountRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET active = $1 WHERE id = $2`, active, id,
	)
	if err != nil {
		return fmt.Errorf("SetActive: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetActive: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetActive: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *AccountRepository) SetClass(ctx context.Context, id uuid.UUID, class domain.AccountClass) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET class = $1 WHERE id = $2`, class, id,
	)
	if err != nil {
		return fmt.Errorf("SetClass: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetClass: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetClass: %w", domain.ErrNotFound)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ID, &a.OwnerID, &a.Number, &a.Class,
		&a.Balance, &a.TotalIn, &a.TotalOut,
		&a.Version, &a.Active, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
