package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bancagt/backoffice/internal/domain"
)

const currencyColumns = `code, name, rate, active, updated_at`

type CurrencyRepository struct {
	db *sql.DB
}

func NewCurrencyRepository(db *sql.DB) *CurrencyRepository {
	return &CurrencyRepository{db: db}
}

func (r *CurrencyRepository) GetByCode(ctx context.Context, code string) (*domain.Currency, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+currencyColumns+` FROM currencies WHERE code = $1`, code,
	)
	c, err := scanCurrency(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByCode: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByCode: %w", err)
	}
	return c, nil
}

// ListActive returns active currencies, optionally filtered by a substring
// match on code or name.
func (r *CurrencyRepository) ListActive(ctx context.Context, filter string) ([]domain.Currency, error) {
	query := `SELECT ` + currencyColumns + ` FROM currencies WHERE active = true`
	var args []any
	if filter != "" {
		query += ` AND (code ILIKE $1 OR name ILIKE $1)`
		args = append(args, "%"+filter+"%")
	}
	query += ` ORDER BY code`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer rows.Close()

	var currencies []domain.Currency
	for rows.Next() {
		c, err := scanCurrency(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: scan: %w", err)
		}
		currencies = append(currencies, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActive: rows: %w", err)
	}
	return currencies, nil
}

func (r *CurrencyRepository) Upsert(ctx context.Context, c *domain.Currency) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO currencies (code, name, rate, active, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name, rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at`,
		c.Code, c.Name, c.Rate, c.Active, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

// UpdateRate changes only the stored rate; unknown codes are a NotFound so
// an admin override cannot silently create currencies.
func (r *CurrencyRepository) UpdateRate(ctx context.Context, code string, rate decimal.Decimal, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE currencies SET rate = $1, updated_at = $2 WHERE code = $3`,
		rate, updatedAt, code,
	)
	if err != nil {
		return fmt.Errorf("UpdateRate: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateRate: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateRate: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *CurrencyRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM currencies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func scanCurrency(s scanner) (*domain.Currency, error) {
	var c domain.Currency
	if err := s.Scan(&c.Code, &c.Name, &c.Rate, &c.Active, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
