package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bancagt/backoffice/internal/domain"
)

const movementColumns = `id, source_account_id, dest_account_id, amount, kind,
	product_id, occurred_at, reversed, original_movement_id, description,
	converted_amount, exchange_rate`

type MovementRepository struct {
	db *sql.DB
}

func NewMovementRepository(db *sql.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Create appends one journal row inside the caller's transaction. The
// journal is append-only: there is no update or delete beyond MarkReversed.
func (r *MovementRepository) Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO movements (
			id, source_account_id, dest_account_id, amount, kind,
			product_id, occurred_at, reversed, original_movement_id, description,
			converted_amount, exchange_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.SourceAccountID, m.DestAccountID, m.Amount, m.Kind,
		m.ProductID, m.OccurredAt, m.Reversed, m.OriginalMovementID, m.Description,
		m.ConvertedAmount, m.ExchangeRate,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *MovementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE id = $1`, id,
	)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return m, nil
}

// GetForUpdate locks the movement row so a reversal decision cannot race
// with a concurrent reversal of the same deposit.
func (r *MovementRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Movement, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE id = $1 FOR UPDATE`, id,
	)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return m, nil
}

// MarkReversed flips the reversed flag exactly once. Zero rows affected
// means the movement was already reversed (or vanished, which the caller
// has excluded by holding the row lock).
func (r *MovementRepository) MarkReversed(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE movements SET reversed = true WHERE id = $1 AND reversed = false`, id,
	)
	if err != nil {
		return fmt.Errorf("MarkReversed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkReversed: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkReversed: %w", domain.ErrAlreadyReversed)
	}
	return nil
}

// SumTransfersSince totals committed, non-reversed TRANSFER amounts sent
// from an account since the given instant. Runs on the caller's transaction
// so the daily-cap check is evaluated under the source account's row lock;
// served by a partial index, O(matching rows).
func (r *MovementRepository) SumTransfersSince(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM movements
		WHERE source_account_id = $1 AND kind = $2 AND reversed = false
		AND occurred_at >= $3`,
		accountID, domain.MovementKindTransfer, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("SumTransfersSince: %w", err)
	}
	return total, nil
}

// Find returns journal rows newest-first. The filter's account matches the
// movement as either source or destination.
func (r *MovementRepository) Find(ctx context.Context, f domain.MovementFilter) ([]domain.Movement, int, error) {
	where, args := buildMovementWhere(f)

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM movements`+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("Find: count: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + movementColumns + ` FROM movements` + where +
		` ORDER BY occurred_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("Find: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("Find: scan: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("Find: rows: %w", err)
	}
	return movements, total, nil
}

// FindDetailed is the read-side projection: journal rows joined with the
// counterpart account numbers, holder names and product names for display.
// The write-side contract never depends on it.
func (r *MovementRepository) FindDetailed(ctx context.Context, f domain.MovementFilter) ([]domain.MovementDetail, int, error) {
	where, args := buildMovementWhere(f)

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM movements m`+strings.ReplaceAll(where, "occurred_at", "m.occurred_at"), args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("FindDetailed: count: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT m.id, m.source_account_id, m.dest_account_id, m.amount, m.kind,
			m.product_id, m.occurred_at, m.reversed, m.original_movement_id, m.description,
			m.converted_amount, m.exchange_rate,
			src.number, srcu.name, dst.number, dstu.name, p.name
		FROM movements m
		LEFT JOIN accounts src ON src.id = m.source_account_id
		LEFT JOIN users srcu ON srcu.id = src.owner_id
		LEFT JOIN accounts dst ON dst.id = m.dest_account_id
		LEFT JOIN users dstu ON dstu.id = dst.owner_id
		LEFT JOIN products p ON p.id = m.product_id` +
		strings.ReplaceAll(where, "occurred_at", "m.occurred_at") +
		` ORDER BY m.occurred_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("FindDetailed: %w", err)
	}
	defer rows.Close()

	var details []domain.MovementDetail
	for rows.Next() {
		var d domain.MovementDetail
		var exchangeRate decimal.NullDecimal
		err := rows.Scan(
			&d.ID, &d.SourceAccountID, &d.DestAccountID, &d.Amount, &d.Kind,
			&d.ProductID, &d.OccurredAt, &d.Reversed, &d.OriginalMovementID, &d.Description,
			&d.ConvertedAmount, &exchangeRate,
			&d.SourceNumber, &d.SourceHolder, &d.DestNumber, &d.DestHolder, &d.ProductName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("FindDetailed: scan: %w", err)
		}
		if exchangeRate.Valid {
			d.ExchangeRate = &exchangeRate.Decimal
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("FindDetailed: rows: %w", err)
	}
	return details, total, nil
}

func buildMovementWhere(f domain.MovementFilter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.AccountID != nil {
		p := arg(*f.AccountID)
		conds = append(conds, "(source_account_id = "+p+" OR dest_account_id = "+p+")")
	}
	if f.Kind != nil {
		conds = append(conds, "kind = "+arg(*f.Kind))
	}
	if f.From != nil {
		conds = append(conds, "occurred_at >= "+arg(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "occurred_at < "+arg(*f.To))
	}
	if f.Reversed != nil {
		conds = append(conds, "reversed = "+arg(*f.Reversed))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanMovement(s scanner) (*domain.Movement, error) {
	var m domain.Movement
	var exchangeRate decimal.NullDecimal
	err := s.Scan(
		&m.ID, &m.SourceAccountID, &m.DestAccountID, &m.Amount, &m.Kind,
		&m.ProductID, &m.OccurredAt, &m.Reversed, &m.OriginalMovementID, &m.Description,
		&m.ConvertedAmount, &exchangeRate,
	)
	if err != nil {
		return nil, err
	}
	if exchangeRate.Valid {
		m.ExchangeRate = &exchangeRate.Decimal
	}
	return &m, nil
}
