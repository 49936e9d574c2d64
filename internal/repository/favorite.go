package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bancagt/backoffice/internal/domain"
)

const favoriteColumns = `id, owner_id, account_id, account_number, alias, created_at`

type FavoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) Create(ctx context.Context, f *domain.Favorite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (id, owner_id, account_id, account_number, alias, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.OwnerID, f.AccountID, f.AccountNumber, f.Alias, f.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrFavoriteExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *FavoriteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Favorite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE id = $1`, id,
	)
	f, err := scanFavorite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return f, nil
}

func (r *FavoriteRepository) GetByOwnerAndAlias(ctx context.Context, ownerID uuid.UUID, alias string) (*domain.Favorite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE owner_id = $1 AND alias = $2`,
		ownerID, alias,
	)
	f, err := scanFavorite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByOwnerAndAlias: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByOwnerAndAlias: %w", err)
	}
	return f, nil
}

func (r *FavoriteRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE owner_id = $1 ORDER BY created_at`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: %w", err)
	}
	defer rows.Close()

	var favorites []domain.Favorite
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByOwner: scan: %w", err)
		}
		favorites = append(favorites, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOwner: rows: %w", err)
	}
	return favorites, nil
}

func (r *FavoriteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanFavorite(s scanner) (*domain.Favorite, error) {
	var f domain.Favorite
	err := s.Scan(&f.ID, &f.OwnerID, &f.AccountID, &f.AccountNumber, &f.Alias, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
