package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"versus-be/internal/domain"
	"versus-be/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PostgresCategoryRepository struct {
	db *database.PostgresDB
}

func NewCategoryRepository(db *database.PostgresDB) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{db: db}
}

func (r *PostgresCategoryRepository) Get(ctx context.Context, id string) (*domain.Category, error) {
	var (
		category domain.Category
		name     []byte
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, slug, is_active, created_at FROM categories WHERE id = $1`, id).
		Scan(&category.ID, &name, &category.Slug, &category.IsActive, &category.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if err := json.Unmarshal(name, &category.Name); err != nil {
		return nil, fmt.Errorf("failed to decode category name: %w", err)
	}
	return &category, nil
}

func (r *PostgresCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, slug, is_active, created_at FROM categories WHERE is_active = TRUE ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		var (
			category domain.Category
			name     []byte
		)
		if err := rows.Scan(&category.ID, &name, &category.Slug, &category.IsActive, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		if err := json.Unmarshal(name, &category.Name); err != nil {
			return nil, fmt.Errorf("failed to decode category name: %w", err)
		}
		categories = append(categories, &category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category rows: %w", err)
	}
	return categories, nil
}
