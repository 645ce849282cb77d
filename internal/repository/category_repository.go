package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a CategoryRepository that derives categories from the product table
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// List retrieves the distinct categories currently used by products
func (r *categoryRepository) List(ctx context.Context) ([]string, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT category FROM products GROUP BY category ORDER BY category COLLATE "C"`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}
