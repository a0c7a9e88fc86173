package postgres

import (
	"context"
	"fmt"

	"recurring-planner/internal/model"
)

// CategoryStore resolves category names to rows in PostgreSQL.
type CategoryStore struct {
	db DBTX
}

func NewCategoryStore(db DBTX) *CategoryStore {
	return &CategoryStore{db: db}
}

// GetOrCreate returns the user's category with the given name, creating it
// on first use. An empty name yields nil.
func (s *CategoryStore) GetOrCreate(ctx context.Context, userID uint, name string) (*model.Category, error) {
	if name == "" {
		return nil, nil
	}

	query := `
        INSERT INTO categories (user_id, name)
        VALUES ($1, $2)
        ON CONFLICT (user_id, name) DO UPDATE SET updated_at = categories.updated_at
        RETURNING id, created_at, updated_at
    `
	category := model.Category{UserID: userID, Name: name}
	var id int64
	if err := s.db.QueryRow(ctx, query, int64(userID), name).Scan(&id, &category.CreatedAt, &category.UpdatedAt); err != nil {
		return nil, fmt.Errorf("get or create category: %w", MapError(err))
	}
	category.ID = uint(id)
	return &category, nil
}

func (s *CategoryStore) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, user_id, name, created_at, updated_at
        FROM categories
        WHERE user_id = $1
        ORDER BY name ASC
    `, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var (
			c       model.Category
			id, uid int64
		)
		if err := rows.Scan(&id, &uid, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.ID = uint(id)
		c.UserID = uint(uid)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
