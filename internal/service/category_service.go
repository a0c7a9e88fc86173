package service

import (
	"context"
	"fmt"

	"recurring-planner/internal/model"
)

// CategoryLister lists a user's categories.
type CategoryLister interface {
	ListByUser(ctx context.Context, userID uint) ([]model.Category, error)
}

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo CategoryLister
}

func NewCategoryService(repo CategoryLister) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context, userID uint) ([]model.Category, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidOperation)
	}
	categories, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
