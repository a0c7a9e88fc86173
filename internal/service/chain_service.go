package service

import (
	"context"
	"errors"
	"fmt"

	"recurring-planner/internal/model"
	"recurring-planner/internal/repository"
)

// ChainService resolves generated instances back to their templates.
type ChainService struct {
	tasks TaskStore
}

func NewChainService(tasks TaskStore) *ChainService {
	return &ChainService{tasks: tasks}
}

// ResolveChain returns the template that generated instanceID. It returns nil
// when the task is not an instance or its template has been deleted. Chains
// are one level deep: a template that itself points at another task is an
// ErrChainIntegrityViolation, not something to follow.
func (s *ChainService) ResolveChain(ctx context.Context, instanceID uint) (*model.Task, error) {
	instance, err := s.tasks.Get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if !instance.IsInstance() {
		return nil, nil
	}

	template, err := s.tasks.Get(ctx, *instance.OriginalTaskID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	if template.OriginalTaskID != nil {
		return nil, fmt.Errorf("%w: instance %d resolves to task %d, which refers to task %d",
			ErrChainIntegrityViolation, instance.ID, template.ID, *template.OriginalTaskID)
	}
	return template, nil
}
