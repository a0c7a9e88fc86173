package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"recurring-planner/internal/model"
	"recurring-planner/internal/repository"
)

// memStore is an in-memory GenerationStore, TaskStore and CategoryResolver
// with the same transactional guarantees as the SQL stores.
type memStore struct {
	mu         sync.Mutex
	tasks      map[uint]*model.Task
	categories map[string]*model.Category
	nextID     uint

	findErr    error
	findHook   func()
	insertHook func(instance, template *model.Task) error
	inserts    int
}

func newMemStore() *memStore {
	return &memStore{
		tasks:      make(map[uint]*model.Task),
		categories: make(map[string]*model.Category),
	}
}

func (m *memStore) add(task model.Task) *model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	task.ID = m.nextID
	m.tasks[task.ID] = &task
	cp := task
	return &cp
}

func (m *memStore) instancesOf(templateID uint) []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Task
	for _, t := range m.tasks {
		if t.OriginalTaskID != nil && *t.OriginalTaskID == templateID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out
}

func (m *memStore) snapshot(id uint) model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tasks[id]
}

func (m *memStore) FindDueTemplates(_ context.Context, now time.Time) ([]model.Task, error) {
	if m.findHook != nil {
		m.findHook()
	}
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Task
	for _, t := range m.tasks {
		if t.DeletedAt.Valid || !isDue(*t, now) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) InsertInstanceAndAdvanceTemplate(_ context.Context, instance, template *model.Task, expectedNext time.Time) error {
	if m.insertHook != nil {
		if err := m.insertHook(instance, template); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.tasks[template.ID]
	if !ok || stored.DeletedAt.Valid || !stored.IsRecurring || stored.NextDueDate == nil || !stored.NextDueDate.Equal(expectedNext) {
		return fmt.Errorf("advance template %d: %w", template.ID, repository.ErrStaleTemplate)
	}
	for _, t := range m.tasks {
		if t.OriginalTaskID != nil && *t.OriginalTaskID == template.ID && t.DueDate.Equal(*instance.DueDate) {
			return fmt.Errorf("insert instance: %w", repository.ErrDuplicateOccurrence)
		}
	}

	m.nextID++
	instance.ID = m.nextID
	cp := *instance
	m.tasks[cp.ID] = &cp
	next := *template.NextDueDate
	stored.NextDueDate = &next
	stored.IsRecurring = template.IsRecurring
	m.inserts++
	return nil
}

func (m *memStore) Get(_ context.Context, id uint) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.DeletedAt.Valid {
		return nil, fmt.Errorf("get task %d: %w", id, repository.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	task.ID = m.nextID
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memStore) SaveCompletion(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[task.ID]
	if !ok {
		return repository.ErrNotFound
	}
	t.IsCompleted = task.IsCompleted
	t.CompletedAt = task.CompletedAt
	return nil
}

func (m *memStore) FindTemplate(ctx context.Context, id uint) (*model.Task, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsTemplate() {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (m *memStore) DeleteTemplate(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.DeletedAt.Valid || !t.IsTemplate() {
		return repository.ErrNotFound
	}
	t.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (m *memStore) GetOrCreate(_ context.Context, userID uint, name string) (*model.Category, error) {
	if name == "" {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d/%s", userID, name)
	if c, ok := m.categories[key]; ok {
		return c, nil
	}
	c := &model.Category{ID: uint(len(m.categories) + 1), UserID: userID, Name: name}
	m.categories[key] = c
	return c, nil
}
