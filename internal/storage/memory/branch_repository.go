package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// branchRepositoryInMemory — in-memory справочник филиалов.
type branchRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Branch
}

// NewBranchRepository возвращает in-memory реализацию BranchRepository.
func NewBranchRepository() domain.BranchRepository {
	return &branchRepositoryInMemory{
		items: make(map[string]domain.Branch),
	}
}

// Save создаёт или перезаписывает филиал.
func (r *branchRepositoryInMemory) Save(_ context.Context, branch domain.Branch) (domain.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	r.items[branch.ID] = branch
	return branch, nil
}

// Get возвращает филиал или ErrBranchNotFound.
func (r *branchRepositoryInMemory) Get(_ context.Context, id string) (domain.Branch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	branch, ok := r.items[id]
	if !ok {
		return domain.Branch{}, domain.ErrBranchNotFound
	}
	return branch, nil
}

// List возвращает все филиалы в стабильном порядке.
func (r *branchRepositoryInMemory) List(_ context.Context) ([]domain.Branch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Branch, 0, len(r.items))
	for _, branch := range r.items {
		result = append(result, branch)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete удаляет филиал или возвращает ErrBranchNotFound.
func (r *branchRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrBranchNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.BranchRepository = (*branchRepositoryInMemory)(nil)
