package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// menuRepositoryInMemory — in-memory каталог позиций меню.
type menuRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.MenuItem
}

// NewMenuItemRepository возвращает in-memory реализацию MenuItemRepository.
func NewMenuItemRepository() domain.MenuItemRepository {
	return &menuRepositoryInMemory{
		items: make(map[string]domain.MenuItem),
	}
}

// Save создаёт или перезаписывает позицию меню.
func (r *menuRepositoryInMemory) Save(_ context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	r.items[item.ID] = item
	return item, nil
}

// Get возвращает позицию меню или ErrMenuItemNotFound.
func (r *menuRepositoryInMemory) Get(_ context.Context, id string) (domain.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return domain.MenuItem{}, domain.ErrMenuItemNotFound
	}
	return item, nil
}

// ListByBranch возвращает все позиции филиала в стабильном порядке.
func (r *menuRepositoryInMemory) ListByBranch(_ context.Context, branchID string) ([]domain.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.MenuItem, 0)
	for _, item := range r.items {
		if item.BranchID == branchID {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

var _ domain.MenuItemRepository = (*menuRepositoryInMemory)(nil)
