package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository.
// Эксклюзивная блокировка заказа моделируется mutex'ом на каждый ID:
// расчётные операции по одному заказу сериализуются, разные заказы
// не конкурируют.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
		locks: make(map[string]*sync.Mutex),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	// Сохраняем копию с собственным срезом позиций, чтобы избежать
	// непредсказуемых мутаций извне.
	order.Items = cloneItems(order.Items)
	r.items[order.ID] = order
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Items = cloneItems(order.Items)
	return order, nil
}

// GetForUpdate берёт эксклюзивную блокировку заказа и возвращает его
// текущее состояние. Блокировка берётся по ID до поиска: если заказа
// нет, она снимается перед возвратом ErrOrderNotFound.
func (r *orderRepositoryInMemory) GetForUpdate(_ context.Context, id string) (domain.Order, domain.ReleaseFunc, error) {
	lock := r.orderLock(id)
	lock.Lock()

	r.mu.RLock()
	order, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		lock.Unlock()
		return domain.Order{}, nil, domain.ErrOrderNotFound
	}

	var once sync.Once
	release := func() {
		once.Do(lock.Unlock)
	}
	order.Items = cloneItems(order.Items)
	return order, release, nil
}

// ListByBranch возвращает заказы филиала, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByBranch(_ context.Context, branchID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.BranchID != branchID {
			continue
		}
		order.Items = cloneItems(order.Items)
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	order.Items = cloneItems(order.Items)
	r.items[order.ID] = order
	return nil
}

func (r *orderRepositoryInMemory) orderLock(id string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}

func cloneItems(items []domain.OrderItem) []domain.OrderItem {
	if items == nil {
		return nil
	}
	cloned := make([]domain.OrderItem, len(items))
	copy(cloned, items)
	return cloned
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
