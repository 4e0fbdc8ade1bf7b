package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// paymentRepositoryInMemory — in-memory журнал расчётных операций.
// Журнал append-only: записи никогда не изменяются и не удаляются.
type paymentRepositoryInMemory struct {
	mu      sync.RWMutex
	records []domain.Payment
}

// NewPaymentRepository возвращает in-memory реализацию PaymentRepository.
func NewPaymentRepository() domain.PaymentRepository {
	return &paymentRepositoryInMemory{}
}

// Save добавляет запись в журнал и возвращает её с заполненным ID.
func (r *paymentRepositoryInMemory) Save(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	r.records = append(r.records, payment)
	return payment, nil
}

// ExistsByOrderAndStatus сообщает, есть ли у заказа запись с данным статусом.
func (r *paymentRepositoryInMemory) ExistsByOrderAndStatus(_ context.Context, orderID string, status domain.PaymentStatus) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.records {
		if p.OrderID == orderID && p.Status == status {
			return true, nil
		}
	}
	return false, nil
}

// ListByOrder возвращает журнал операций заказа в порядке создания.
func (r *paymentRepositoryInMemory) ListByOrder(_ context.Context, orderID string) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Payment, 0)
	for _, p := range r.records {
		if p.OrderID == orderID {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

var _ domain.PaymentRepository = (*paymentRepositoryInMemory)(nil)
