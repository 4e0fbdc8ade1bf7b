package strategy

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// Registry — неизменяемая таблица способов оплаты, собираемая при старте.
// Неизвестный тег отклоняется явно через ErrUnsupportedMethod.
type Registry struct {
	strategies map[domain.PaymentMethod]domain.PaymentStrategy
}

// NewRegistry собирает реестр из переданных стратегий.
// Повторная регистрация одного способа оплаты перезаписывает предыдущую.
func NewRegistry(strategies ...domain.PaymentStrategy) *Registry {
	table := make(map[domain.PaymentMethod]domain.PaymentStrategy, len(strategies))
	for _, s := range strategies {
		table[s.Method()] = s
	}
	return &Registry{strategies: table}
}

// NewDefaultRegistry собирает реестр со всеми четырьмя способами оплаты.
func NewDefaultRegistry(logger *log.Entry, options ...Option) *Registry {
	return NewRegistry(
		NewCash(logger, options...),
		NewCreditCard(logger, options...),
		NewDebitCard(logger, options...),
		NewUPI(logger, options...),
	)
}

// Resolve возвращает стратегию для способа оплаты или ErrUnsupportedMethod.
func (r *Registry) Resolve(method domain.PaymentMethod) (domain.PaymentStrategy, error) {
	s, ok := r.strategies[method]
	if !ok {
		return nil, fmt.Errorf("%s: %w", method, domain.ErrUnsupportedMethod)
	}
	return s, nil
}

// Methods возвращает зарегистрированные способы оплаты в стабильном порядке.
func (r *Registry) Methods() []domain.PaymentMethod {
	methods := make([]domain.PaymentMethod, 0, len(r.strategies))
	for method := range r.strategies {
		methods = append(methods, method)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
