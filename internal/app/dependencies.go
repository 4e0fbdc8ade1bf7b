package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/storage/memory"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/storage/postgres"
)

// Dependencies содержит репозитории приложения и общий логгер.
type Dependencies struct {
	Orders   domain.OrderRepository
	Payments domain.PaymentRepository
	Menu     domain.MenuItemRepository
	Branches domain.BranchRepository
	Outbox   domain.OutboxRepository
	Logger   *log.Entry

	store *postgres.Store
}

// NewDependencies собирает репозитории по выбранному драйверу хранилища.
// Для postgres применяются миграции при старте.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.Storage.Driver {
	case StorageMemory:
		return &Dependencies{
			Orders:   memory.NewOrderRepository(),
			Payments: memory.NewPaymentRepository(),
			Menu:     memory.NewMenuItemRepository(),
			Branches: memory.NewBranchRepository(),
			Outbox:   memory.NewOutboxRepository(),
			Logger:   logger,
		}, nil

	case StoragePostgres:
		store, err := postgres.Open(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("postgres schema is up to date")

		return &Dependencies{
			Orders:   postgres.NewOrderRepository(store),
			Payments: postgres.NewPaymentRepository(store),
			Menu:     postgres.NewMenuItemRepository(store),
			Branches: postgres.NewBranchRepository(store),
			Outbox:   postgres.NewOutboxRepository(store),
			Logger:   logger,
			store:    store,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
}

// Ping проверяет доступность хранилища. Для memory всегда успешен.
func (d *Dependencies) Ping(ctx context.Context) error {
	if d.store == nil {
		return nil
	}
	return d.store.Ping(ctx)
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
