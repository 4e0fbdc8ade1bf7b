package domain

import "context"

// ReleaseFunc снимает эксклюзивную блокировку, взятую GetForUpdate.
// Обязана вызываться ровно один раз на каждом пути выхода.
type ReleaseFunc func()

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// GetForUpdate возвращает заказ под эксклюзивной блокировкой по его ID.
	// Блокировка удерживается до вызова release и сериализует все расчётные
	// операции по одному заказу; заказы с разными ID не конкурируют.
	// Если заказ не найден, блокировка снимается до возврата ошибки.
	GetForUpdate(ctx context.Context, id string) (Order, ReleaseFunc, error)
	// ListByBranch возвращает заказы филиала с опциональным ограничением на количество.
	ListByBranch(ctx context.Context, branchID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
}

// PaymentRepository хранит append-only журнал расчётных операций.
type PaymentRepository interface {
	// Save добавляет новую запись в журнал и возвращает её с заполненным ID.
	Save(ctx context.Context, payment Payment) (Payment, error)
	// ExistsByOrderAndStatus сообщает, есть ли у заказа запись с данным статусом.
	ExistsByOrderAndStatus(ctx context.Context, orderID string, status PaymentStatus) (bool, error)
	// ListByOrder возвращает журнал операций заказа в порядке создания.
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
}

// MenuItemRepository описывает требования к каталогу меню.
type MenuItemRepository interface {
	Save(ctx context.Context, item MenuItem) (MenuItem, error)
	Get(ctx context.Context, id string) (MenuItem, error)
	ListByBranch(ctx context.Context, branchID string) ([]MenuItem, error)
}

// BranchRepository описывает требования к справочнику филиалов.
type BranchRepository interface {
	Save(ctx context.Context, branch Branch) (Branch, error)
	Get(ctx context.Context, id string) (Branch, error)
	List(ctx context.Context) ([]Branch, error)
	Delete(ctx context.Context, id string) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}
