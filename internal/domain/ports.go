package domain

import (
	"context"
	"time"
)

// PaymentStrategy — подключаемая реализация списания и возврата для одного
// способа оплаты. Все варианты взаимозаменяемы за этим интерфейсом; новые
// способы оплаты подключаются именно здесь.
type PaymentStrategy interface {
	// Method возвращает тег способа оплаты, который обслуживает стратегия.
	Method() PaymentMethod
	// Charge списывает сумму по заказу. Временные сбои шлюза гасятся внутри
	// с ограниченным числом попыток; наружу выходит только ErrPaymentFailed
	// либо ErrInvalidAmount.
	Charge(ctx context.Context, orderID string, amountMinor int64) error
	// Refund возвращает сумму по заказу одной best-effort попыткой.
	Refund(ctx context.Context, orderID string, amountMinor int64) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
