package domain

import (
	"strings"
	"time"
)

// OrderStatus описывает жизненный цикл заказа в ресторане.
type OrderStatus string

const (
	// OrderStatusCreated — заказ создан, оплата ещё не начата.
	OrderStatusCreated OrderStatus = "CREATED"
	// OrderStatusConfirmed — заказ подтверждён кухней.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusCompleted — заказ приготовлен и выдан.
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusDelivered — заказ доставлен клиенту.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus распознаёт имя статуса без учёта регистра.
// Переходы между статусами намеренно не ограничены: исходная система
// позволяет любой статус после любого, и мы сохраняем это поведение.
func ParseOrderStatus(name string) (OrderStatus, error) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(name))) {
	case OrderStatusCreated:
		return OrderStatusCreated, nil
	case OrderStatusConfirmed:
		return OrderStatusConfirmed, nil
	case OrderStatusCompleted:
		return OrderStatusCompleted, nil
	case OrderStatusDelivered:
		return OrderStatusDelivered, nil
	case OrderStatusCancelled:
		return OrderStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// OrderItem представляет одну позицию заказа.
// Цена и название копируются из каталога в момент создания заказа.
type OrderItem struct {
	ID string
	// MenuItemID — ссылка на позицию каталога.
	MenuItemID string
	Name       string
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	Qty        int32
	// Cancelled — отменённая позиция не участвует в расчёте счёта.
	Cancelled bool
	// Instructions — пожелания клиента в свободной форме.
	Instructions string
	CreatedAt    time.Time
}

// Order агрегирует состояние заказа, его позиции и платёжный леджер.
type Order struct {
	ID           string
	CustomerName string
	BranchID     string
	Status       OrderStatus
	// TotalMinor фиксируется при создании заказа и далее не меняется.
	TotalMinor int64
	// PaidMinor меняется только движком расчётов (settlement engine).
	PaidMinor int64
	Items     []OrderItem
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveItems возвращает неотменённые позиции заказа.
func (o *Order) ActiveItems() []OrderItem {
	active := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if item.Cancelled {
			continue
		}
		active = append(active, item)
	}
	return active
}

// RemainingMinor возвращает неоплаченный остаток по заказу.
func (o *Order) RemainingMinor() int64 {
	return o.TotalMinor - o.PaidMinor
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerName == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.BranchID == "" {
		errs = append(errs, ErrBranchRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if o.PaidMinor < 0 || o.PaidMinor > o.TotalMinor {
		errs = append(errs, ErrPaidOutOfRange)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}
