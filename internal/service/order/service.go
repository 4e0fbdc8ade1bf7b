// Package order реализует жизненный цикл заказа: создание с расчётом
// стоимости, смену статуса и отмену отдельных позиций. Оплаченная сумма
// заказа здесь не трогается, ею владеет движок расчётов.
package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/pricing"
)

const (
	eventOrderCreated       = "OrderCreated"
	eventOrderStatusChanged = "OrderStatusChanged"
)

// CreateItemInput — одна позиция создаваемого заказа.
type CreateItemInput struct {
	MenuItemID   string
	Qty          int32
	Instructions string
}

// CreateOrderInput — входные данные создания заказа. Цены позиций
// берутся из каталога меню, клиент их не передаёт.
type CreateOrderInput struct {
	CustomerName  string
	BranchID      string
	DeliveryMinor int64
	Items         []CreateItemInput
}

// Service управляет заказами.
type Service struct {
	orders   domain.OrderRepository
	menu     domain.MenuItemRepository
	branches domain.BranchRepository
	outbox   domain.OutboxRepository // опциональный, nil отключает события
	logger   *log.Entry
}

// NewService создаёт сервис заказов.
func NewService(
	orders domain.OrderRepository,
	menu domain.MenuItemRepository,
	branches domain.BranchRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order_service")
	}
	return &Service{
		orders:   orders,
		menu:     menu,
		branches: branches,
		outbox:   outbox,
		logger:   logger,
	}
}

// Create проверяет филиал и позиции, считает стоимость и сохраняет заказ
// в статусе CREATED. Итог заказа после создания неизменен: отмена позиции
// меняет только счёт, не сохранённый итог.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (domain.Order, error) {
	if input.CustomerName == "" {
		return domain.Order{}, domain.ErrCustomerRequired
	}
	if input.BranchID == "" {
		return domain.Order{}, domain.ErrBranchRequired
	}
	if len(input.Items) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}

	branch, err := s.branches.Get(ctx, input.BranchID)
	if err != nil {
		return domain.Order{}, err
	}
	if !branch.Active {
		return domain.Order{}, fmt.Errorf("branch %s: %w", branch.ID, domain.ErrBranchClosed)
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		if in.Qty <= 0 {
			return domain.Order{}, fmt.Errorf("menu item %s: %w", in.MenuItemID, domain.ErrItemQtyInvalid)
		}
		menuItem, err := s.menu.Get(ctx, in.MenuItemID)
		if err != nil {
			return domain.Order{}, err
		}
		if !menuItem.Available {
			return domain.Order{}, fmt.Errorf("menu item %s: %w", menuItem.ID, domain.ErrItemUnavailable)
		}
		items = append(items, domain.OrderItem{
			ID:           uuid.NewString(),
			MenuItemID:   menuItem.ID,
			Name:         menuItem.Name,
			PriceMinor:   menuItem.PriceMinor,
			Qty:          in.Qty,
			Instructions: in.Instructions,
		})
	}

	quote, err := pricing.Calculate(items, input.DeliveryMinor)
	if err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:           uuid.NewString(),
		CustomerName: input.CustomerName,
		BranchID:     branch.ID,
		Status:       domain.OrderStatusCreated,
		Items:        items,
		TotalMinor:   quote.GrandTotalMinor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"branch":   order.BranchID,
		"total":    order.TotalMinor,
		"items":    len(order.Items),
	}).Info("order created")
	s.emitEvent(order.ID, eventOrderCreated, map[string]interface{}{
		"branch_id": order.BranchID,
		"total":     order.TotalMinor,
	})

	return order, nil
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.Get(ctx, id)
}

// ListByBranch возвращает заказы филиала, свежие первыми.
// limit <= 0 снимает ограничение на размер выборки.
func (s *Service) ListByBranch(ctx context.Context, branchID string, limit int) ([]domain.Order, error) {
	if _, err := s.branches.Get(ctx, branchID); err != nil {
		return nil, err
	}
	return s.orders.ListByBranch(ctx, branchID, limit)
}

// UpdateStatus переводит заказ в указанный статус. Проверяется только имя
// статуса, таблицы допустимых переходов нет.
func (s *Service) UpdateStatus(ctx context.Context, id, statusName string) (domain.Order, error) {
	status, err := domain.ParseOrderStatus(statusName)
	if err != nil {
		return domain.Order{}, err
	}

	order, release, err := s.orders.GetForUpdate(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	previous := order.Status
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	if err := s.orders.Save(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("persist status change: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     previous,
		"to":       status,
	}).Info("order status changed")
	s.emitEvent(order.ID, eventOrderStatusChanged, map[string]interface{}{
		"from": string(previous),
		"to":   string(status),
	})

	return order, nil
}

// CancelItem помечает позицию заказа отменённой. Сохранённый итог заказа
// не пересчитывается, исключение позиции видно только в счёте.
func (s *Service) CancelItem(ctx context.Context, orderID, itemID string) (domain.Order, error) {
	order, release, err := s.orders.GetForUpdate(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	found := false
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			order.Items[i].Cancelled = true
			found = true
			break
		}
	}
	if !found {
		return domain.Order{}, fmt.Errorf("order %s item %s: %w", orderID, itemID, domain.ErrOrderItemNotFound)
	}

	order.UpdatedAt = time.Now().UTC()
	if err := s.orders.Save(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("persist item cancellation: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"item_id":  itemID,
	}).Info("order item cancelled")

	return order, nil
}

func (s *Service) emitEvent(orderID, eventType string, payload map[string]interface{}) {
	if s.outbox == nil {
		return
	}
	payload["order_id"] = orderID
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("marshal event failed")
		return
	}
	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       data,
	}); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("enqueue event failed")
	}
}
