package integration

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/branch"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/menu"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/order"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/outbox"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/settlement"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/strategy"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/storage/memory"
)

// capturingPublisher собирает опубликованные события вместо Kafka.
type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.OutboxMessage
}

func (p *capturingPublisher) Publish(event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.EventType)
	}
	return types
}

// OrderLifecycleTestSuite тестирует полный жизненный цикл заказа:
// каталог, создание, расчёты, возвраты и публикацию событий.
type OrderLifecycleTestSuite struct {
	suite.Suite
	orders    *order.Service
	catalog   *menu.Service
	branches  *branch.Service
	engine    *settlement.Engine
	worker    *outbox.Worker
	published *capturingPublisher
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetOutput(io.Discard) // Уменьшаем шум в тестах
	logger := log.NewEntry(baseLogger)

	orderRepo := memory.NewOrderRepository()
	paymentRepo := memory.NewPaymentRepository()
	menuRepo := memory.NewMenuItemRepository()
	branchRepo := memory.NewBranchRepository()
	outboxRepo := memory.NewOutboxRepository()

	// Фиксированный полдень держит LUNCH-окно открытым для AddItem.
	noonClock := func() time.Time {
		return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	}

	s.orders = order.NewService(orderRepo, menuRepo, branchRepo, outboxRepo, logger)
	s.catalog = menu.NewService(menuRepo, branchRepo, logger, menu.WithClock(noonClock))
	s.branches = branch.NewService(branchRepo, logger)

	registry := strategy.NewDefaultRegistry(logger)
	s.engine = settlement.NewEngineWithoutMetrics(orderRepo, paymentRepo, registry, outboxRepo, logger)

	s.published = &capturingPublisher{}
	s.worker = outbox.NewWorker(outboxRepo, s.published, outbox.WithLogger(logger))
}

// seedOrder поднимает филиал с одним блюдом и создаёт заказ:
// 2 x 10000 + налог 3600 + доставка 2000 = 25600.
func (s *OrderLifecycleTestSuite) seedOrder() domain.Order {
	ctx := context.Background()

	br, err := s.branches.Create(ctx, "Central", "1 Main Street")
	require.NoError(s.T(), err)

	item, err := s.catalog.AddItem(ctx, domain.MenuItem{
		BranchID:    br.ID,
		Name:        "Paneer Tikka",
		Description: "Grilled cottage cheese",
		PriceMinor:  10000,
		Category:    domain.CategoryMainCourse,
		DietType:    domain.DietTypeVeg,
		MenuType:    domain.MenuTypeLunch,
		Available:   true,
	})
	require.NoError(s.T(), err)

	created, err := s.orders.Create(ctx, order.CreateOrderInput{
		CustomerName:  "Asha Rao",
		BranchID:      br.ID,
		DeliveryMinor: 2000,
		Items: []order.CreateItemInput{
			{MenuItemID: item.ID, Qty: 2},
		},
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(25600), created.TotalMinor)

	return created
}

func (s *OrderLifecycleTestSuite) TestFullSettlementLifecycle() {
	ctx := context.Background()
	created := s.seedOrder()

	// 1. Кухня подтверждает заказ.
	confirmed, err := s.orders.UpdateStatus(ctx, created.ID, "CONFIRMED")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusConfirmed, confirmed.Status)

	// 2. Полное списание через UPI.
	charge, err := s.engine.Charge(ctx, created.ID, domain.PaymentMethodUPI)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusSuccess, charge.Status)
	s.Equal(int64(25600), charge.AmountMinor)

	// 3. Повторное списание полностью оплаченного заказа отклоняется.
	_, err = s.engine.Charge(ctx, created.ID, domain.PaymentMethodUPI)
	s.Require().ErrorIs(err, domain.ErrAlreadyPaid)

	// 4. Частичный возврат снижает оплаченную сумму.
	refund, err := s.engine.Refund(ctx, created.ID, 5600)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusRefunded, refund.Status)
	s.Equal(domain.PaymentMethodCash, refund.Method)

	bill, err := s.engine.GetBill(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(int64(20000), bill.PaidMinor)
	s.Equal(int64(5600), bill.RemainingMinor)

	// 5. Остаток после возврата доплачивается повторным списанием.
	retry, err := s.engine.Retry(ctx, created.ID, domain.PaymentMethodUPI)
	s.Require().NoError(err)
	s.Equal(int64(5600), retry.AmountMinor)

	bill, err = s.engine.GetBill(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(int64(25600), bill.PaidMinor)
	s.Zero(bill.RemainingMinor)

	// 6. В журнале три операции в хронологическом порядке.
	payments, err := s.engine.ListPayments(ctx, created.ID)
	s.Require().NoError(err)
	s.Require().Len(payments, 3)
	s.Equal(domain.PaymentStatusSuccess, payments[0].Status)
	s.Equal(domain.PaymentStatusRefunded, payments[1].Status)
	s.Equal(domain.PaymentStatusSuccess, payments[2].Status)

	// 7. Воркер публикует накопленные события заказа и расчётов.
	s.worker.ProcessOnce(ctx)
	s.Equal([]string{
		"OrderCreated",
		"OrderStatusChanged",
		"PaymentSucceeded",
		"PaymentRefunded",
		"PaymentSucceeded",
	}, s.published.eventTypes())
}

func (s *OrderLifecycleTestSuite) TestCancelledItemShrinksBill() {
	ctx := context.Background()
	created := s.seedOrder()

	// Отмена позиции не меняет сохранённый итог, но убирает позицию
	// из пересчитываемого подытога счёта.
	updated, err := s.orders.CancelItem(ctx, created.ID, created.Items[0].ID)
	s.Require().NoError(err)
	s.Equal(int64(25600), updated.TotalMinor)

	bill, err := s.engine.GetBill(ctx, created.ID)
	s.Require().NoError(err)
	s.Zero(bill.ItemsTotalMinor)
	s.Zero(bill.TaxMinor)
	s.Equal(int64(25600), bill.GrandTotalMinor)
}

func (s *OrderLifecycleTestSuite) TestClosedBranchRejectsOrders() {
	ctx := context.Background()
	created := s.seedOrder()

	_, err := s.branches.UpdateStatus(ctx, created.BranchID, false)
	s.Require().NoError(err)

	_, err = s.orders.Create(ctx, order.CreateOrderInput{
		CustomerName:  "Asha Rao",
		BranchID:      created.BranchID,
		DeliveryMinor: 0,
		Items: []order.CreateItemInput{
			{MenuItemID: created.Items[0].MenuItemID, Qty: 1},
		},
	})
	s.Require().ErrorIs(err, domain.ErrBranchClosed)
}

func TestOrderLifecycleSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
