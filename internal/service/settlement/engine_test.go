package settlement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/settlement"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/strategy"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/storage/memory"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger.WithField("component", "test")
}

type fixture struct {
	engine   *settlement.Engine
	orders   domain.OrderRepository
	payments domain.PaymentRepository
	outbox   domain.OutboxRepository
}

func newFixture(t *testing.T, options ...strategy.Option) *fixture {
	t.Helper()
	orders := memory.NewOrderRepository()
	payments := memory.NewPaymentRepository()
	outbox := memory.NewOutboxRepository()
	registry := strategy.NewDefaultRegistry(testLogger(), options...)
	engine := settlement.NewEngineWithoutMetrics(orders, payments, registry, outbox, testLogger())
	return &fixture{engine: engine, orders: orders, payments: payments, outbox: outbox}
}

func (f *fixture) seedOrder(t *testing.T, id string, totalMinor int64) {
	t.Helper()
	order := domain.Order{
		ID:           id,
		CustomerName: "Alice",
		BranchID:     "branch-1",
		Status:       domain.OrderStatusCreated,
		TotalMinor:   totalMinor,
		Items: []domain.OrderItem{
			{ID: "item-1", MenuItemID: "menu-1", Name: "Thali", PriceMinor: totalMinor, Qty: 1},
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := f.orders.Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestCharge_SettlesRemaining(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", 49200)
	ctx := context.Background()

	payment, err := f.engine.Charge(ctx, "order-1", domain.PaymentMethodUPI)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if payment.Status != domain.PaymentStatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", payment.Status)
	}
	if payment.AmountMinor != 49200 {
		t.Fatalf("amount = %d, want 49200", payment.AmountMinor)
	}

	order, err := f.orders.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.PaidMinor != 49200 {
		t.Fatalf("paid = %d, want 49200", order.PaidMinor)
	}
}

func TestCharge_OrderNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Charge(context.Background(), "missing", domain.PaymentMethodCash)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCharge_IdempotentAfterSuccess(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", 10000)
	ctx := context.Background()

	if _, err := f.engine.Charge(ctx, "order-1", domain.PaymentMethodCash); err != nil {
		t.Fatalf("first charge: %v", err)
	}

	// Повторное списание любым способом отклоняется записью SUCCESS.
	for _, method := range []domain.PaymentMethod{
		domain.PaymentMethodCash,
		domain.PaymentMethodCreditCard,
		domain.PaymentMethodUPI,
	} {
		if _, err := f.engine.Charge(ctx, "order-1", method); !errors.Is(err, domain.ErrAlreadyPaid) {
			t.Fatalf("charge via %s: expected ErrAlreadyPaid, got %v", method, err)
		}
	}

	order, _ := f.orders.Get(ctx, "order-1")
	if order.PaidMinor != 10000 {
		t.Fatalf("paid = %d, want 10000 (no double credit)", order.PaidMinor)
	}
}

func TestCharge_UnsupportedMethod(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", 10000)
	ctx := context.Background()

	_, err := f.engine.Charge(ctx, "order-1", domain.PaymentMethod("BITCOIN"))
	if !errors.Is(err, domain.ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}

	order, _ := f.orders.Get(ctx, "order-1")
	if order.PaidMinor != 0 {
		t.Fatalf("paid = %d, want 0 (order must stay untouched)", order.PaidMinor)
	}
	log, _ := f.payments.ListByOrder(ctx, "order-1")
	if len(log) != 0 {
		t.Fatalf("expected empty payment log, got %d records", len(log))
	}
}

func TestCharge_StrategyFailureRecordsFailedAttempt(t *testing.T) {
	gateway := func(context.Context, string, int64, int) error {
		return errors.New("gateway down")
	}
	f := newFixture(t, strategy.WithGateway(gateway))
	f.seedOrder(t, "order-1", 10000)
	ctx := context.Background()

	payment, err := f.engine.Charge(ctx, "order-1", domain.PaymentMethodCreditCard)
	if !errors.Is(err, domain.ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}
	if payment.Status != domain.PaymentStatusFailed {
		t.Fatalf("status = %s, want FAILED", payment.Status)
	}
	if payment.RetryCount != strategy.MaxChargeAttempts {
		t.Fatalf("retry count = %d, want %d", payment.RetryCount, strategy.MaxChargeAttempts)
	}

	order, _ := f.orders.Get(ctx, "order-1")
	if order.PaidMinor != 0 {
		t.Fatalf("paid = %d, want 0 after failed charge", order.PaidMinor)
	}
}

func TestRetry_NotBlockedByFailedRecord(t *testing.T) {
	failures := 0
	gateway := func(_ context.Context, _ string, _ int64, _ int) error {
		if failures < strategy.MaxChargeAttempts {
			failures++
			return errors.New("gateway down")
		}
		return nil
	}
	f := newFixture(t, strategy.WithGateway(gateway))
	f.seedOrder(t, "order-1", 10000)
	ctx := context.Background()

	if _, err := f.engine.Charge(ctx, "order-1", domain.PaymentMethodUPI); !errors.Is(err, domain.ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}

	// Запись FAILED не блокирует повтор; блокирует только SUCCESS.
	payment, err := f.engine.Retry(ctx, "order-1", domain.PaymentMethodUPI)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if payment.Status != domain.PaymentStatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", payment.Status)
	}

	order, _ := f.orders.Get(ctx, "order-1")
	if order.PaidMinor != 10000 {
		t.Fatalf("paid = %d, want 10000", order.PaidMinor)
	}
}

func TestRefund_Validations(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", 10000)
	ctx := context.Background()

	if _, err := f.engine.Refund(ctx, "missing", 100); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := f.engine.Refund(ctx, "order-1", 0); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.engine.Refund(ctx, "order-1", -5); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	// Возврат сверх оплаченного отклоняется и не меняет леджер.
	if _, err := f.engine.Refund(ctx, "order-1", 100); !errors.Is(err, domain.ErrExceedsPaid) {
		t.Fatalf("expected ErrExceedsPaid, got %v", err)
	}
	order, _ := f.orders.Get(ctx, "order-1")
	if order.PaidMinor != 0 {
		t.Fatalf("paid = %d, want 0", order.PaidMinor)
	}
}

func TestRefund_RecordsCashRefund(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", 49200)
	ctx := context.Background()

	if _, err := f.engine.Charge(ctx, "order-1", domain.PaymentMethodUPI); err != nil {
		t.Fatalf("charge: %v", err)
	}

	refund, err := f.engine.Refund(ctx, "order-1", 20000)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refund.Status != domain.PaymentStatusRefunded {
		t.Fatalf("status = %s, want REFUNDED", refund.Status)
	}
	// Возврат всегда проводится через наличный канал.
	if refund.Method != domain.PaymentMethodCash {
		t.Fatalf("method = %s, want CASH", refund.Method)
	}
	if refund.RefundedMinor != 20000 {
		t.Fatalf("refunded = %d, want 20000", refund.RefundedMinor)
	}

	order, _ := f.orders.Get(ctx, "order-1")
	if order.PaidMinor != 29200 {
		t.Fatalf("paid = %d, want 29200", order.PaidMinor)
	}
}

func TestEndToEnd_ChargeRefundRetry(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", 49200)
	ctx := context.Background()

	if _, err := f.engine.Charge(ctx, "order-1", domain.PaymentMethodUPI); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if _, err := f.engine.Refund(ctx, "order-1", 20000); err != nil {
		t.Fatalf("refund: %v", err)
	}

	order, _ := f.orders.Get(ctx, "order-1")
	if order.PaidMinor != 29200 {
		t.Fatalf("paid after refund = %d, want 29200", order.PaidMinor)
	}

	// После возврата заказ снова недоплачен: запись SUCCESS не блокирует
	// доплату остатка, блокирует только полный расчёт.
	payment, err := f.engine.Retry(ctx, "order-1", domain.PaymentMethodUPI)
	if err != nil {
		t.Fatalf("retry after refund: %v", err)
	}
	if payment.AmountMinor != 20000 {
		t.Fatalf("remainder charge = %d, want 20000", payment.AmountMinor)
	}

	order, _ = f.orders.Get(ctx, "order-1")
	if order.PaidMinor != 49200 {
		t.Fatalf("paid = %d, want 49200", order.PaidMinor)
	}

	log, _ := f.payments.ListByOrder(ctx, "order-1")
	if len(log) != 3 {
		t.Fatalf("expected 3 records (SUCCESS, REFUNDED, SUCCESS), got %d", len(log))
	}
}

func TestConcurrentCharges_SingleSuccess(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", 49200)
	ctx := context.Background()

	const workers = 25
	var wg sync.WaitGroup
	wg.Add(workers)
	var mu sync.Mutex
	var successes, alreadyPaid int

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := f.engine.Charge(ctx, "order-1", domain.PaymentMethodCash)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrAlreadyPaid):
				alreadyPaid++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly 1 successful charge, got %d", successes)
	}
	if alreadyPaid != workers-1 {
		t.Fatalf("expected %d ErrAlreadyPaid, got %d", workers-1, alreadyPaid)
	}

	order, _ := f.orders.Get(ctx, "order-1")
	if order.PaidMinor != 49200 {
		t.Fatalf("paid = %d, want 49200 (no double credit)", order.PaidMinor)
	}

	log, _ := f.payments.ListByOrder(ctx, "order-1")
	if len(log) != 1 || log[0].Status != domain.PaymentStatusSuccess {
		t.Fatalf("expected exactly one SUCCESS record, got %v", log)
	}
}

func TestLedgerInvariantHolds(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", 30000)
	ctx := context.Background()

	check := func() {
		order, err := f.orders.Get(ctx, "order-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if order.PaidMinor < 0 || order.PaidMinor > order.TotalMinor {
			t.Fatalf("invariant violated: paid=%d total=%d", order.PaidMinor, order.TotalMinor)
		}
	}

	_, _ = f.engine.Charge(ctx, "order-1", domain.PaymentMethodDebitCard)
	check()
	_, _ = f.engine.Refund(ctx, "order-1", 10000)
	check()
	_, _ = f.engine.Refund(ctx, "order-1", 50000)
	check()
	_, _ = f.engine.Refund(ctx, "order-1", 20000)
	check()
	_, _ = f.engine.Charge(ctx, "order-1", domain.PaymentMethodCash)
	check()
}

func TestGetBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Заказ: позиция 100.00 x2, доставка 20.00, итог 256.00.
	order := domain.Order{
		ID:           "order-1",
		CustomerName: "Alice",
		BranchID:     "branch-1",
		Status:       domain.OrderStatusCreated,
		TotalMinor:   25600,
		Items: []domain.OrderItem{
			{ID: "item-1", MenuItemID: "menu-1", PriceMinor: 10000, Qty: 2},
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := f.orders.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}

	bill, err := f.engine.GetBill(ctx, "order-1")
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	want := settlement.Bill{
		ItemsTotalMinor: 20000,
		TaxMinor:        3600,
		DeliveryMinor:   2000,
		GrandTotalMinor: 25600,
		PaidMinor:       0,
		RemainingMinor:  25600,
	}
	if bill != want {
		t.Fatalf("bill = %+v, want %+v", bill, want)
	}

	if _, err := f.engine.GetBill(ctx, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestGetBill_ExcludesCancelledItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := domain.Order{
		ID:           "order-1",
		CustomerName: "Alice",
		BranchID:     "branch-1",
		Status:       domain.OrderStatusCreated,
		TotalMinor:   25600,
		Items: []domain.OrderItem{
			{ID: "item-1", MenuItemID: "menu-1", PriceMinor: 10000, Qty: 2},
			{ID: "item-2", MenuItemID: "menu-2", PriceMinor: 5000, Qty: 1, Cancelled: true},
		},
	}
	if err := f.orders.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}

	bill, err := f.engine.GetBill(ctx, "order-1")
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if bill.ItemsTotalMinor != 20000 {
		t.Fatalf("items total = %d, want 20000 (cancelled excluded)", bill.ItemsTotalMinor)
	}
	// Итог заказа неизменен, производная доставка ограничена нулём снизу.
	if bill.GrandTotalMinor != 25600 {
		t.Fatalf("grand total = %d, want 25600", bill.GrandTotalMinor)
	}
}

func TestCharge_EmitsOutboxEvents(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "order-1", 10000)
	ctx := context.Background()

	if _, err := f.engine.Charge(ctx, "order-1", domain.PaymentMethodCash); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if _, err := f.engine.Refund(ctx, "order-1", 5000); err != nil {
		t.Fatalf("refund: %v", err)
	}

	pending, err := f.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 outbox events, got %d", len(pending))
	}
	if pending[0].EventType != "PaymentSucceeded" || pending[1].EventType != "PaymentRefunded" {
		t.Fatalf("unexpected event types: %s, %s", pending[0].EventType, pending[1].EventType)
	}
}

func TestIsRetryable(t *testing.T) {
	if !settlement.IsRetryable(domain.ErrPaymentFailed) {
		t.Fatal("payment failure must be retryable")
	}
	if settlement.IsRetryable(domain.ErrAlreadyPaid) {
		t.Fatal("business-rule violations are terminal")
	}
	if settlement.IsRetryable(domain.ErrOrderNotFound) {
		t.Fatal("missing order is terminal")
	}
}
