// Package settlement реализует движок расчётов по заказам: списания,
// повторные списания, частичные возвраты и построение счёта. Все мутации
// платёжного леджера заказа проходят только через этот движок под
// эксклюзивной блокировкой заказа.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/metrics"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/pricing"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/strategy"
)

const (
	eventPaymentSucceeded = "PaymentSucceeded"
	eventPaymentFailed    = "PaymentFailed"
	eventPaymentRefunded  = "PaymentRefunded"
)

// StrategyResolver возвращает стратегию для способа оплаты.
// Реализуется реестром стратегий.
type StrategyResolver interface {
	Resolve(method domain.PaymentMethod) (domain.PaymentStrategy, error)
}

// Bill — проекция счёта заказа. Только чтение, без мутаций.
type Bill struct {
	ItemsTotalMinor int64 `json:"items_total_minor"`
	TaxMinor        int64 `json:"tax_minor"`
	DeliveryMinor   int64 `json:"delivery_minor"`
	GrandTotalMinor int64 `json:"grand_total_minor"`
	PaidMinor       int64 `json:"paid_minor"`
	RemainingMinor  int64 `json:"remaining_minor"`
}

// Engine оркестрирует расчётные операции по заказам.
type Engine struct {
	orders     domain.OrderRepository
	payments   domain.PaymentRepository
	strategies StrategyResolver
	outbox     domain.OutboxRepository // опциональный, nil отключает события
	logger     *log.Entry
	metrics    *metrics.SettlementMetrics
}

// NewEngine создаёт рабочий экземпляр движка расчётов.
func NewEngine(
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	strategies StrategyResolver,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "settlement")
	}
	return &Engine{
		orders:     orders,
		payments:   payments,
		strategies: strategies,
		outbox:     outbox,
		logger:     logger,
		metrics:    metrics.NewSettlementMetrics(),
	}
}

// NewEngineWithoutMetrics создаёт движок без метрик (для тестов).
func NewEngineWithoutMetrics(
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	strategies StrategyResolver,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) *Engine {
	e := NewEngine(orders, payments, strategies, outbox, logger)
	e.metrics = nil
	return e
}

// Charge списывает неоплаченный остаток заказа указанным способом оплаты.
// Операция идемпотентна относительно полного расчёта: пока paid >= total,
// возвращается ErrAlreadyPaid. После частичного возврата остаток можно
// доплатить повторным вызовом. Неудачная попытка фиксируется записью
// FAILED и не блокирует повтор.
func (e *Engine) Charge(ctx context.Context, orderID string, method domain.PaymentMethod) (domain.Payment, error) {
	start := time.Now()
	if e.metrics != nil {
		e.metrics.RecordChargeStarted()
		defer func() {
			e.metrics.RecordSettlementFinished(time.Since(start))
		}()
	}

	order, release, err := e.orders.GetForUpdate(ctx, orderID)
	if err != nil {
		e.logger.WithError(err).WithField("order_id", orderID).Warn("order not found for charge")
		e.recordChargeRejected()
		return domain.Payment{}, err
	}
	defer release()

	settled, err := e.payments.ExistsByOrderAndStatus(ctx, orderID, domain.PaymentStatusSuccess)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("check existing payments: %w", err)
	}
	// Идемпотентный барьер срабатывает только пока заказ полностью оплачен.
	// Запись SUCCESS после частичного возврата не мешает доплатить остаток.
	if order.PaidMinor >= order.TotalMinor {
		e.recordChargeRejected()
		return domain.Payment{}, fmt.Errorf("order %s: %w", orderID, domain.ErrAlreadyPaid)
	}
	if settled {
		e.logger.WithField("order_id", orderID).Info("charging remainder after refund")
	}

	remaining := order.RemainingMinor()

	payStrategy, err := e.strategies.Resolve(method)
	if err != nil {
		e.recordChargeRejected()
		return domain.Payment{}, err
	}

	chargeErr := payStrategy.Charge(ctx, orderID, remaining)
	if chargeErr != nil {
		// Попытка фиксируется в журнале, paid не меняется, ошибка уходит вызывающему.
		failed, saveErr := e.recordPayment(ctx, domain.Payment{
			OrderID:     orderID,
			Method:      method,
			Status:      domain.PaymentStatusFailed,
			AmountMinor: remaining,
			RetryCount:  strategy.MaxChargeAttempts,
		})
		if saveErr != nil {
			e.logger.WithError(saveErr).WithField("order_id", orderID).Error("failed to record failed payment")
		}
		e.logger.WithError(chargeErr).WithFields(log.Fields{
			"order_id": orderID,
			"method":   method,
			"amount":   remaining,
		}).Warn("charge failed")
		if e.metrics != nil {
			e.metrics.RecordChargeFailed()
		}
		e.emitEvent(orderID, eventPaymentFailed, map[string]interface{}{
			"method": string(method),
			"amount": remaining,
		})
		return failed, chargeErr
	}

	order.PaidMinor += remaining
	order.UpdatedAt = time.Now().UTC()
	if err := e.orders.Save(ctx, order); err != nil {
		return domain.Payment{}, fmt.Errorf("persist order after charge: %w", err)
	}

	payment, err := e.recordPayment(ctx, domain.Payment{
		OrderID:     orderID,
		Method:      method,
		Status:      domain.PaymentStatusSuccess,
		AmountMinor: remaining,
	})
	if err != nil {
		return domain.Payment{}, err
	}

	e.logger.WithFields(log.Fields{
		"order_id": orderID,
		"method":   method,
		"amount":   remaining,
	}).Info("charge settled")
	if e.metrics != nil {
		e.metrics.RecordChargeSucceeded()
	}
	e.emitEvent(orderID, eventPaymentSucceeded, map[string]interface{}{
		"method": string(method),
		"amount": remaining,
	})

	return payment, nil
}

// Retry повторяет списание. Семантически идентичен Charge: запись FAILED
// не блокирует повтор, блокирует только запись SUCCESS.
func (e *Engine) Retry(ctx context.Context, orderID string, method domain.PaymentMethod) (domain.Payment, error) {
	e.logger.WithFields(log.Fields{
		"order_id": orderID,
		"method":   method,
	}).Info("retrying charge")
	return e.Charge(ctx, orderID, method)
}

// Refund возвращает часть оплаченной суммы. Возврат всегда проводится
// через наличный канал независимо от способа исходного списания —
// осознанное упрощение, зафиксированное в журнале аудита.
func (e *Engine) Refund(ctx context.Context, orderID string, amountMinor int64) (domain.Payment, error) {
	start := time.Now()
	if e.metrics != nil {
		e.metrics.RecordRefundStarted()
		defer func() {
			e.metrics.RecordSettlementFinished(time.Since(start))
		}()
	}

	order, release, err := e.orders.GetForUpdate(ctx, orderID)
	if err != nil {
		e.logger.WithError(err).WithField("order_id", orderID).Warn("order not found for refund")
		e.recordRefundRejected()
		return domain.Payment{}, err
	}
	defer release()

	if amountMinor <= 0 {
		e.recordRefundRejected()
		return domain.Payment{}, fmt.Errorf("order %s: %w", orderID, domain.ErrInvalidAmount)
	}
	if amountMinor > order.PaidMinor {
		e.recordRefundRejected()
		return domain.Payment{}, fmt.Errorf("order %s: %w", orderID, domain.ErrExceedsPaid)
	}

	cash, err := e.strategies.Resolve(domain.PaymentMethodCash)
	if err != nil {
		e.recordRefundRejected()
		return domain.Payment{}, err
	}
	if err := cash.Refund(ctx, orderID, amountMinor); err != nil {
		e.logger.WithError(err).WithField("order_id", orderID).Warn("refund failed at strategy")
		e.recordRefundRejected()
		return domain.Payment{}, err
	}

	order.PaidMinor -= amountMinor
	order.UpdatedAt = time.Now().UTC()
	if err := e.orders.Save(ctx, order); err != nil {
		return domain.Payment{}, fmt.Errorf("persist order after refund: %w", err)
	}

	refund, err := e.recordPayment(ctx, domain.Payment{
		OrderID:       orderID,
		Method:        domain.PaymentMethodCash,
		Status:        domain.PaymentStatusRefunded,
		AmountMinor:   amountMinor,
		RefundedMinor: amountMinor,
	})
	if err != nil {
		return domain.Payment{}, err
	}

	e.logger.WithFields(log.Fields{
		"order_id": orderID,
		"amount":   amountMinor,
	}).Info("refund settled")
	if e.metrics != nil {
		e.metrics.RecordRefundSucceeded()
	}
	e.emitEvent(orderID, eventPaymentRefunded, map[string]interface{}{
		"amount": amountMinor,
	})

	return refund, nil
}

// GetBill строит счёт заказа. Блокировка не берётся: чтение — это
// best-effort снимок, безопасно конкурирующий с расчётами.
// Подытог пересчитывается по активным позициям, а не берётся из
// сохранённого итога: отменённые после создания заказа позиции в счёт
// не попадают.
func (e *Engine) GetBill(ctx context.Context, orderID string) (Bill, error) {
	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return Bill{}, err
	}

	var itemsTotal int64
	for _, item := range order.ActiveItems() {
		itemsTotal += item.PriceMinor * int64(item.Qty)
	}

	tax := pricing.Tax(itemsTotal)
	delivery := order.TotalMinor - (itemsTotal + tax)
	if delivery < 0 {
		delivery = 0
	}

	return Bill{
		ItemsTotalMinor: itemsTotal,
		TaxMinor:        tax,
		DeliveryMinor:   delivery,
		GrandTotalMinor: order.TotalMinor,
		PaidMinor:       order.PaidMinor,
		RemainingMinor:  order.TotalMinor - order.PaidMinor,
	}, nil
}

// ListPayments возвращает журнал расчётных операций заказа.
func (e *Engine) ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	if _, err := e.orders.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return e.payments.ListByOrder(ctx, orderID)
}

func (e *Engine) recordPayment(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	saved, err := e.payments.Save(ctx, payment)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("persist payment record: %w", err)
	}
	return saved, nil
}

func (e *Engine) recordChargeRejected() {
	if e.metrics != nil {
		e.metrics.RecordChargeRejected()
	}
}

func (e *Engine) recordRefundRejected() {
	if e.metrics != nil {
		e.metrics.RecordRefundRejected()
	}
}

func (e *Engine) emitEvent(orderID, eventType string, payload map[string]interface{}) {
	if e.outbox == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = orderID
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "payment",
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := e.outbox.Enqueue(msg); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("enqueue event failed")
		return
	}
	if e.metrics != nil {
		e.metrics.RecordOutboxEvent()
	}
}

// IsRetryable сообщает, имеет ли смысл повторять списание после ошибки.
// Повторять стоит только сбои платёжного шлюза; нарушения бизнес-правил
// и отсутствующие сущности терминальны.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrPaymentFailed)
}
