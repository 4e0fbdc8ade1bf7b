// Package strategy реализует подключаемые способы оплаты: наличные,
// кредитная и дебетовая карты, UPI. Все варианты разделяют один контур
// списания с ограниченным числом попыток и различаются только тегом
// способа оплаты и шлюзом.
package strategy

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// MaxChargeAttempts ограничивает число попыток списания у шлюза.
const MaxChargeAttempts = 3

// Gateway моделирует один вызов платёжного шлюза.
// nil означает шлюз, который всегда отвечает успехом (поведение по
// умолчанию в отсутствие реальной интеграции).
type Gateway func(ctx context.Context, orderID string, amountMinor int64, attempt int) error

// gatewayStrategy — общая реализация PaymentStrategy поверх шлюза.
type gatewayStrategy struct {
	method  domain.PaymentMethod
	gateway Gateway
	logger  *log.Entry
}

// Option настраивает стратегию.
type Option func(*gatewayStrategy)

// WithGateway подменяет шлюз. Используется в тестах для симуляции
// временных сбоев.
func WithGateway(gateway Gateway) Option {
	return func(s *gatewayStrategy) {
		s.gateway = gateway
	}
}

func newGatewayStrategy(method domain.PaymentMethod, logger *log.Entry, options ...Option) *gatewayStrategy {
	if logger == nil {
		logger = log.New().WithField("component", "payment-strategy")
	}
	s := &gatewayStrategy{
		method: method,
		logger: logger.WithField("method", string(method)),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Method возвращает тег способа оплаты.
func (s *gatewayStrategy) Method() domain.PaymentMethod {
	return s.method
}

// Charge списывает сумму, делая до MaxChargeAttempts попыток.
// Временные сбои шлюза гасятся и повторяются; наружу выходит только
// терминальный ErrPaymentFailed.
func (s *gatewayStrategy) Charge(ctx context.Context, orderID string, amountMinor int64) error {
	if err := s.validateAmount(orderID, amountMinor); err != nil {
		return err
	}

	for attempt := 1; attempt <= MaxChargeAttempts; attempt++ {
		err := s.attempt(ctx, orderID, amountMinor, attempt)
		if err == nil {
			s.logger.WithFields(log.Fields{
				"order_id": orderID,
				"amount":   amountMinor,
				"attempt":  attempt,
			}).Info("charge succeeded")
			return nil
		}
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"amount":   amountMinor,
			"attempt":  attempt,
		}).Warn("charge attempt failed")
	}

	return fmt.Errorf("%s charge for order %s: %w", s.method, orderID, domain.ErrPaymentFailed)
}

// Refund возвращает сумму одной best-effort попыткой, без retry-цикла.
func (s *gatewayStrategy) Refund(ctx context.Context, orderID string, amountMinor int64) error {
	if err := s.validateAmount(orderID, amountMinor); err != nil {
		return err
	}

	if err := s.attempt(ctx, orderID, amountMinor, 1); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("refund failed")
		return fmt.Errorf("%s refund for order %s: %w", s.method, orderID, domain.ErrPaymentFailed)
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"amount":   amountMinor,
	}).Info("refund succeeded")
	return nil
}

func (s *gatewayStrategy) attempt(ctx context.Context, orderID string, amountMinor int64, attempt int) error {
	if s.gateway == nil {
		return nil
	}
	return s.gateway(ctx, orderID, amountMinor, attempt)
}

func (s *gatewayStrategy) validateAmount(orderID string, amountMinor int64) error {
	if amountMinor <= 0 {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrInvalidAmount)
	}
	return nil
}

var _ domain.PaymentStrategy = (*gatewayStrategy)(nil)
