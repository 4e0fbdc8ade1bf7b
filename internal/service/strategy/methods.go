package strategy

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// NewCash возвращает стратегию оплаты наличными.
// Наличные принимаются на кассе и без шлюза всегда проходят успешно.
func NewCash(logger *log.Entry, options ...Option) domain.PaymentStrategy {
	return newGatewayStrategy(domain.PaymentMethodCash, logger, options...)
}

// NewCreditCard возвращает стратегию оплаты кредитной картой.
func NewCreditCard(logger *log.Entry, options ...Option) domain.PaymentStrategy {
	return newGatewayStrategy(domain.PaymentMethodCreditCard, logger, options...)
}

// NewDebitCard возвращает стратегию оплаты дебетовой картой.
func NewDebitCard(logger *log.Entry, options ...Option) domain.PaymentStrategy {
	return newGatewayStrategy(domain.PaymentMethodDebitCard, logger, options...)
}

// NewUPI возвращает стратегию оплаты через UPI.
func NewUPI(logger *log.Entry, options ...Option) domain.PaymentStrategy {
	return newGatewayStrategy(domain.PaymentMethodUPI, logger, options...)
}
