package domain

import (
	"strings"
	"time"
)

// PaymentStatus описывает итог одной расчётной операции.
type PaymentStatus string

const (
	// PaymentStatusSuccess — списание прошло успешно.
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	// PaymentStatusFailed — все попытки списания исчерпаны.
	PaymentStatusFailed PaymentStatus = "FAILED"
	// PaymentStatusRefunded — запись о возврате средств.
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// PaymentMethod — закрытый набор способов оплаты.
// Новые способы подключаются через PaymentStrategy, но набор тегов
// расширяется только здесь.
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodUPI        PaymentMethod = "UPI"
)

// ParsePaymentMethod распознаёт тег способа оплаты без учёта регистра.
// Неизвестный тег отклоняется явно, а не через промах по map.
func ParsePaymentMethod(name string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToUpper(strings.TrimSpace(name))) {
	case PaymentMethodCash:
		return PaymentMethodCash, nil
	case PaymentMethodCreditCard:
		return PaymentMethodCreditCard, nil
	case PaymentMethodDebitCard:
		return PaymentMethodDebitCard, nil
	case PaymentMethodUPI:
		return PaymentMethodUPI, nil
	default:
		return "", ErrUnsupportedMethod
	}
}

// Payment — неизменяемая запись одной расчётной операции по заказу.
// Набор записей заказа образует append-only журнал аудита: записи
// никогда не изменяются и не удаляются после создания.
type Payment struct {
	ID      string
	OrderID string
	Method  PaymentMethod
	Status  PaymentStatus
	// AmountMinor — сумма операции в минимальных денежных единицах.
	AmountMinor int64
	// RefundedMinor заполняется только для записей о возврате.
	RefundedMinor int64
	// RetryCount — сколько попыток сделала стратегия.
	RetryCount int
	CreatedAt  time.Time
}

// Validate проверяет корректность полей платёжной записи.
func (p *Payment) Validate() []error {
	var errs []error

	switch {
	case p.OrderID == "":
		errs = append(errs, ErrOrderIDRequired)
	case p.Method == "":
		errs = append(errs, ErrMethodRequired)
	case p.AmountMinor < 0:
		errs = append(errs, ErrAmountNegative)
	}

	return errs
}
