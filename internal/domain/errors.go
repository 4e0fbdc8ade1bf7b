package domain

import "errors"

var (
	// Ошибка отсутствующего имени клиента.
	ErrCustomerRequired = errors.New("customer name is required")
	// Ошибка отсутствующей ссылки на филиал.
	ErrBranchRequired = errors.New("branch_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка нарушения инварианта 0 <= paid <= total.
	ErrPaidOutOfRange = errors.New("paid amount out of range")
	// Ошибка отсутствующего идентификатора заказа в платёжной записи.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствующего способа оплаты в платёжной записи.
	ErrMethodRequired = errors.New("payment method is required")
	// Ошибка отсутствующего названия позиции меню.
	ErrMenuItemNameRequired = errors.New("menu item name is required")
	// Ошибка отсутствующего названия филиала.
	ErrBranchNameRequired = errors.New("branch name is required")
	// Ошибка отсутствующего адреса филиала.
	ErrBranchLocationRequired = errors.New("branch location is required")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderItemNotFound возвращается, если позиция заказа не найдена.
	ErrOrderItemNotFound = errors.New("order item not found")
	// ErrBranchNotFound возвращается, если филиал не найден.
	ErrBranchNotFound = errors.New("branch not found")
	// ErrMenuItemNotFound возвращается, если позиция меню не найдена.
	ErrMenuItemNotFound = errors.New("menu item not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")

	// ErrInvalidStatus — неизвестное имя статуса заказа.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidMenuType — неизвестный тип меню.
	ErrInvalidMenuType = errors.New("invalid menu type")
	// ErrInvalidDietType — неизвестный тип питания.
	ErrInvalidDietType = errors.New("invalid diet type")
	// ErrInvalidCategory — неизвестный раздел меню.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidAmount — сумма операции должна быть больше нуля.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrBranchClosed — бизнес-ошибка: филиал закрыт и не принимает заказы.
	ErrBranchClosed = errors.New("branch is closed")
	// ErrItemUnavailable — бизнес-ошибка: позиция меню недоступна.
	ErrItemUnavailable = errors.New("menu item unavailable")
	// ErrMenuNotActive — бизнес-ошибка: меню не действует в это время.
	ErrMenuNotActive = errors.New("menu not available at this time")
	// ErrAlreadyPaid — заказ уже полностью оплачен.
	ErrAlreadyPaid = errors.New("order already paid")
	// ErrExceedsPaid — возврат превышает оплаченную сумму.
	ErrExceedsPaid = errors.New("refund exceeds paid amount")

	// ErrUnsupportedMethod — способ оплаты не зарегистрирован.
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	// ErrPaymentFailed — все попытки списания на стороне стратегии исчерпаны.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, относится ли ошибка к отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrOrderItemNotFound) ||
		errors.Is(err, ErrBranchNotFound) ||
		errors.Is(err, ErrMenuItemNotFound)
}

// IsValidation проверяет, относится ли ошибка к некорректному входу.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidMenuType) ||
		errors.Is(err, ErrInvalidDietType) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrItemQtyInvalid) ||
		errors.Is(err, ErrItemPriceInvalid) ||
		errors.Is(err, ErrCustomerRequired) ||
		errors.Is(err, ErrBranchRequired) ||
		errors.Is(err, ErrItemsRequired) ||
		errors.Is(err, ErrAmountNegative) ||
		errors.Is(err, ErrOrderIDRequired) ||
		errors.Is(err, ErrMethodRequired) ||
		errors.Is(err, ErrMenuItemNameRequired) ||
		errors.Is(err, ErrBranchNameRequired) ||
		errors.Is(err, ErrBranchLocationRequired)
}

// IsBusinessRule проверяет, относится ли ошибка к нарушению бизнес-правила.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrBranchClosed) ||
		errors.Is(err, ErrItemUnavailable) ||
		errors.Is(err, ErrMenuNotActive) ||
		errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrExceedsPaid)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
