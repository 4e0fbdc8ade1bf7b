// Package pricing считает стоимость заказа: подытог по активным позициям,
// налог и итоговую сумму. Калькулятор — чистая функция без побочных эффектов.
package pricing

import (
	"fmt"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// TaxRateBasisPoints — ставка налога в базисных пунктах (18%).
// Политика ценообразования, а не магическая константа.
const TaxRateBasisPoints = 1800

// Quote — результат расчёта стоимости заказа в минимальных денежных единицах.
type Quote struct {
	SubtotalMinor   int64
	TaxMinor        int64
	DeliveryMinor   int64
	GrandTotalMinor int64
}

// Tax возвращает налог от суммы по действующей ставке.
// Дробная часть отбрасывается: налог всегда считается одинаково,
// поэтому счёт и итог заказа сходятся до единицы.
func Tax(amountMinor int64) int64 {
	return amountMinor * TaxRateBasisPoints / 10000
}

// Calculate считает подытог, налог и итог по неотменённым позициям заказа.
// Отменённые позиции в расчёте не участвуют.
func Calculate(items []domain.OrderItem, deliveryMinor int64) (Quote, error) {
	if deliveryMinor < 0 {
		return Quote{}, fmt.Errorf("delivery charge: %w", domain.ErrAmountNegative)
	}

	var subtotal int64
	for _, item := range items {
		if item.Cancelled {
			continue
		}
		if item.Qty <= 0 {
			return Quote{}, fmt.Errorf("item %s: %w", item.MenuItemID, domain.ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			return Quote{}, fmt.Errorf("item %s: %w", item.MenuItemID, domain.ErrItemPriceInvalid)
		}
		subtotal += item.PriceMinor * int64(item.Qty)
	}

	tax := Tax(subtotal)
	return Quote{
		SubtotalMinor:   subtotal,
		TaxMinor:        tax,
		DeliveryMinor:   deliveryMinor,
		GrandTotalMinor: subtotal + tax + deliveryMinor,
	}, nil
}
