package placement

import (
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// PriceLines переводит проверенные позиции запроса в позиции заказа,
// фиксируя каталожную цену на момент размещения. Чистая функция без
// сценариев отказа: Validator уже гарантировал разрешение всех товаров.
func PriceLines(validated ValidatedOrder) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(validated.Lines))
	for _, req := range validated.Lines {
		product := validated.Products[req.ProductID]
		lines = append(lines, domain.OrderLine{
			ProductID:  req.ProductID,
			Qty:        req.Qty,
			PriceMinor: product.PriceMinor,
		})
	}
	return lines
}

// AssembleOrder собирает агрегат заказа из оценённых позиций: генерирует
// идентификаторы, проставляет метки времени и сумму. Заказ создаётся в
// статусе placed и сохраняется одним durable-действием вместе с позициями.
func AssembleOrder(customerID, currency string, priced []domain.OrderLine, now time.Time) domain.Order {
	lines := make([]domain.OrderLine, 0, len(priced))
	var amountSum int64
	for _, line := range priced {
		line.ID = uuid.NewString()
		line.CreatedAt = now
		lines = append(lines, line)
		amountSum += int64(line.Qty) * line.PriceMinor
	}

	return domain.Order{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Status:      domain.OrderStatusPlaced,
		Currency:    currency,
		AmountMinor: amountSum,
		Lines:       lines,
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
