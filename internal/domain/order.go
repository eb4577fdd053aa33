package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в checkout.
type OrderStatus string

const (
	// OrderStatusPlaced — заказ записан в хранилище, но списание стока ещё не применено.
	OrderStatusPlaced OrderStatus = "placed"
	// OrderStatusCompleted — сток списан, заказ полностью консистентен.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusStockConflict — списание проиграло гонку за сток; требуется компенсация.
	OrderStatusStockConflict OrderStatus = "stock_conflict"
)

// OrderLineRequest — входная позиция запроса на размещение заказа.
type OrderLineRequest struct {
	// ProductID — идентификатор товара из каталога.
	ProductID string
	// Qty — запрошенное количество, должно быть > 0.
	Qty int32
}

// OrderLine представляет одну сохранённую позицию заказа.
type OrderLine struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — идентификатор товара из каталога.
	ProductID string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу в минимальных денежных единицах,
	// зафиксированная в момент размещения заказа. Последующие изменения
	// каталожной цены на неё не влияют.
	PriceMinor int64
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Order агрегирует заказ и его позиции. Создаётся ровно один раз вместе со
// всеми позициями; после записи меняется только Status.
type Order struct {
	ID          string
	CustomerID  string
	Status      OrderStatus
	Currency    string
	AmountMinor int64
	Lines       []OrderLine
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, line := range o.Lines {
		if line.ProductID == "" {
			errs = append(errs, ErrLineProductRequired)
		}
		if line.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.PriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		calc += int64(line.Qty) * line.PriceMinor
	}
	if calc != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// Terminal сообщает, достиг ли заказ конечного состояния workflow размещения.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusStockConflict
}
