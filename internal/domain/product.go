package domain

import "time"

// Product описывает товар каталога с конечным остатком на складе.
// Каталог принадлежит внешнему коллаборатору: checkout только читает цену
// и условно списывает Quantity через ProductStock.
type Product struct {
	ID string
	// Name — человекочитаемое имя, используется только в логах и API.
	Name string
	// PriceMinor — текущая каталожная цена за единицу в минимальных единицах.
	PriceMinor int64
	// Quantity — доступный остаток; никогда не уходит в минус.
	Quantity  int32
	UpdatedAt time.Time
}

// Customer — ссылка на клиента. Существование клиента является предусловием
// размещения заказа; checkout клиентов не создаёт и не изменяет.
type Customer struct {
	ID   string
	Name string
}
