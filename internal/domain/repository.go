package domain

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// CreateWithLines сохраняет заказ вместе со всеми позициями как единое
	// durable-действие. Никакое частичное состояние не должно быть видно
	// читателям. Возвращает ошибку, если запись с таким ID уже существует.
	CreateWithLines(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным ограничением на количество.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}
