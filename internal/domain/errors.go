package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка позиции без идентификатора товара.
	ErrLineProductRequired = errors.New("line product_id is required")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrLineQtyInvalid = errors.New("line qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrLinePriceInvalid = errors.New("line price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match lines sum")

	// ErrCustomerNotFound возвращается валидатором, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrNoProductsRequested возвращается на запрос без единой позиции.
	ErrNoProductsRequested = errors.New("no products requested")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrPersistence — ошибка хранилища до списания стока; запрос можно безопасно повторить.
	ErrPersistence = errors.New("order persistence failed")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — пустой ключ идемпотентности.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой hash запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже занят другим запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key is used with different request payload")
	// ErrIdempotencyKeyNotFound — записи по ключу нет.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

// ProductNotFoundError возвращается валидатором для первого (в порядке
// запроса) идентификатора товара, которого нет в каталоге.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError — советующая (advisory) проверка остатка не прошла:
// на момент чтения каталога товара меньше, чем запрошено.
type InsufficientStockError struct {
	ProductID string
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// StockConflictError — списание проиграло гонку на этапе коммита: заказ уже
// записан, но атомарный декремент по товару не прошёл. Отличается от
// InsufficientStockError тем, что сток закончился МЕЖДУ проверкой и коммитом.
type StockConflictError struct {
	ProductID string
	OrderID   string
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("stock conflict on product %s: order %s lost the decrement race",
		e.ProductID, e.OrderID)
}

// IsProductNotFound проверяет, является ли ошибка отсутствием товара.
func IsProductNotFound(err error) bool {
	var target *ProductNotFoundError
	return errors.As(err, &target)
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой остатка на валидации.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// IsStockConflict проверяет, является ли ошибка гонкой за сток после записи заказа.
func IsStockConflict(err error) bool {
	var target *StockConflictError
	return errors.As(err, &target)
}

// IsRetriable сообщает, можно ли безопасно повторить весь запрос целиком.
// Повторяемы только ошибки хранилища до списания стока.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
