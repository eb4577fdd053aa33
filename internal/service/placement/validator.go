package placement

import (
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// ValidatedOrder — результат успешной валидации: исходные позиции запроса
// вместе с разрешёнными записями каталога, готовые к прайсингу.
type ValidatedOrder struct {
	CustomerID string
	Lines      []domain.OrderLineRequest
	Products   map[string]domain.Product
}

// Validator проверяет запрос на размещение против текущего состояния
// коллабораторов. Проверка остатка здесь advisory: она отсекает заведомо
// невыполнимые запросы быстро и без побочных эффектов, а границей
// корректности остаётся атомарный декремент в StockReconciler.
type Validator struct {
	customers domain.CustomerLookup
	catalog   domain.ProductCatalog
}

// NewValidator создаёт валидатор поверх справочника клиентов и каталога.
func NewValidator(customers domain.CustomerLookup, catalog domain.ProductCatalog) *Validator {
	return &Validator{
		customers: customers,
		catalog:   catalog,
	}
}

// Validate проверяет клиента, состав запроса и остатки. Ошибки детерминированы:
// при нескольких проблемных позициях сообщается первая в порядке запроса.
func (v *Validator) Validate(customerID string, lines []domain.OrderLineRequest) (ValidatedOrder, error) {
	if customerID == "" {
		return ValidatedOrder{}, domain.ErrCustomerRequired
	}

	if _, err := v.customers.FindByID(customerID); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return ValidatedOrder{}, domain.ErrCustomerNotFound
		}
		return ValidatedOrder{}, fmt.Errorf("lookup customer %s: %w", customerID, err)
	}

	if len(lines) == 0 {
		return ValidatedOrder{}, domain.ErrNoProductsRequested
	}

	for _, line := range lines {
		if line.ProductID == "" {
			return ValidatedOrder{}, domain.ErrLineProductRequired
		}
		if line.Qty <= 0 {
			return ValidatedOrder{}, domain.ErrLineQtyInvalid
		}
	}

	// Один батчевый lookup по всем уникальным id запроса.
	ids := distinctIDs(lines)
	products, err := v.catalog.FindAllByID(ids)
	if err != nil {
		return ValidatedOrder{}, fmt.Errorf("lookup products: %w", err)
	}

	resolved := make(map[string]domain.Product, len(products))
	for _, product := range products {
		resolved[product.ID] = product
	}

	// Отсутствующий товар сообщается первым в порядке запроса, а не произвольным:
	// вызывающая сторона должна получать одинаковую ошибку при повторе.
	for _, line := range lines {
		if _, ok := resolved[line.ProductID]; !ok {
			return ValidatedOrder{}, &domain.ProductNotFoundError{ProductID: line.ProductID}
		}
	}

	for _, line := range lines {
		product := resolved[line.ProductID]
		if product.Quantity < line.Qty {
			return ValidatedOrder{}, &domain.InsufficientStockError{
				ProductID: line.ProductID,
				Requested: line.Qty,
				Available: product.Quantity,
			}
		}
	}

	return ValidatedOrder{
		CustomerID: customerID,
		Lines:      lines,
		Products:   resolved,
	}, nil
}

// CustomerExists проверяет наличие клиента без валидации состава заказа.
// Read-path использует его, чтобы ошибки по неизвестному клиенту совпадали
// с ошибками размещения.
func (v *Validator) CustomerExists(customerID string) error {
	if customerID == "" {
		return domain.ErrCustomerRequired
	}
	if _, err := v.customers.FindByID(customerID); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.ErrCustomerNotFound
		}
		return fmt.Errorf("lookup customer %s: %w", customerID, err)
	}
	return nil
}

func distinctIDs(lines []domain.OrderLineRequest) []string {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}
