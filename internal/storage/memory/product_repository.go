package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// productRepositoryInMemory совмещает каталог и счётчики остатков.
// Условное списание выполняется под общим мьютексом, поэтому декременты
// линейризуются: проигравший гонку запрос получает false, а не отрицательный
// остаток.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает in-memory каталог с остатками для
// локальной разработки и тестов.
func NewProductRepository() *productRepositoryInMemory {
	return &productRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Seed сохраняет товар, перезаписывая существующий (используется в тестах и dev-режиме).
func (r *productRepositoryInMemory) Seed(product domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product.UpdatedAt = time.Now().UTC()
	r.items[product.ID] = product
}

// FindAllByID возвращает только существующие товары; порядок не гарантируется.
func (r *productRepositoryInMemory) FindAllByID(ids []string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if product, ok := r.items[id]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

// DecrementIfAvailable атомарно списывает qty, если остатка хватает.
func (r *productRepositoryInMemory) DecrementIfAvailable(productID string, qty int32) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("decrement qty must be positive, got %d", qty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok {
		return false, nil
	}
	if product.Quantity < qty {
		return false, nil
	}

	product.Quantity -= qty
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product
	return true, nil
}

// Release возвращает qty обратно на остаток (компенсация).
func (r *productRepositoryInMemory) Release(productID string, qty int32) error {
	if qty <= 0 {
		return fmt.Errorf("release qty must be positive, got %d", qty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok {
		return fmt.Errorf("release: product %s not found", productID)
	}

	product.Quantity += qty
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product
	return nil
}

// SetPrice меняет каталожную цену товара (используется в тестах заморозки цены).
func (r *productRepositoryInMemory) SetPrice(productID string, priceMinor int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok {
		return fmt.Errorf("set price: product %s not found", productID)
	}

	product.PriceMinor = priceMinor
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product
	return nil
}

// Quantity возвращает текущий остаток товара (используется в тестах).
func (r *productRepositoryInMemory) Quantity(productID string) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[productID]
	if !ok {
		return 0, false
	}
	return product.Quantity, true
}

var _ domain.ProductCatalog = (*productRepositoryInMemory)(nil)
var _ domain.ProductStock = (*productRepositoryInMemory)(nil)
