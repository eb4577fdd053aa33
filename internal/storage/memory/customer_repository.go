package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// customerRepositoryInMemory — простая in-memory реализация CustomerLookup.
type customerRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Customer
}

// NewCustomerRepository возвращает in-memory справочник клиентов.
func NewCustomerRepository() *customerRepositoryInMemory {
	return &customerRepositoryInMemory{
		items: make(map[string]domain.Customer),
	}
}

// Seed сохраняет клиента (используется в тестах и dev-режиме).
func (r *customerRepositoryInMemory) Seed(customer domain.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[customer.ID] = customer
}

// FindByID возвращает клиента или ErrCustomerNotFound, если его нет.
func (r *customerRepositoryInMemory) FindByID(id string) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.items[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

var _ domain.CustomerLookup = (*customerRepositoryInMemory)(nil)
