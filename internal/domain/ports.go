package domain

import "time"

// CustomerLookup описывает доступ к справочнику клиентов.
type CustomerLookup interface {
	// FindByID возвращает клиента или ErrCustomerNotFound, если его нет.
	FindByID(id string) (Customer, error)
}

// ProductCatalog описывает read-only доступ к каталогу товаров.
type ProductCatalog interface {
	// FindAllByID возвращает только существующие товары из запрошенных id.
	// Отсутствующие id вычисляет вызывающая сторона.
	FindAllByID(ids []string) ([]Product, error)
}

// ProductStock описывает атомарные операции над остатками.
// Именно этот контракт, а не чтение каталога, является границей корректности.
type ProductStock interface {
	// DecrementIfAvailable атомарно списывает qty, если остатка хватает.
	// false означает, что на момент коммита остатка уже недостаточно.
	DecrementIfAvailable(productID string, qty int32) (bool, error)
	// Release возвращает qty обратно на остаток (компенсация частично
	// применённого списания).
	Release(productID string, qty int32) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
