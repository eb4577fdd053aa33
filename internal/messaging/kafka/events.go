package kafka

import (
	"encoding/json"
	"time"
)

// EventType определяет тип события
type EventType string

const (
	// События жизненного цикла заказа
	EventTypeOrderPlaced        EventType = "order.placed"
	EventTypeOrderCompleted     EventType = "order.completed"
	EventTypeOrderStockConflict EventType = "order.stock_conflict"

	// События компенсации
	EventTypeCompensationQueued EventType = "compensation.queued"
)

// Topics для Kafka
const (
	TopicOrderEvents        = "checkout.order.events"
	TopicCompensationEvents = "checkout.compensation.events"
	TopicDeadLetterQueue    = "checkout.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	CustomerID string                 `json:"customer_id"`
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, customerID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		CustomerID: customerID,
		Status:     status,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

// Marshal сериализует событие для публикации.
func (e *OrderEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
