package compensation

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
)

var (
	settledEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_compensation_events_total",
		Help: "Order events seen by the compensation settler, by result",
	}, []string{"result"})
)

// EventPublisher публикует события компенсации. Интерфейс совпадает с
// kafka.Producer.PublishEvent.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// Settler обрабатывает события stock_conflict из топика заказов: фиксирует
// в timeline, что заказ передан на асинхронное урегулирование, и публикует
// компенсационное событие для downstream-систем. Остальные события заказов
// пропускаются без побочных эффектов.
type Settler struct {
	timeline  domain.TimelineRepository
	publisher EventPublisher
	topic     string
	logger    *log.Entry
	now       func() time.Time
}

// NewSettler создаёт обработчик компенсаций. Publisher может быть nil:
// тогда timeline обновляется, а событие компенсации не публикуется.
func NewSettler(timeline domain.TimelineRepository, publisher EventPublisher, logger *log.Entry) *Settler {
	if logger == nil {
		logger = log.WithField("component", "compensation-settler")
	}
	return &Settler{
		timeline:  timeline,
		publisher: publisher,
		topic:     kafka.TopicCompensationEvents,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle реализует kafka.MessageHandler. Ошибка означает, что сообщение
// уйдёт в retry и при исчерпании попыток в DLQ.
func (s *Settler) Handle(_ context.Context, message *sarama.ConsumerMessage) error {
	event, err := kafka.ParseOrderEvent(message)
	if err != nil {
		settledEvents.WithLabelValues("invalid").Inc()
		return fmt.Errorf("decode order event: %w", err)
	}

	if event.EventType != kafka.EventTypeOrderStockConflict {
		settledEvents.WithLabelValues("skipped").Inc()
		return nil
	}
	if event.OrderID == "" {
		settledEvents.WithLabelValues("invalid").Inc()
		return fmt.Errorf("stock conflict event without order id")
	}

	logger := s.logger.WithField("order_id", event.OrderID)

	if s.timeline != nil {
		timelineEvent := domain.TimelineEvent{
			OrderID:  event.OrderID,
			Type:     "compensation_queued",
			Reason:   "stock conflict routed to async settlement",
			Occurred: s.now(),
		}
		if err := s.timeline.Append(timelineEvent); err != nil {
			settledEvents.WithLabelValues("error").Inc()
			return fmt.Errorf("append compensation timeline event: %w", err)
		}
	}

	if s.publisher != nil {
		compensation := kafka.NewOrderEvent(
			kafka.EventTypeCompensationQueued,
			event.OrderID,
			event.CustomerID,
			event.Status,
			map[string]interface{}{"source_event": string(event.EventType)},
		)
		if err := s.publisher.PublishEvent(s.topic, event.OrderID, compensation); err != nil {
			settledEvents.WithLabelValues("error").Inc()
			return fmt.Errorf("publish compensation event: %w", err)
		}
	}

	settledEvents.WithLabelValues("settled").Inc()
	logger.Info("stock conflict queued for compensation")
	return nil
}
