package placement

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

// defaultCurrency используется, пока у покупателей нет собственной валюты.
const defaultCurrency = "USD"

// Orchestrator — точка входа размещения заказа: валидация, фиксация цен,
// durable-запись заказа и списание остатков.
type Orchestrator interface {
	PlaceOrder(ctx context.Context, customerID string, lines []domain.OrderLineRequest) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
}

type orchestrator struct {
	validator  *Validator
	reconciler *StockReconciler
	orders     domain.OrderRepository
	outbox     domain.OutboxRepository
	timeline   domain.TimelineRepository

	logger  *log.Entry
	metrics *metrics.PlacementMetrics

	kafkaProducer *kafka.Producer
	orderTopic    string

	now func() time.Time
}

// NewOrchestrator создаёт оркестратор с метриками, но без прямой публикации
// в Kafka: события уходят только через outbox.
func NewOrchestrator(
	validator *Validator,
	reconciler *StockReconciler,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	m *metrics.PlacementMetrics,
) Orchestrator {
	return &orchestrator{
		validator:  validator,
		reconciler: reconciler,
		orders:     orders,
		outbox:     outbox,
		timeline:   timeline,
		logger:     log.WithField("component", "placement-orchestrator"),
		metrics:    m,
		now:        time.Now,
	}
}

// NewOrchestratorWithKafka — вариант с дублированием событий напрямую в
// Kafka в обход outbox-воркера. Используется, когда consumer-ам нужна
// минимальная задержка.
func NewOrchestratorWithKafka(
	validator *Validator,
	reconciler *StockReconciler,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	m *metrics.PlacementMetrics,
	producer *kafka.Producer,
	orderTopic string,
) Orchestrator {
	return &orchestrator{
		validator:     validator,
		reconciler:    reconciler,
		orders:        orders,
		outbox:        outbox,
		timeline:      timeline,
		logger:        log.WithField("component", "placement-orchestrator"),
		metrics:       m,
		kafkaProducer: producer,
		orderTopic:    orderTopic,
		now:           time.Now,
	}
}

// NewOrchestratorWithoutMetrics используется в юнит-тестах.
func NewOrchestratorWithoutMetrics(
	validator *Validator,
	reconciler *StockReconciler,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
) Orchestrator {
	return &orchestrator{
		validator:  validator,
		reconciler: reconciler,
		orders:     orders,
		outbox:     outbox,
		timeline:   timeline,
		logger:     log.WithField("component", "placement-orchestrator"),
		now:        time.Now,
	}
}

// PlaceOrder проводит заказ через полный цикл размещения. После успешной
// durable-записи заказ доводится до терминального статуса независимо от
// отмены контекста вызывающей стороны.
func (o *orchestrator) PlaceOrder(ctx context.Context, customerID string, lines []domain.OrderLineRequest) (domain.Order, error) {
	started := o.now()
	if o.metrics != nil {
		o.metrics.RecordPlacementStarted()
		defer func() {
			o.metrics.RecordPlacementDuration(time.Since(started))
			o.metrics.RecordPlacementFinished()
		}()
	}

	logger := o.logger.WithField("customer_id", customerID)

	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	stepStart := o.now()
	validated, err := o.validator.Validate(customerID, lines)
	o.recordStep("validate", stepStart)
	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordPlacementRejected()
		}
		logger.WithError(err).Info("order rejected during validation")
		return domain.Order{}, err
	}

	stepStart = o.now()
	priced := PriceLines(validated)
	order := AssembleOrder(validated.CustomerID, defaultCurrency, priced, o.now())
	o.recordStep("price", stepStart)

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		if o.metrics != nil {
			o.metrics.RecordPlacementFailed()
		}
		return domain.Order{}, fmt.Errorf("assembled order is invalid: %v", errs)
	}

	logger = logger.WithField("order_id", order.ID)

	// Последняя точка, где отмена вызывающей стороны ещё может остановить
	// размещение: после записи заказа работа идёт до терминального статуса.
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	stepStart = o.now()
	if err := o.orders.CreateWithLines(order); err != nil {
		o.recordStep("persist", stepStart)
		if o.metrics != nil {
			o.metrics.RecordPlacementFailed()
		}
		logger.WithError(err).Error("failed to persist order")
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	o.recordStep("persist", stepStart)

	o.appendTimeline(order.ID, "order_placed", fmt.Sprintf("order placed with %d lines, amount %d %s", len(order.Lines), order.AmountMinor, order.Currency))
	o.emitEvent(order, kafka.EventTypeOrderPlaced)

	stepStart = o.now()
	reconcileErr := o.reconciler.Reconcile(order.ID, order.Lines)
	o.recordStep("reconcile", stepStart)
	if reconcileErr != nil {
		return domain.Order{}, o.failStockConflict(order, reconcileErr, logger)
	}

	order = o.updateStatus(order, domain.OrderStatusCompleted, logger)
	o.appendTimeline(order.ID, "stock_applied", "stock decremented for all lines")
	o.emitEvent(order, kafka.EventTypeOrderCompleted)

	if o.metrics != nil {
		o.metrics.RecordPlacementCompleted()
	}
	logger.WithFields(log.Fields{
		"amount_minor": order.AmountMinor,
		"lines":        len(order.Lines),
	}).Info("order placed")

	return order, nil
}

func (o *orchestrator) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	return o.orders.Get(orderID)
}

func (o *orchestrator) ListOrders(_ context.Context, customerID string, limit int) ([]domain.Order, error) {
	if err := o.validator.CustomerExists(customerID); err != nil {
		return nil, err
	}
	return o.orders.ListByCustomer(customerID, limit)
}

// failStockConflict переводит заказ в терминальный статус stock_conflict и
// публикует компенсационное событие. Исходная ошибка reconcile возвращается
// вызывающей стороне всегда, даже если компенсация прошла частично.
func (o *orchestrator) failStockConflict(order domain.Order, rootErr error, logger *log.Entry) error {
	if o.metrics != nil {
		o.metrics.RecordStockConflict()
	}
	logger.WithError(rootErr).Warn("stock reconciliation lost the race")

	order = o.updateStatus(order, domain.OrderStatusStockConflict, logger)
	o.appendTimeline(order.ID, "stock_conflict", rootErr.Error())
	o.emitEvent(order, kafka.EventTypeOrderStockConflict)

	return rootErr
}

// updateStatus обновляет статус заказа с повторными попытками на конфликте
// версий. Терминальный статус после durable-записи важнее сиюминутной
// ошибки: если статус не записался, это логируется, а заказ возвращается
// с локально выставленным статусом.
func (o *orchestrator) updateStatus(order domain.Order, status domain.OrderStatus, logger *log.Entry) domain.Order {
	const maxAttempts = 3
	delay := 50 * time.Millisecond

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		current, err := o.orders.Get(order.ID)
		if err != nil {
			logger.WithError(err).Error("failed to load order for status update")
			break
		}
		current.Status = status
		current.UpdatedAt = o.now()
		if err := o.orders.Save(current); err == nil {
			return current
		} else if !domain.IsVersionConflict(err) {
			logger.WithError(err).Error("failed to update order status")
			break
		}
		time.Sleep(delay)
		delay *= 2
	}

	order.Status = status
	return order
}

func (o *orchestrator) appendTimeline(orderID, eventType, reason string) {
	if o.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		Occurred: o.now(),
	}
	if err := o.timeline.Append(event); err != nil {
		o.logger.WithError(err).WithField("order_id", orderID).Warn("failed to append timeline event")
		return
	}
	if o.metrics != nil {
		o.metrics.RecordTimelineEvent()
	}
}

// emitEvent кладёт событие заказа в outbox и, если сконфигурирован прямой
// producer, дублирует его в Kafka. Ошибки публикации не прерывают
// размещение: outbox-воркер доставит событие позже.
func (o *orchestrator) emitEvent(order domain.Order, eventType kafka.EventType) {
	event := kafka.NewOrderEvent(eventType, order.ID, order.CustomerID, string(order.Status), nil)
	payload, err := event.Marshal()
	if err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Error("failed to marshal order event")
		return
	}

	if o.outbox != nil {
		msg := domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     string(eventType),
			Payload:       payload,
		}
		if _, err := o.outbox.Enqueue(msg); err != nil {
			o.logger.WithError(err).WithField("order_id", order.ID).Error("failed to enqueue outbox event")
		} else if o.metrics != nil {
			o.metrics.RecordOutboxEvent()
		}
	}

	if o.kafkaProducer != nil {
		if err := o.kafkaProducer.PublishRaw(o.orderTopic, order.ID, payload); err != nil {
			o.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to publish order event to kafka")
		}
	}
}

func (o *orchestrator) recordStep(step string, started time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStepDuration(step, time.Since(started))
	}
}
