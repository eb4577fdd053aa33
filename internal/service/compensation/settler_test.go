package compensation

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

type recordingPublisher struct {
	topics []string
	keys   []string
	events []interface{}
	err    error
}

func (p *recordingPublisher) PublishEvent(topic string, key string, event interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

type failingTimeline struct{}

func (failingTimeline) Append(domain.TimelineEvent) error { return errors.New("append failed") }
func (failingTimeline) List(string) ([]domain.TimelineEvent, error) {
	return nil, errors.New("list failed")
}

func orderEventMessage(t *testing.T, eventType kafka.EventType, orderID string) *sarama.ConsumerMessage {
	t.Helper()

	event := kafka.NewOrderEvent(eventType, orderID, "cust-1", "stock_conflict", nil)
	payload, err := event.Marshal()
	if err != nil {
		t.Fatalf("marshal order event: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: kafka.TopicOrderEvents, Value: payload, Key: []byte(orderID)}
}

func TestSettler_StockConflictQueuesCompensation(t *testing.T) {
	timeline := memory.NewTimelineRepository()
	publisher := &recordingPublisher{}
	settler := NewSettler(timeline, publisher, nil)

	msg := orderEventMessage(t, kafka.EventTypeOrderStockConflict, "order-1")
	if err := settler.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	events, err := timeline.List("order-1")
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	if len(events) != 1 || events[0].Type != "compensation_queued" {
		t.Fatalf("expected one compensation_queued timeline event, got %v", events)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.events))
	}
	if publisher.topics[0] != kafka.TopicCompensationEvents {
		t.Errorf("unexpected topic %s", publisher.topics[0])
	}
	if publisher.keys[0] != "order-1" {
		t.Errorf("unexpected key %s", publisher.keys[0])
	}
	published, ok := publisher.events[0].(*kafka.OrderEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", publisher.events[0])
	}
	if published.EventType != kafka.EventTypeCompensationQueued {
		t.Errorf("unexpected event type %s", published.EventType)
	}
	if published.Metadata["source_event"] != string(kafka.EventTypeOrderStockConflict) {
		t.Errorf("source event metadata missing: %v", published.Metadata)
	}
}

func TestSettler_IgnoresOtherOrderEvents(t *testing.T) {
	timeline := memory.NewTimelineRepository()
	publisher := &recordingPublisher{}
	settler := NewSettler(timeline, publisher, nil)

	for _, eventType := range []kafka.EventType{kafka.EventTypeOrderPlaced, kafka.EventTypeOrderCompleted} {
		msg := orderEventMessage(t, eventType, "order-2")
		if err := settler.Handle(context.Background(), msg); err != nil {
			t.Fatalf("handle %s failed: %v", eventType, err)
		}
	}

	events, err := timeline.List("order-2")
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no timeline events, got %v", events)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected no published events, got %d", len(publisher.events))
	}
}

func TestSettler_MalformedPayload(t *testing.T) {
	settler := NewSettler(memory.NewTimelineRepository(), &recordingPublisher{}, nil)

	msg := &sarama.ConsumerMessage{Topic: kafka.TopicOrderEvents, Value: []byte("{")}
	if err := settler.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSettler_StockConflictWithoutOrderID(t *testing.T) {
	settler := NewSettler(memory.NewTimelineRepository(), &recordingPublisher{}, nil)

	msg := orderEventMessage(t, kafka.EventTypeOrderStockConflict, "")
	if err := settler.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected error for missing order id")
	}
}

func TestSettler_TimelineFailurePropagates(t *testing.T) {
	publisher := &recordingPublisher{}
	settler := NewSettler(failingTimeline{}, publisher, nil)

	msg := orderEventMessage(t, kafka.EventTypeOrderStockConflict, "order-3")
	if err := settler.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected timeline error")
	}
	if len(publisher.events) != 0 {
		t.Fatal("compensation event should not be published after timeline failure")
	}
}

func TestSettler_PublisherFailurePropagates(t *testing.T) {
	settler := NewSettler(memory.NewTimelineRepository(), &recordingPublisher{err: errors.New("kafka down")}, nil)

	msg := orderEventMessage(t, kafka.EventTypeOrderStockConflict, "order-4")
	if err := settler.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestSettler_NilPublisherStillRecordsTimeline(t *testing.T) {
	timeline := memory.NewTimelineRepository()
	settler := NewSettler(timeline, nil, nil)

	msg := orderEventMessage(t, kafka.EventTypeOrderStockConflict, "order-5")
	if err := settler.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	events, err := timeline.List("order-5")
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one timeline event, got %d", len(events))
	}
}
