package app

import (
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

func TestInitKafkaProducer_EmptyBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	producer, err := initKafkaProducer("", logger)

	if err != nil {
		t.Errorf("expected no error for empty brokers, got %v", err)
	}

	if producer != nil {
		t.Error("expected nil producer for empty brokers")
	}
}

func TestInitKafkaProducer_InvalidBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	producer, err := initKafkaProducer("invalid-broker:9999", logger)

	if err == nil {
		t.Error("expected error for invalid brokers")
	}

	if producer != nil {
		t.Error("expected nil producer on error")
	}
}

func TestInitKafkaProducer_MultipleBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	brokers := "broker1:9092,broker2:9092,broker3:9092"
	producer, err := initKafkaProducer(brokers, logger)

	if err == nil {
		t.Error("expected error for invalid brokers")
	}

	if producer != nil {
		t.Error("expected nil producer on error")
	}
}

func TestInitCompensationConsumer_NoKafka(t *testing.T) {
	logger := log.WithField("test", "kafka")
	cfg := DefaultConfig()

	consumer, err := initCompensationConsumer(cfg, nil, memory.NewTimelineRepository(), logger)

	if err != nil {
		t.Errorf("expected no error without kafka, got %v", err)
	}
	if consumer != nil {
		t.Error("expected nil consumer without kafka")
	}
}

func TestInitCompensationConsumer_InvalidBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")
	cfg := DefaultConfig()
	cfg.KafkaBrokers = "invalid-broker:9999"

	consumer, err := initCompensationConsumer(cfg, &kafka.Producer{}, memory.NewTimelineRepository(), logger)

	if err == nil {
		t.Error("expected error for invalid brokers")
	}
	if consumer != nil {
		t.Error("expected nil consumer on error")
	}
}

func TestCloseKafka_NilProducer(_ *testing.T) {
	logger := log.WithField("test", "kafka")

	// Не должно паниковать
	closeKafka(nil, logger)
}
