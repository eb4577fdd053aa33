package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/service/compensation"
)

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой или если произошла ошибка.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	if brokers == "" {
		return nil, nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// initCompensationConsumer подписывает компенсационный settler на топик
// заказов. Возвращает nil, nil если Kafka не сконфигурирована.
func initCompensationConsumer(cfg Config, producer *kafka.Producer, timeline domain.TimelineRepository, logger *log.Entry) (*kafka.Consumer, error) {
	if producer == nil || cfg.KafkaBrokers == "" {
		return nil, nil
	}

	orderTopic := cfg.OrderTopic
	if orderTopic == "" {
		orderTopic = kafka.TopicOrderEvents
	}
	groupID := cfg.CompensationGroupID
	if groupID == "" {
		groupID = "checkout-compensation"
	}

	settler := compensation.NewSettler(timeline, producer, logger.WithField("component", "compensation-settler"))

	consumer, err := kafka.NewConsumerWithDLQ(
		strings.Split(cfg.KafkaBrokers, ","),
		groupID,
		[]string{orderTopic},
		settler.Handle,
		producer,
		3,
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create compensation consumer, continuing without it")
		return nil, err
	}

	logger.WithFields(log.Fields{
		"group_id": groupID,
		"topic":    orderTopic,
	}).Info("compensation consumer initialized")
	return consumer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
