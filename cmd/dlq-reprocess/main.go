// dlq-reprocess читает checkout.dlq и возвращает события заказов в рабочий
// топик. По умолчанию работает в dry-run: показывает кандидатов и сводку по
// типам событий, ничего не публикуя.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
)

// knownOrderEventTypes — типы событий, которые производит этот сервис.
// Всё остальное в DLQ считается чужим payload и реплеится только с
// -allow-foreign.
var knownOrderEventTypes = map[kafka.EventType]bool{
	kafka.EventTypeOrderPlaced:        true,
	kafka.EventTypeOrderCompleted:     true,
	kafka.EventTypeOrderStockConflict: true,
	kafka.EventTypeCompensationQueued: true,
}

type config struct {
	brokers      []string
	sourceTopic  string
	targetTopic  string
	limit        int
	execute      bool
	fromNewest   bool
	allowForeign bool
	eventTypes   map[string]bool
	orderID      string
	idleTimeout  time.Duration
}

// replayCandidate — сообщение, готовое к возврату в рабочий топик, вместе
// с результатом классификации payload-а как события заказа.
type replayCandidate struct {
	topic     string
	key       string
	value     []byte
	eventType string
	orderID   string
	known     bool
}

// consumerDLQPayload — формат DLQ-сообщений, которые пишет kafka.Consumer.
type consumerDLQPayload struct {
	OriginalTopic string `json:"original_topic"`
	OriginalKey   string `json:"original_key"`
	OriginalValue string `json:"original_value"`
}

// outboxEnvelope — формат событий, которые публикует OutboxTopicPublisher.
type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

// outboxDLQPayload — вложенный payload DLQ-сообщений outbox-воркера.
type outboxDLQPayload struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

type replayEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

type offsetReader interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionReader interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionReader, error)
	Close() error
}

type replaySink interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type saramaPartitionSource struct {
	source sarama.Consumer
}

func (a saramaPartitionSource) ConsumePartition(topic string, partition int32, offset int64) (partitionReader, error) {
	pc, err := a.source.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaPartitionSource) Close() error {
	if a.source == nil {
		return nil
	}
	return a.source.Close()
}

var newReplayDependencies = func(cfg config) (offsetReader, partitionSource, replaySink, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Return.Errors = true

	offsets, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	rawConsumer, err := sarama.NewConsumerFromClient(offsets)
	if err != nil {
		_ = offsets.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	source := saramaPartitionSource{source: rawConsumer}

	if !cfg.execute {
		return offsets, source, nil, nil
	}

	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Compression = sarama.CompressionSnappy
	producerConfig.Producer.Idempotent = true
	producerConfig.Net.MaxOpenRequests = 1

	sink, err := sarama.NewSyncProducer(cfg.brokers, producerConfig)
	if err != nil {
		_ = source.Close()
		_ = offsets.Close()
		return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return offsets, source, sink, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig() (config, error) {
	var (
		brokersRaw    string
		eventTypesRaw string
		cfg           config
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	flag.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	flag.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicOrderEvents, "target topic for replay")
	flag.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	flag.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	flag.BoolVar(&cfg.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	flag.BoolVar(&cfg.allowForeign, "allow-foreign", false, "replay payloads that are not checkout order events")
	flag.StringVar(&eventTypesRaw, "event-type", "", "replay only these order event types, comma-separated (e.g. order.placed,order.stock_conflict)")
	flag.StringVar(&cfg.orderID, "order-id", "", "replay only events of this order")
	flag.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("KAFKA_BROKERS")
	}

	cfg.brokers = parseBrokers(brokersRaw)
	if len(cfg.brokers) == 0 {
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	}
	if strings.TrimSpace(cfg.sourceTopic) == "" {
		return config{}, fmt.Errorf("source-topic is required")
	}
	if strings.TrimSpace(cfg.targetTopic) == "" {
		return config{}, fmt.Errorf("target-topic is required")
	}
	if cfg.limit <= 0 {
		return config{}, fmt.Errorf("limit must be > 0")
	}
	if cfg.idleTimeout <= 0 {
		return config{}, fmt.Errorf("idle-timeout must be > 0")
	}

	eventTypes, err := parseEventTypes(eventTypesRaw)
	if err != nil {
		return config{}, err
	}
	cfg.eventTypes = eventTypes

	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

// parseEventTypes валидирует фильтр против известных типов событий заказа:
// опечатка во флаге должна останавливать реплей, а не молча фильтровать всё.
func parseEventTypes(raw string) (map[string]bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	types := make(map[string]bool)
	for _, chunk := range strings.Split(raw, ",") {
		eventType := strings.TrimSpace(chunk)
		if eventType == "" {
			continue
		}
		if !knownOrderEventTypes[kafka.EventType(eventType)] {
			return nil, fmt.Errorf("unknown order event type %q", eventType)
		}
		types[eventType] = true
	}
	if len(types) == 0 {
		return nil, nil
	}
	return types, nil
}

func run(ctx context.Context, cfg config) error {
	log.WithFields(log.Fields{
		"source_topic": cfg.sourceTopic,
		"target_topic": cfg.targetTopic,
		"limit":        cfg.limit,
		"execute":      cfg.execute,
		"from_newest":  cfg.fromNewest,
		"order_id":     cfg.orderID,
	}).Info("starting dlq replay")

	offsets, source, sink, err := newReplayDependencies(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sink != nil {
			_ = sink.Close()
		}
		if source != nil {
			_ = source.Close()
		}
		if offsets != nil {
			_ = offsets.Close()
		}
	}()

	return runReplay(ctx, cfg, offsets, source, sink)
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
	filtered  int
	byEvent   map[string]int
}

func (s *replayStats) countEvent(eventType string) {
	if eventType == "" {
		eventType = "unknown"
	}
	if s.byEvent == nil {
		s.byEvent = make(map[string]int)
	}
	s.byEvent[eventType]++
}

func (s *replayStats) merge(other replayStats) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
	s.filtered += other.filtered
	for eventType, count := range other.byEvent {
		if s.byEvent == nil {
			s.byEvent = make(map[string]int)
		}
		s.byEvent[eventType] += count
	}
}

func runReplay(ctx context.Context, cfg config, offsets offsetReader, source partitionSource, sink replaySink) error {
	if offsets == nil || source == nil {
		return fmt.Errorf("kafka client and partition source are required")
	}
	if cfg.execute && sink == nil {
		return fmt.Errorf("producer is required in execute mode")
	}

	partitions, err := offsets.Partitions(cfg.sourceTopic)
	if err != nil {
		return fmt.Errorf("get partitions for topic %s: %w", cfg.sourceTopic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", cfg.sourceTopic).Warn("source topic has no partitions")
		return nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	var total replayStats

	for _, partition := range partitions {
		if total.processed >= cfg.limit {
			break
		}

		remaining := cfg.limit - total.processed
		stats, err := scanPartition(ctx, source, offsets, sink, cfg, partition, remaining)
		if err != nil {
			return err
		}
		total.merge(stats)
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}

	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": total.processed,
		"replayed":  total.replayed,
		"skipped":   total.skipped,
		"filtered":  total.filtered,
		"by_event":  total.byEvent,
	}).Info("dlq replay finished")

	return nil
}

func scanPartition(
	ctx context.Context,
	source partitionSource,
	offsets offsetReader,
	sink replaySink,
	cfg config,
	partition int32,
	limit int,
) (replayStats, error) {
	var stats replayStats
	if limit <= 0 {
		return stats, nil
	}

	oldest, err := offsets.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := offsets.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	startOffset := oldest
	if cfg.fromNewest {
		startOffset = newest - int64(limit)
		if startOffset < oldest {
			startOffset = oldest
		}
	}

	reader, err := source.ConsumePartition(cfg.sourceTopic, partition, startOffset)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = reader.Close() }()

	endOffset := newest
	idleTimer := time.NewTimer(cfg.idleTimeout)
	defer idleTimer.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case err := <-reader.Errors():
			if err != nil {
				return stats, fmt.Errorf("partition %d source error: %w", partition, err)
			}
		case msg, ok := <-reader.Messages():
			if !ok || msg == nil {
				return stats, nil
			}

			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(cfg.idleTimeout)

			if msg.Offset >= endOffset {
				return stats, nil
			}

			if err := handleDLQMessage(msg, cfg, sink, &stats); err != nil {
				return stats, err
			}

			if msg.Offset+1 >= endOffset {
				return stats, nil
			}
		case <-idleTimer.C:
			return stats, nil
		}
	}

	return stats, nil
}

func handleDLQMessage(msg *sarama.ConsumerMessage, cfg config, sink replaySink, stats *replayStats) error {
	stats.processed++

	candidate, ok, err := extractCandidate(msg, cfg.targetTopic)
	if err != nil {
		stats.skipped++
		log.WithError(err).WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("skip unsupported dlq message")
		return nil
	}
	if !ok {
		stats.skipped++
		return nil
	}

	if !candidate.known && !cfg.allowForeign {
		stats.skipped++
		log.WithFields(log.Fields{
			"partition":  msg.Partition,
			"offset":     msg.Offset,
			"event_type": candidate.eventType,
		}).Warn("skip payload that is not a checkout order event")
		return nil
	}

	if len(cfg.eventTypes) > 0 && !cfg.eventTypes[candidate.eventType] {
		stats.filtered++
		return nil
	}
	if cfg.orderID != "" && candidate.orderID != cfg.orderID {
		stats.filtered++
		return nil
	}

	stats.countEvent(candidate.eventType)

	if cfg.execute {
		if err := publishCandidate(sink, candidate); err != nil {
			return fmt.Errorf("publish replay message: %w", err)
		}
		stats.replayed++
		return nil
	}

	log.WithFields(log.Fields{
		"partition":    msg.Partition,
		"offset":       msg.Offset,
		"target_topic": candidate.topic,
		"key":          candidate.key,
		"event_type":   candidate.eventType,
		"order_id":     candidate.orderID,
	}).Info("dlq replay candidate")
	stats.replayed++
	return nil
}

func publishCandidate(sink replaySink, candidate replayCandidate) error {
	if sink == nil {
		return fmt.Errorf("replay producer is nil")
	}

	producerMessage := &sarama.ProducerMessage{
		Topic:     candidate.topic,
		Key:       sarama.StringEncoder(candidate.key),
		Value:     sarama.ByteEncoder(candidate.value),
		Timestamp: time.Now().UTC(),
	}

	_, _, err := sink.SendMessage(producerMessage)
	return err
}

// extractCandidate распознаёт оба формата checkout.dlq: сообщения
// source-а (original_value — исходное событие как есть) и сообщения
// outbox-воркера (событие завёрнуто в DLQ-payload внутри envelope).
func extractCandidate(msg *sarama.ConsumerMessage, defaultTopic string) (replayCandidate, bool, error) {
	var consumerPayload consumerDLQPayload
	if err := json.Unmarshal(msg.Value, &consumerPayload); err == nil && consumerPayload.OriginalValue != "" {
		targetTopic := strings.TrimSpace(consumerPayload.OriginalTopic)
		if targetTopic == "" {
			targetTopic = defaultTopic
		}
		candidate := replayCandidate{
			topic: targetTopic,
			key:   consumerPayload.OriginalKey,
			value: []byte(consumerPayload.OriginalValue),
		}
		candidate.eventType, candidate.orderID, candidate.known = classifyOrderEvent(candidate.value)
		return candidate, true, nil
	}

	var envelope outboxEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return replayCandidate{}, false, nil
	}
	if len(envelope.Payload) == 0 {
		return replayCandidate{}, false, nil
	}

	var dlqPayload outboxDLQPayload
	if err := json.Unmarshal(envelope.Payload, &dlqPayload); err != nil {
		return replayCandidate{}, false, fmt.Errorf("decode outbox dlq payload: %w", err)
	}
	if len(dlqPayload.Payload) == 0 {
		return replayCandidate{}, false, fmt.Errorf("outbox dlq payload does not contain original event payload")
	}

	replay := replayEnvelope{
		ID:            firstNonEmpty(dlqPayload.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(dlqPayload.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(dlqPayload.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(dlqPayload.EventType, envelope.EventType),
		Payload:       dlqPayload.Payload,
		PublishedAt:   time.Now().UTC(),
	}
	encoded, err := json.Marshal(replay)
	if err != nil {
		return replayCandidate{}, false, fmt.Errorf("encode replay envelope: %w", err)
	}

	key := replay.AggregateID
	if key == "" {
		key = replay.ID
	}

	candidate := replayCandidate{
		topic: defaultTopic,
		key:   key,
		value: encoded,
	}
	// Классифицируем внутреннее событие заказа, а не envelope.
	candidate.eventType, candidate.orderID, candidate.known = classifyOrderEvent(dlqPayload.Payload)
	return candidate, true, nil
}

// classifyOrderEvent пытается прочитать payload как событие заказа этого
// сервиса. eventType и orderID возвращаются и для неизвестных типов: они
// попадают в сводку как есть.
func classifyOrderEvent(payload []byte) (eventType, orderID string, known bool) {
	var event kafka.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", "", false
	}
	if event.EventType == "" {
		return "", event.OrderID, false
	}
	return string(event.EventType), event.OrderID, knownOrderEventTypes[event.EventType]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
