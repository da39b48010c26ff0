package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/pkg/log"
)

// MessageEvent is the record value written to the topic.
type MessageEvent struct {
	Event   string             `json:"event"`
	Message domain.ChatMessage `json:"message"`
}

const EventMessagePersisted = "chat.message.persisted"

type ConfluentPublisher struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

func NewConfluentPublisher(brokers, topic string, partitions int) (*ConfluentPublisher, error) {
	l := log.L()

	if err := ensureTopic(brokers, topic, partitions); err != nil {
		l.Warn().Err(err).Str("topic", topic).Msg("failed to ensure kafka topic")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentPublisher{
		producer: p,
		topic:    topic,
		doneCh:   make(chan struct{}),
	}
	go cp.deliveryReports()

	l.Info().Str("brokers", brokers).Str("topic", topic).Msg("kafka publisher ready")
	return cp, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return err
	}

	for _, result := range results {
		if code := result.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}
	return nil
}

func (cp *ConfluentPublisher) deliveryReports() {
	l := log.L()
	for e := range cp.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			l.Warn().Err(m.TopicPartition.Error).Str(log.FieldRoomID, string(m.Key)).Msg("kafka delivery failed")
		}
	}
	close(cp.doneCh)
}

// PublishMessage keys records by chat owner so one chat stays on one
// partition and keeps its order.
func (cp *ConfluentPublisher) PublishMessage(ctx context.Context, msg domain.ChatMessage) error {
	value, err := EncodeMessageEvent(msg)
	if err != nil {
		return err
	}

	err = cp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &cp.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(msg.ChatOwnerID),
		Value: value,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

func (cp *ConfluentPublisher) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}

// EncodeMessageEvent builds the record value. The correlation token is a
// client concern and is not published.
func EncodeMessageEvent(msg domain.ChatMessage) ([]byte, error) {
	msg.ClientMessageID = ""
	value, err := json.Marshal(MessageEvent{Event: EventMessagePersisted, Message: msg})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat message: %w", err)
	}
	return value, nil
}
