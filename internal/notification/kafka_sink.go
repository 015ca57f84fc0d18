package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON keyed by order number, so every event of
// one order lands on the same partition.
type KafkaSink struct {
	writer MessageWriter
}

func NewKafkaWriter(brokersCSV, topic string) *kafka.Writer {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaSink(writer MessageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

func (k *KafkaSink) Handle(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("notification: failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.OrderNumber),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("notification: failed to publish %s: %w", e.Type, err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
