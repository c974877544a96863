// Package kafka publishes collector events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"stockcollector/internal/domain"
	"stockcollector/internal/util"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes a PartitionCommitted event per committed date.
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// committedEvent is the wire form of domain.PartitionCommitted.
type committedEvent struct {
	EventType string `json:"eventType"`
	domain.PartitionCommitted
}

// PartitionCommitted publishes ev keyed by its ISO date, so every event for
// one date lands on the same Kafka partition.
func (p *Producer) PartitionCommitted(ctx context.Context, ev domain.PartitionCommitted) error {
	data, err := json.Marshal(committedEvent{EventType: "PARTITION_COMMITTED", PartitionCommitted: ev})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(util.FormatDate(ev.Date)),
		Value: data,
		Time:  ev.CommittedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
