// Package events publishes run lifecycle events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives RunCompleted events when no topic is configured.
const DefaultTopic = "ledger.runs.completed"

// RunCompleted is emitted once a run's report has been archived.
type RunCompleted struct {
	RunID          string    `json:"run_id"`
	RequestID      string    `json:"request_id,omitempty"`
	Accounts       int       `json:"accounts"`
	LockedAccounts int       `json:"locked_accounts"`
	Applied        int       `json:"applied"`
	Rejected       int       `json:"rejected"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Publisher delivers events.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, event RunCompleted) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by run id.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher builds a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishRunCompleted sends event. Messages for one run share a partition.
func (p *KafkaPublisher) PublishRunCompleted(ctx context.Context, event RunCompleted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode run event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RunID),
		Value: data,
		Time:  event.CompletedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("run_completed")},
		},
	}); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
