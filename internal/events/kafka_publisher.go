package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards activity entries to a topic. Entries of one entity share
// a partition key, so consumers see them in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
		topic: topic,
	}, nil
}

type activityEvent struct {
	ID           int64          `json:"id"`
	EntityType   string         `json:"entity_type"`
	EntityID     int64          `json:"entity_id"`
	ActivityType string         `json:"activity_type"`
	Description  string         `json:"description"`
	PerformedBy  int64          `json:"performed_by"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, e core.ActivityLogEntry) error {
	payload, err := json.Marshal(activityEvent{
		ID:           e.ID,
		EntityType:   string(e.EntityType),
		EntityID:     e.EntityID,
		ActivityType: string(e.ActivityType),
		Description:  e.Description,
		PerformedBy:  e.PerformedBy,
		Metadata:     e.Metadata,
		OccurredAt:   e.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode activity %d: %w", e.ID, err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(string(e.EntityType) + ":" + strconv.FormatInt(e.EntityID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "activity_type", Value: []byte(e.ActivityType)},
		},
		Time: time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
