package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"fxrate/internal/store"
)

// Publisher announces readings accepted by the pipeline.
type Publisher interface {
	PublishReading(ctx context.Context, r store.Reading) error
	Close() error
}

// ReadingEvent is the message value written for every stored reading.
type ReadingEvent struct {
	ID          string    `json:"id"`
	Raw         float64   `json:"raw"`
	Smoothed    float64   `json:"smoothed"`
	SourceLabel string    `json:"source_label"`
	ObservedAt  time.Time `json:"observed_at"`
}

func NewEvent(r store.Reading) ReadingEvent {
	return ReadingEvent{
		ID:          r.ID,
		Raw:         r.Raw,
		Smoothed:    r.Smoothed,
		SourceLabel: r.SourceLabel,
		ObservedAt:  r.ObservedAt,
	}
}

// MessageWriter is implemented by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// NewWithWriter wraps an existing writer.
func NewWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (k *KafkaPublisher) PublishReading(ctx context.Context, r store.Reading) error {
	msg, err := json.Marshal(NewEvent(r))
	if err != nil {
		return fmt.Errorf("encode reading event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(r.SourceLabel),
		Value: msg,
		Time:  time.Now(),
	})
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// Noop discards every reading.
type Noop struct{}

func (Noop) PublishReading(context.Context, store.Reading) error { return nil }
func (Noop) Close() error                                        { return nil }
