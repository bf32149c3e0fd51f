package eventlogger

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaEventLogger publishes events as JSON, keyed by diary date so one
// day's events stay on one partition.
type kafkaEventLogger struct {
	writer messageWriter
}

func NewKafkaEventLogger(brokers []string, topic string) *kafkaEventLogger {
	return &kafkaEventLogger{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (el *kafkaEventLogger) Save(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	key := e.Metadata["date"]
	if key == "" {
		key = e.Type
	}
	return el.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Time:    e.CreatedAt,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(e.Type)}},
	})
}

func (el *kafkaEventLogger) Close() error {
	return el.writer.Close()
}
