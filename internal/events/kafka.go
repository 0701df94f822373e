package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink writes listing events to a topic for downstream consumers.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a sink for topic on brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka sink requires a topic")
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
	}, nil
}

// Publish writes ev keyed by listing id so a listing's events stay ordered.
func (k *KafkaSink) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.Listing.ID), 10)),
		Value: raw,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
		Time: time.Now().UTC(),
	})
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
