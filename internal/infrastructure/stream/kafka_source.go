package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
)

// kafkaMessageReader abstracts kafka.Reader for testability.
type kafkaMessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaSource reads messages from a Kafka topic. The input is considered
// exhausted once no message arrives within the idle timeout.
type KafkaSource struct {
	reader      kafkaMessageReader
	idleTimeout time.Duration
}

// KafkaConfig configures a KafkaSource
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	IdleTimeout time.Duration
}

// NewKafkaSource creates a consumer-group reader on the topic
func NewKafkaSource(cfg KafkaConfig) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka source: brokers and topic are required")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewKafkaSourceWith(r, cfg.IdleTimeout), nil
}

// NewKafkaSourceWith is only for tests to inject a fake reader.
func NewKafkaSourceWith(r kafkaMessageReader, idleTimeout time.Duration) *KafkaSource {
	if idleTimeout <= 0 {
		idleTimeout = 10 * time.Second
	}
	return &KafkaSource{reader: r, idleTimeout: idleTimeout}
}

// Next returns the value of the next message
func (k *KafkaSource) Next(ctx context.Context) ([]byte, error) {
	for {
		readCtx, cancel := context.WithTimeout(ctx, k.idleTimeout)
		m, err := k.reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read kafka: %w", err)
		}
		if len(m.Value) == 0 {
			continue
		}
		return m.Value, nil
	}
}

func (k *KafkaSource) Close() error { return k.reader.Close() }
