package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/segmentio/kafka-go"
)

// Writer appends entries to a ledger
type Writer interface {
	Append(ctx context.Context, e Entry) error
}

// MultiWriter fans out writes to multiple underlying writers.
// Every writer is attempted; the errors are joined.
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

func (m *MultiWriter) Append(ctx context.Context, e Entry) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of underlying writers
func (m *MultiWriter) Len() int { return len(m.writers) }

// FileWriter appends entries as JSON lines
type FileWriter struct {
	mu   sync.Mutex
	path string
}

func NewFileWriter(dir string, filename string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &FileWriter{path: filepath.Join(dir, filename)}, nil
}

// Path returns the ledger file path
func (w *FileWriter) Path() string { return w.path }

func (w *FileWriter) Append(_ context.Context, e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(&e); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// KafkaWriter publishes entries to a Kafka topic, keyed by stream.
type KafkaWriter struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter creates a synchronous writer acknowledged by all replicas
func NewKafkaWriter(brokers []string, topic string) *KafkaWriter {
	return &KafkaWriter{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}}
}

// NewKafkaWriterWith is only for tests to inject a fake writer.
func NewKafkaWriterWith(w kafkaMessageWriter) *KafkaWriter {
	return &KafkaWriter{writer: w}
}

func (k *KafkaWriter) Append(ctx context.Context, e Entry) error {
	b, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Stream),
		Value: b,
		Time:  e.At,
	})
}

// Close closes the underlying writer when it supports it
func (k *KafkaWriter) Close() error {
	if c, ok := k.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
