package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/corbtastik/incident-visualizer/internal/category"
	"github.com/corbtastik/incident-visualizer/internal/storage"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CategoryHeader names the target category when the message key is empty.
const CategoryHeader = "category"

// NewKafkaReader builds a consumer-group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		StartOffset: kafka.FirstOffset,
		Dialer:      &kafka.Dialer{Timeout: 10 * time.Second},
	})
}

// Kafka appends one JSON document per message. The message key (or the
// "category" header) selects the category. Messages are committed only
// after they are stored or rejected as unusable.
type Kafka struct {
	reader   MessageReader
	app      storage.Appender
	registry *category.Registry
	hook     Hook
	retry    time.Duration
	logger   logpkg.Logger
}

// KafkaOptions configures the consumer.
type KafkaOptions struct {
	Hook Hook
	// Retry is the wait between failed appends of the same message.
	Retry time.Duration
}

// NewKafka builds a consumer over reader.
func NewKafka(reader MessageReader, app storage.Appender, registry *category.Registry, opts KafkaOptions, logger logpkg.Logger) *Kafka {
	if opts.Hook == nil {
		opts.Hook = nopHook{}
	}
	if opts.Retry <= 0 {
		opts.Retry = time.Second
	}
	if logger == nil {
		logger = logpkg.NewNop()
	}
	return &Kafka{
		reader:   reader,
		app:      app,
		registry: registry,
		hook:     opts.Hook,
		retry:    opts.Retry,
		logger:   logger.WithComponent("ingest.kafka"),
	}
}

// Name implements Source.
func (k *Kafka) Name() string { return "kafka" }

// Run implements Source. It closes the reader on return.
func (k *Kafka) Run(ctx context.Context) error {
	defer k.reader.Close()
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ingest: fetch: %w", err)
		}
		if err := k.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ingest: commit offset %d: %w", msg.Offset, err)
		}
	}
}

// handle stores msg, retrying append failures until ctx is done. Messages
// that can never be stored are logged and skipped.
func (k *Kafka) handle(ctx context.Context, msg kafka.Message) error {
	c, doc, err := k.decode(msg)
	if err != nil {
		k.hook.ObserveIngest(k.Name(), c.Name, 0, err)
		k.logger.Warn("skipping message",
			logpkg.Int("partition", msg.Partition),
			logpkg.Int64("offset", msg.Offset),
			logpkg.Err(err))
		return nil
	}
	for {
		_, err := k.app.Append(ctx, c.Collection, []map[string]any{doc})
		k.hook.ObserveIngest(k.Name(), c.Name, 1, err)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		k.logger.Warn("append failed, retrying", logpkg.Category(c.Name), logpkg.Err(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(k.retry):
		}
	}
}

func (k *Kafka) decode(msg kafka.Message) (category.Category, map[string]any, error) {
	name := strings.TrimSpace(string(msg.Key))
	if name == "" {
		for _, h := range msg.Headers {
			if h.Key == CategoryHeader {
				name = strings.TrimSpace(string(h.Value))
			}
		}
	}
	c, ok := k.registry.Lookup(name)
	if !ok {
		return category.Category{Name: name}, nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	var doc map[string]any
	if err := json.Unmarshal(msg.Value, &doc); err != nil {
		return c, nil, fmt.Errorf("ingest: decode: %w", err)
	}
	if doc == nil {
		return c, nil, fmt.Errorf("ingest: decode: value is not a JSON object")
	}
	if _, ok := doc["incidentId"]; !ok {
		doc["incidentId"] = MessageID(msg).String()
	}
	return c, doc, nil
}

// MessageID derives a stable id from a message's position, so a redelivered
// message carries the same id.
func MessageID(msg kafka.Message) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("kafka://%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)))
}
