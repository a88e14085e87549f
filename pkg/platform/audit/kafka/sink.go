// Package kafka forwards audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/circuit"
)

// Message is the JSON value written for each audit event.
type Message struct {
	Category   string            `json:"category"`
	Action     string            `json:"action"`
	UserID     int64             `json:"user_id,omitempty"`
	Email      string            `json:"email,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	IP         string            `json:"ip,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Encode builds the record for an event. Records are keyed by user so one
// user's events stay ordered within a partition.
func Encode(topic string, event audit.Event) (*kgo.Record, error) {
	value, err := json.Marshal(Message{
		Category:   string(event.Category),
		Action:     event.Action,
		UserID:     int64(event.UserID),
		Email:      event.Email,
		RequestID:  event.RequestID,
		IP:         event.IP,
		Reason:     event.Reason,
		Attributes: event.Attributes,
		Timestamp:  event.Timestamp.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit message: %w", err)
	}
	rec := &kgo.Record{Topic: topic, Value: value}
	if !event.UserID.IsNil() {
		rec.Key = []byte(strconv.FormatInt(int64(event.UserID), 10))
	}
	return rec, nil
}

// Sink produces audit events synchronously. A breaker tracks broker health so
// an outage is logged once rather than per event.
type Sink struct {
	client  *kgo.Client
	topic   string
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Sink) {
		s.breaker = b
	}
}

// New connects to the brokers and ensures the topic exists.
func New(ctx context.Context, brokers []string, topic string, opts ...Option) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	s := &Sink{
		client:  client,
		topic:   topic,
		breaker: circuit.New("audit-kafka"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := EnsureTopic(ctx, kadm.NewClient(client), topic); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// EnsureTopic creates topic with one partition, treating "already exists" as success.
func EnsureTopic(ctx context.Context, adm *kadm.Client, topic string) error {
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

// Publish writes one event and waits for the broker acknowledgement.
func (s *Sink) Publish(ctx context.Context, event audit.Event) error {
	rec, err := Encode(s.topic, event)
	if err != nil {
		return err
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.ErrorContext(ctx, "audit kafka sink degraded", "topic", s.topic, "error", err)
		}
		if s.breaker.IsOpen() {
			return nil
		}
		return fmt.Errorf("produce audit event: %w", err)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "audit kafka sink recovered", "topic", s.topic)
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (s *Sink) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Flush(ctx)
	s.client.Close()
}
