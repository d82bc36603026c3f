// Package redpanda publishes assessment events to Redpanda/Kafka.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

// DefaultTopic receives every assessment event unless configured otherwise.
const DefaultTopic = "assessment-events"

type recordProducer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// Publisher implements domain.EventPublisher. Records are produced
// asynchronously; delivery failures are logged and counted, never returned.
type Publisher struct {
	client recordProducer
	topic  string
}

// NewPublisher connects to brokers and makes sure topic exists.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewPublisher: no seed brokers provided")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	slog.Info("creating redpanda publisher", slog.Any("brokers", brokers), slog.String("topic", topic))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(10*time.Millisecond),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewPublisher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := ensureTopic(ctx, client, defaultEventsTopic(topic)); err != nil {
		slog.Warn("events topic not ensured; relying on broker auto-create", slog.String("topic", topic), slog.Any("error", err))
	}
	return newPublisher(client, topic), nil
}

func newPublisher(client recordProducer, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Publish enqueues e keyed by assessment id so events of one assessment stay ordered.
func (p *Publisher) Publish(ctx domain.Context, e domain.Event) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("op=redpanda.Publish: marshal event: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(strconv.FormatInt(e.AssessmentID, 10)),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(e.ID)},
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if rid := obsctx.RequestIDFromContext(ctx); rid != "" {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: "request_id", Value: []byte(rid)})
	}

	lg := obsctx.LoggerFromContext(ctx)
	// the request context ends before delivery completes
	p.client.Produce(context.WithoutCancel(ctx), rec, func(r *kgo.Record, err error) {
		observability.RecordEventPublish(e.Type, err == nil)
		if err != nil {
			lg.Warn("event delivery failed",
				slog.String("event_id", e.ID),
				slog.String("event_type", e.Type),
				slog.String("topic", r.Topic),
				slog.Any("error", err))
			return
		}
		lg.Debug("event delivered",
			slog.String("event_id", e.ID),
			slog.String("event_type", e.Type),
			slog.Int64("offset", r.Offset))
	})
	return nil
}

// Close flushes buffered records and closes the client.
func (p *Publisher) Close(ctx context.Context) error {
	if p == nil || p.client == nil {
		return nil
	}
	err := p.client.Flush(ctx)
	p.client.Close()
	if err != nil {
		return fmt.Errorf("op=redpanda.Close: %w", err)
	}
	return nil
}
