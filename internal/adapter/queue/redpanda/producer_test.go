package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

type fakeProducer struct {
	records  []*kgo.Record
	err      error
	flushed  bool
	closed   bool
	ctxAlive bool
}

func (f *fakeProducer) Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.ctxAlive = ctx.Err() == nil
	f.records = append(f.records, r)
	promise(r, f.err)
}

func (f *fakeProducer) Flush(context.Context) error {
	f.flushed = true
	return nil
}

func (f *fakeProducer) Close() { f.closed = true }

func TestPublisher_Publish(t *testing.T) {
	fp := &fakeProducer{}
	p := newPublisher(fp, "events")

	ctx, cancel := context.WithCancel(obsctx.ContextWithRequestID(context.Background(), "req-1"))
	cancel()
	err := p.Publish(ctx, domain.Event{Type: domain.EventAssessmentSubmitted, AssessmentID: 42, CustomerID: 7, Payload: map[string]any{"status": "Approved"}})
	require.NoError(t, err)
	require.Len(t, fp.records, 1)
	assert.True(t, fp.ctxAlive, "delivery must outlive the request context")

	rec := fp.records[0]
	assert.Equal(t, "events", rec.Topic)
	assert.Equal(t, "42", string(rec.Key))

	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, domain.EventAssessmentSubmitted, headers["event_type"])
	assert.Equal(t, "req-1", headers["request_id"])
	assert.NotEmpty(t, headers["event_id"])

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, headers["event_id"], decoded.ID)
	assert.Equal(t, int64(7), decoded.CustomerID)
	assert.WithinDuration(t, time.Now(), decoded.OccurredAt, time.Minute)
}

func TestPublisher_DeliveryFailureIsNotReturned(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	err := newPublisher(fp, "events").Publish(context.Background(), domain.Event{ID: "fixed", Type: domain.EventMessagePosted, AssessmentID: 1})
	assert.NoError(t, err)
}

func TestPublisher_Close(t *testing.T) {
	fp := &fakeProducer{}
	require.NoError(t, newPublisher(fp, "events").Close(context.Background()))
	assert.True(t, fp.flushed)
	assert.True(t, fp.closed)

	var nilPub *Publisher
	assert.NoError(t, nilPub.Close(context.Background()))
}

func TestNewPublisher_NoBrokers(t *testing.T) {
	_, err := NewPublisher(nil, "events")
	assert.Error(t, err)
}

type fakeRequester struct {
	code int16
	err  error
	req  *kmsg.CreateTopicsRequest
}

func (f *fakeRequester) Request(_ context.Context, req kmsg.Request) (kmsg.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.req = req.(*kmsg.CreateTopicsRequest)
	resp := kmsg.NewPtrCreateTopicsResponse()
	t := kmsg.NewCreateTopicsResponseTopic()
	t.Topic = f.req.Topics[0].Topic
	t.ErrorCode = f.code
	resp.Topics = append(resp.Topics, t)
	return resp, nil
}

func TestEnsureTopic(t *testing.T) {
	ctx := context.Background()

	created := &fakeRequester{}
	require.NoError(t, ensureTopic(ctx, created, defaultEventsTopic("assessment-events")))
	got := created.req.Topics[0]
	assert.Equal(t, "assessment-events", got.Topic)
	assert.Equal(t, int32(3), got.NumPartitions)
	require.Len(t, got.Configs, 1)
	assert.Equal(t, "retention.ms", got.Configs[0].Name)
	assert.Equal(t, "604800000", *got.Configs[0].Value)

	noRetention := &fakeRequester{}
	require.NoError(t, ensureTopic(ctx, noRetention, eventsTopic{Name: "x", Partitions: 1, Replication: 1}))
	assert.Empty(t, noRetention.req.Topics[0].Configs)
}

func TestEnsureTopic_Errors(t *testing.T) {
	ctx := context.Background()
	spec := eventsTopic{Name: "events", Partitions: 1, Replication: 1}

	assert.NoError(t, ensureTopic(ctx, &fakeRequester{code: kerr.TopicAlreadyExists.Code}, spec))

	err := ensureTopic(ctx, &fakeRequester{code: kerr.InvalidPartitions.Code}, spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, kerr.InvalidPartitions)

	assert.Error(t, ensureTopic(ctx, &fakeRequester{err: errors.New("io")}, spec))
	assert.Error(t, ensureTopic(ctx, &fakeRequester{}, eventsTopic{Partitions: 1, Replication: 1}))
	assert.Error(t, ensureTopic(ctx, &fakeRequester{}, eventsTopic{Name: "events", Replication: 1}))
	assert.Error(t, ensureTopic(ctx, &fakeRequester{}, eventsTopic{Name: "events", Partitions: 1}))
}
