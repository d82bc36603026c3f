package redpanda

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// eventsTopic describes the assessment events topic created on startup.
type eventsTopic struct {
	Name        string
	Partitions  int32
	Replication int16
	// RetentionMs is written as retention.ms; zero keeps the broker default.
	RetentionMs int64
}

func defaultEventsTopic(name string) eventsTopic {
	return eventsTopic{Name: name, Partitions: 3, Replication: 1, RetentionMs: int64(7 * 24 * time.Hour / time.Millisecond)}
}

func (t eventsTopic) validate() error {
	switch {
	case t.Name == "":
		return errors.New("topic name required")
	case t.Partitions <= 0:
		return fmt.Errorf("topic %s: partitions must be positive", t.Name)
	case t.Replication <= 0:
		return fmt.Errorf("topic %s: replication must be positive", t.Name)
	}
	return nil
}

type requester interface {
	Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error)
}

// ensureTopic issues a CreateTopics admin request. A topic that already exists is fine.
func ensureTopic(ctx context.Context, client requester, spec eventsTopic) error {
	if err := spec.validate(); err != nil {
		return fmt.Errorf("op=redpanda.ensureTopic: %w", err)
	}

	rt := kmsg.NewCreateTopicsRequestTopic()
	rt.Topic = spec.Name
	rt.NumPartitions = spec.Partitions
	rt.ReplicationFactor = spec.Replication
	if spec.RetentionMs > 0 {
		c := kmsg.NewCreateTopicsRequestTopicConfig()
		c.Name = "retention.ms"
		v := fmt.Sprintf("%d", spec.RetentionMs)
		c.Value = &v
		rt.Configs = append(rt.Configs, c)
	}
	req := kmsg.NewPtrCreateTopicsRequest()
	req.TimeoutMillis = 10000
	req.Topics = append(req.Topics, rt)

	resp, err := client.Request(ctx, req)
	if err != nil {
		return fmt.Errorf("op=redpanda.ensureTopic: %w", err)
	}
	created, ok := resp.(*kmsg.CreateTopicsResponse)
	if !ok {
		return fmt.Errorf("op=redpanda.ensureTopic: unexpected response %T", resp)
	}
	for _, tr := range created.Topics {
		err := kerr.ErrorForCode(tr.ErrorCode)
		switch {
		case err == nil:
			slog.Info("events topic created", slog.String("topic", tr.Topic), slog.Int("partitions", int(spec.Partitions)))
		case errors.Is(err, kerr.TopicAlreadyExists):
			slog.Debug("events topic already present", slog.String("topic", tr.Topic))
		default:
			msg := ""
			if tr.ErrorMessage != nil {
				msg = *tr.ErrorMessage
			}
			return fmt.Errorf("op=redpanda.ensureTopic: %s: %w %s", tr.Topic, err, msg)
		}
	}
	return nil
}
