// Package events publishes run-completion records to Kafka for downstream
// consumers. Publishing is best-effort and never affects run outcome.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"trialsearch/internal/trial/engine"
)

type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects a producer to the given brokers. Returns nil when
// no brokers are configured (publishing disabled).
func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// PublishRunCompleted emits one record per finished run, keyed by run ID.
func (p *Publisher) PublishRunCompleted(ctx context.Context, stats *engine.RunStats) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(stats.RunID.String()),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	p.logger.InfoContext(ctx, "run event published", "run_id", stats.RunID, "topic", p.topic)
	return nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Close()
}
