package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"assetup/pkg/platform/ledgerevents"
)

// Publisher delivers ledger events to a Kafka topic. Production is
// asynchronous; delivery failures are logged, not surfaced, matching the
// fire-and-forget contract of the event sink.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the given brokers. The returned publisher owns the client;
// call Close on shutdown.
func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

func (p *Publisher) Publish(ctx context.Context, event ledgerevents.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal ledger event", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		// Asset ID keys keep per-asset event ordering within a partition.
		Key:   []byte(event.AssetID.String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("failed to produce ledger event",
				"topic", p.topic,
				"action", event.Action,
				"error", err,
			)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
