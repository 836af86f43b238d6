// Package pubsub implements a Google Cloud Pub/Sub record publisher.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/karlseb/ttpharvest/internal/advisory"
	"github.com/karlseb/ttpharvest/internal/logging"
)

// Publisher forwards harvested records to a Pub/Sub topic.
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New connects to Pub/Sub and verifies the topic exists, so a misconfigured
// publisher fails at startup instead of mid-harvest. Authentication is
// handled via Google's Application Default Credentials.
func New(ctx context.Context, projectID, topicID string) (*Publisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		closeClient(client)
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !ok {
		closeClient(client)
		return nil, fmt.Errorf("pubsub topic %q does not exist", topicID)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Publish marshals the record to JSON and publishes it, blocking until the
// server acknowledges. Record volume is low enough that per-message
// confirmation beats batching.
func (p *Publisher) Publish(ctx context.Context, rec advisory.Record) error {
	if p == nil || p.topic == nil {
		return fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"advisory_date": rec.Date,
			"techniques":    strconv.Itoa(len(rec.Techniques)),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish record: %w", err)
	}
	return nil
}

// Close stops the topic's publish goroutines and closes the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.topic != nil {
		p.topic.Stop()
	}
	closeClient(p.client)
}

func closeClient(client *pubsub.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logging.L.Warn("failed to close pubsub client", zap.Error(err))
	}
}
