package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/breatheroute/skyreport/internal/report"
)

// ErrNoArtifact is returned when there is nothing to send.
var ErrNoArtifact = errors.New("no artifact to send")

// Publisher publishes one message and returns its server ID once acknowledged.
type Publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) (string, error)
}

// DeliveryMessage asks a device-side subscriber to fetch and show an artifact.
type DeliveryMessage struct {
	RunID       string    `json:"run_id"`
	Artifact    string    `json:"artifact"`
	City        string    `json:"city"`
	Annotation  string    `json:"annotation"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PubSubConfig holds configuration for the Pub/Sub notifier.
type PubSubConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// PubSubNotifier sends artifacts to a device by publishing to a Pub/Sub topic.
type PubSubNotifier struct {
	client    *pubsub.Client
	publisher Publisher
	topic     string
	logger    zerolog.Logger
}

// NewPubSubNotifier connects to Pub/Sub and prepares a publisher for cfg.Topic.
func NewPubSubNotifier(ctx context.Context, cfg PubSubConfig) (*PubSubNotifier, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	publisher := client.Publisher(cfg.Topic)
	// A single message per run; do not wait for a batch to fill.
	publisher.PublishSettings.CountThreshold = 1

	n := NewNotifier(&topicPublisher{publisher: publisher}, cfg.Topic, cfg.Logger)
	n.client = client
	return n, nil
}

// NewNotifier creates a notifier on top of an existing publisher.
func NewNotifier(publisher Publisher, topic string, logger zerolog.Logger) *PubSubNotifier {
	return &PubSubNotifier{publisher: publisher, topic: topic, logger: logger}
}

// Notify publishes a delivery message for artifact and waits for the server ack.
func (n *PubSubNotifier) Notify(ctx context.Context, r *report.Report, artifact string) error {
	if artifact == "" {
		return ErrNoArtifact
	}

	msg := DeliveryMessage{
		RunID:       r.ID.String(),
		Artifact:    filepath.Base(artifact),
		City:        r.City(),
		Annotation:  r.Annotation,
		GeneratedAt: r.GeneratedAt,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode delivery message: %w", err)
	}

	id, err := n.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id": msg.RunID,
			"type":   "report_artifact",
		},
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", n.topic, err)
	}

	n.logger.Info().
		Str("message_id", id).
		Str("topic", n.topic).
		Str("artifact", msg.Artifact).
		Msg("delivery message published")
	return nil
}

// Close stops the publisher and closes the Pub/Sub client.
func (n *PubSubNotifier) Close() error {
	if tp, ok := n.publisher.(*topicPublisher); ok {
		tp.publisher.Stop()
	}
	if n.client == nil {
		return nil
	}
	return n.client.Close()
}

type topicPublisher struct {
	publisher *pubsub.Publisher
}

func (p *topicPublisher) Publish(ctx context.Context, msg *pubsub.Message) (string, error) {
	return p.publisher.Publish(ctx, msg).Get(ctx)
}
