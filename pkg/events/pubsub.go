package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/toolcrib/toolcrib-backend/pkg/config"
	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// PubSubPublisher pushes dashboard events onto a Cloud Pub/Sub topic.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	projectID string
	cfg       config.PubSubConfig
}

// NewPubSubPublisher creates a Pub/Sub v2 client bound to the inventory topic.
func NewPubSubPublisher(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*PubSubPublisher, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.InventoryTopic) == "" {
		return nil, errors.New("inventory topic is required")
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	p := &PubSubPublisher{
		client:    psClient,
		projectID: gcp.ProjectID,
		cfg:       cfg,
	}
	p.publisher = psClient.Publisher(p.topicResourceName(cfg.InventoryTopic))

	if logg != nil {
		logg.Info(ctx, "pubsub publisher initialized")
	}

	return p, nil
}

// Publish serializes the event and sends it, waiting for the server ack.
func (p *PubSubPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.publisher == nil {
		return errors.New("pubsub publisher not initialized")
	}
	if strings.TrimSpace(event.Name) == "" {
		return errors.New("event name is required")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event %q: %w", event.Name, err)
	}

	if p.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PublishTimeout)
		defer cancel()
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event": event.Name},
	})
	if _, err := result.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("topic %q does not exist: %w", p.cfg.InventoryTopic, err)
		}
		return fmt.Errorf("publishing event %q: %w", event.Name, err)
	}
	return nil
}

// Close releases the Pub/Sub client resources.
func (p *PubSubPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *PubSubPublisher) topicResourceName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	proj := strings.TrimSpace(p.projectID)
	if proj == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", proj, n)
}
