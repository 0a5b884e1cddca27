// Package kafka publishes lifecycle events to a Kafka topic.
//
// Every event is one JSON message keyed by the id of the entity it concerns,
// so events for the same content or media item land on the same partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Event types carried in the envelope.
const (
	EventContentCreated      = "content.created"
	EventContentUpdated      = "content.updated"
	EventContentPublished    = "content.published"
	EventContentUnpublished  = "content.unpublished"
	EventContentDeleted      = "content.deleted"
	EventMediaStatusChanged  = "media.status_changed"
	EventOrganizationDeleted = "organization.deleted"
)

// Envelope is the JSON value of every message.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// ContentDeletedData is the payload of content.deleted.
type ContentDeletedData struct {
	ContentID uuid.UUID `json:"content_id"`
	CreatorID string    `json:"creator_id"`
}

// MediaStatusChangedData is the payload of media.status_changed.
type MediaStatusChangedData struct {
	From      simplepublish.MediaStatus `json:"from"`
	MediaItem *simplepublish.MediaItem  `json:"media_item"`
}

// OrganizationDeletedData is the payload of organization.deleted.
type OrganizationDeletedData struct {
	OrganizationID  uuid.UUID   `json:"organization_id"`
	DetachedContent []uuid.UUID `json:"detached_content"`
}

// MessageWriter is the subset of *kafka.Writer used by the sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures the Kafka writer.
type Config struct {
	Brokers      string // comma separated
	Topic        string
	BatchTimeout time.Duration
}

// Sink implements simplepublish.EventSink over a Kafka writer.
type Sink struct {
	w   MessageWriter
	now func() time.Time
}

// New creates a sink writing to cfg.Topic.
func New(cfg Config) (*Sink, error) {
	brokers := splitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewWithWriter(w), nil
}

// NewWithWriter creates a sink over an existing writer.
func NewWithWriter(w MessageWriter) *Sink {
	return &Sink{w: w, now: time.Now}
}

// Close flushes and closes the writer.
func (s *Sink) Close() error {
	return s.w.Close()
}

func (s *Sink) publish(ctx context.Context, eventType string, key uuid.UUID, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	value, err := json.Marshal(Envelope{Type: eventType, OccurredAt: s.now().UTC(), Data: raw})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}
	msg := kafka.Message{
		Key:     []byte(key.String()),
		Value:   value,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(eventType)}},
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (s *Sink) ContentCreated(ctx context.Context, c *simplepublish.Content) error {
	return s.publish(ctx, EventContentCreated, c.ID, c)
}

func (s *Sink) ContentUpdated(ctx context.Context, c *simplepublish.Content) error {
	return s.publish(ctx, EventContentUpdated, c.ID, c)
}

func (s *Sink) ContentPublished(ctx context.Context, c *simplepublish.Content) error {
	return s.publish(ctx, EventContentPublished, c.ID, c)
}

func (s *Sink) ContentUnpublished(ctx context.Context, c *simplepublish.Content) error {
	return s.publish(ctx, EventContentUnpublished, c.ID, c)
}

func (s *Sink) ContentDeleted(ctx context.Context, contentID uuid.UUID, creatorID string) error {
	return s.publish(ctx, EventContentDeleted, contentID, ContentDeletedData{ContentID: contentID, CreatorID: creatorID})
}

func (s *Sink) MediaStatusChanged(ctx context.Context, item *simplepublish.MediaItem, from simplepublish.MediaStatus) error {
	return s.publish(ctx, EventMediaStatusChanged, item.ID, MediaStatusChangedData{From: from, MediaItem: item})
}

func (s *Sink) OrganizationDeleted(ctx context.Context, orgID uuid.UUID, detached []uuid.UUID) error {
	if detached == nil {
		detached = []uuid.UUID{}
	}
	return s.publish(ctx, EventOrganizationDeleted, orgID, OrganizationDeletedData{OrganizationID: orgID, DetachedContent: detached})
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
