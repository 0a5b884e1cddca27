package simplepublish

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) ContentCreated(ctx context.Context, content *Content) error   { return nil }
func (n *NoopEventSink) ContentUpdated(ctx context.Context, content *Content) error   { return nil }
func (n *NoopEventSink) ContentPublished(ctx context.Context, content *Content) error { return nil }
func (n *NoopEventSink) ContentUnpublished(ctx context.Context, content *Content) error {
	return nil
}
func (n *NoopEventSink) ContentDeleted(ctx context.Context, contentID uuid.UUID, creatorID string) error {
	return nil
}
func (n *NoopEventSink) MediaStatusChanged(ctx context.Context, item *MediaItem, from MediaStatus) error {
	return nil
}
func (n *NoopEventSink) OrganizationDeleted(ctx context.Context, orgID uuid.UUID, detached []uuid.UUID) error {
	return nil
}

// LoggingEventSink writes every lifecycle event to a structured logger.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink backed by logger, or
// slog.Default() when nil.
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) ContentCreated(ctx context.Context, c *Content) error {
	l.logger.InfoContext(ctx, "Content created", "content_id", c.ID, "creator_id", c.CreatorID, "slug", c.Slug)
	return nil
}

func (l *LoggingEventSink) ContentUpdated(ctx context.Context, c *Content) error {
	l.logger.InfoContext(ctx, "Content updated", "content_id", c.ID, "version", c.Version)
	return nil
}

func (l *LoggingEventSink) ContentPublished(ctx context.Context, c *Content) error {
	l.logger.InfoContext(ctx, "Content published", "content_id", c.ID, "published_at", c.PublishedAt)
	return nil
}

func (l *LoggingEventSink) ContentUnpublished(ctx context.Context, c *Content) error {
	l.logger.InfoContext(ctx, "Content unpublished", "content_id", c.ID)
	return nil
}

func (l *LoggingEventSink) ContentDeleted(ctx context.Context, contentID uuid.UUID, creatorID string) error {
	l.logger.InfoContext(ctx, "Content deleted", "content_id", contentID, "creator_id", creatorID)
	return nil
}

func (l *LoggingEventSink) MediaStatusChanged(ctx context.Context, item *MediaItem, from MediaStatus) error {
	l.logger.InfoContext(ctx, "Media status changed", "media_item_id", item.ID, "from", from, "to", item.Status)
	return nil
}

func (l *LoggingEventSink) OrganizationDeleted(ctx context.Context, orgID uuid.UUID, detached []uuid.UUID) error {
	l.logger.InfoContext(ctx, "Organization deleted", "organization_id", orgID, "detached_content", len(detached))
	return nil
}

// AllowAllAuthorizer grants every role. It is the default: organization
// authorization is then the dispatch layer's responsibility.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) HasRole(ctx context.Context, orgID uuid.UUID, actorID string, role Role) (bool, error) {
	return true, nil
}
