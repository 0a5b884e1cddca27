package simplepublish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-publish/pkg/simplepublish/objectkey"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Core bundles the three lifecycle services over one transaction runner.
type Core struct {
	Organizations *OrganizationService
	Media         *MediaService
	Content       *ContentService
}

// deps is shared by every service of a Core.
type deps struct {
	tx     TxRunner
	events EventSink
	authz  Authorizer
	store  MediaStore
	people CreatorDirectory
	keys   objectkey.Generator
	logger *slog.Logger
	now    func() time.Time
}

// Option represents a functional option for configuring the core
type Option func(*deps)

// WithTxRunner sets the transaction runner. It is required.
func WithTxRunner(tx TxRunner) Option {
	return func(d *deps) {
		d.tx = tx
	}
}

// WithEventSink sets the event sink
func WithEventSink(sink EventSink) Option {
	return func(d *deps) {
		d.events = sink
	}
}

// WithAuthorizer sets the organization role checker
func WithAuthorizer(a Authorizer) Option {
	return func(d *deps) {
		d.authz = a
	}
}

// WithMediaStore enables presigned upload and playback URLs.
func WithMediaStore(store MediaStore) Option {
	return func(d *deps) {
		d.store = store
	}
}

// WithCreatorDirectory resolves creator summaries on content reads. Without
// one, summaries carry only the creator id.
func WithCreatorDirectory(dir CreatorDirectory) Option {
	return func(d *deps) {
		d.people = dir
	}
}

// WithKeyGenerator sets how storage keys are derived for new media items.
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(d *deps) {
		d.keys = g
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(d *deps) {
		d.logger = logger
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *deps) {
		d.now = now
	}
}

// New creates the services with the given options
func New(options ...Option) (*Core, error) {
	d := &deps{
		events: NewNoopEventSink(),
		authz:  AllowAllAuthorizer{},
		keys:   objectkey.NewGitLikeGenerator(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, option := range options {
		option(d)
	}
	if d.tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}

	orgs := &OrganizationService{deps: d}
	media := &MediaService{deps: d}
	content := &ContentService{deps: d}
	orgs.OnDelete(content.detachOrganization)

	return &Core{Organizations: orgs, Media: media, Content: content}, nil
}

func (d *deps) clock() time.Time {
	return d.now().UTC()
}

// fail maps err onto the error taxonomy. Errors that are already typed pass
// through; repository sentinels are translated; anything else is logged once
// and hidden behind ErrInternal.
func (d *deps) fail(ctx context.Context, op string, err error) error {
	var typed *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &typed):
		return typed
	case errors.Is(err, ErrRecordNotFound):
		return newError(op, ErrNotFound, "", nil)
	case errors.Is(err, ErrDuplicateKey):
		return newError(op, ErrConflict, "slug already in use", nil)
	case errors.Is(err, ErrStaleVersion):
		return newError(op, ErrVersionConflict, "record was modified concurrently", nil)
	case errors.Is(err, ErrValueTooLong):
		return newError(op, ErrValidation, "value too long", nil)
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	}
	d.logger.ErrorContext(ctx, "internal error", "op", op, "err", err)
	return newError(op, ErrInternal, "", nil)
}

// emit delivers a lifecycle event after commit. Sink failures are logged.
func (d *deps) emit(ctx context.Context, event string, fn func(EventSink) error) {
	if err := fn(d.events); err != nil {
		d.logger.WarnContext(ctx, "event sink failed", "event", event, "err", err)
	}
}

// requireRole asks the authorizer whether actorID holds role in orgID.
func (d *deps) requireRole(ctx context.Context, op string, org *Organization, actorID string, role Role) error {
	ok, err := d.authz.HasRole(ctx, org.ID, actorID, role)
	if err != nil {
		return fmt.Errorf("check %s role: %w", role, err)
	}
	if !ok {
		return newError(op, ErrForbidden,
			fmt.Sprintf("actor lacks %s role in organization", role),
			map[string]any{"organizationId": org.ID.String(), "role": string(role)})
	}
	return nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func sortOrder(order string) string {
	if order == "asc" {
		return "asc"
	}
	return "desc"
}
