package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/events"
	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const DefaultMaxCreateAttempts = 5

var tracer = otel.Tracer("links")

type Service struct {
	store       Store
	generator   Generator
	publisher   ClickPublisher
	maxAttempts int
	now         func() time.Time
}

type ServiceOption func(*Service)

// WithClickPublisher exports every tracked click. Publishing failures are
// logged and never fail the redirect.
func WithClickPublisher(p ClickPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

func WithMaxCreateAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewService(store Store, generator Generator, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		generator:   generator,
		maxAttempts: DefaultMaxCreateAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Store() Store {
	return s.store
}

func (s *Service) CreateLink(ctx context.Context, longURL, owner string) (*ShortLink, error) {
	ctx, span := tracer.Start(ctx, "links.create")
	defer span.End()

	normalized, err := ValidateLongURL(longURL)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generator.Generate(normalized)
		if err != nil {
			return nil, err
		}

		link := &ShortLink{
			ShortCode:  code,
			LongURL:    normalized,
			Owner:      owner,
			ClickCount: 0,
			CreatedAt:  s.now().UTC(),
		}

		err = s.store.Create(ctx, link)
		if err == nil {
			span.SetAttributes(
				attribute.String("link.short_code", code),
				attribute.Int("link.create_attempts", attempt),
			)
			return link, nil
		}
		if !errors.Is(err, ErrConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store create failed")
			return nil, err
		}

		logger.Debug("short code collision, regenerating",
			zap.String("short_code", code),
			zap.Int("attempt", attempt),
		)
	}

	span.SetStatus(codes.Error, "short code retries exhausted")
	return nil, fmt.Errorf("%w after %d attempts", ErrUniquenessExhausted, s.maxAttempts)
}

func (s *Service) GetLink(ctx context.Context, shortCode string) (*ShortLink, error) {
	shortCode = strings.TrimSpace(shortCode)
	if shortCode == "" {
		return nil, ErrNotFound
	}
	return s.store.Get(ctx, shortCode)
}

func (s *Service) ListLinks(ctx context.Context, owner string) ([]ShortLink, error) {
	return s.store.ListByOwner(ctx, owner)
}

// TrackClick resolves shortCode and counts one visit with meta.
// It returns the link as it was before the increment.
func (s *Service) TrackClick(ctx context.Context, shortCode string, meta ClickMetadata) (*ShortLink, error) {
	ctx, span := tracer.Start(ctx, "links.track_click")
	defer span.End()
	span.SetAttributes(attribute.String("link.short_code", shortCode))

	link, err := s.GetLink(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	meta = meta.Normalize()
	ordinal, err := s.store.IncrementClick(ctx, link.ShortCode, meta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "increment click failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int64("link.click_ordinal", ordinal))

	if s.publisher != nil {
		event := events.NewClickRecorded(link.ShortCode, ordinal, meta.IPAddress, meta.UserAgent, meta.Country, s.now())
		if err := s.publisher.PublishClick(ctx, event); err != nil {
			logger.Warn("failed to publish click event",
				zap.Error(err),
				zap.String("short_code", link.ShortCode),
				zap.Int64("ordinal", ordinal),
			)
		}
	}

	return link, nil
}

func (s *Service) GetClickEvent(ctx context.Context, shortCode string, ordinal int64) (*ClickEvent, error) {
	return s.store.GetClickEvent(ctx, shortCode, ordinal)
}

// OpenFeed subscribes to shortCode and returns a feed ready to Run.
func (s *Service) OpenFeed(ctx context.Context, shortCode string) (*Feed, error) {
	if _, err := s.GetLink(ctx, shortCode); err != nil {
		return nil, err
	}

	handle, err := s.store.Watch(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	return NewFeed(shortCode, s.store, handle), nil
}
