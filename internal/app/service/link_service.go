package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sifan077/PowerOTP/config"
	"github.com/sifan077/PowerOTP/internal/app/model"
	"github.com/sifan077/PowerOTP/internal/app/repository"
	"go.uber.org/zap"
)

const createRetries = 5

// LinkService creates share links.
type LinkService interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*model.ShareLink, error)
}

// LinkEventPublisher announces created links to other instances.
type LinkEventPublisher interface {
	PublishLinkCreated(ctx context.Context, link *model.ShareLink) error
}

// CreationRecorder counts created links.
type CreationRecorder interface {
	LinkCreated()
}

// LinkDeps groups dependencies required by the link service.
type LinkDeps struct {
	Logger    *zap.Logger
	Repo      repository.LinkRepository
	IDs       *IDGenerator
	Publisher LinkEventPublisher
	Metrics   CreationRecorder
	Share     config.ShareConfig
	Now       func() time.Time
}

type linkService struct {
	logger    *zap.Logger
	repo      repository.LinkRepository
	ids       *IDGenerator
	publisher LinkEventPublisher
	metrics   CreationRecorder
	cfg       config.ShareConfig
	now       func() time.Time
}

// NewLinkService returns a service implementation backed by the given repository.
func NewLinkService(deps LinkDeps) LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ids := deps.IDs
	if ids == nil {
		ids = NewIDGenerator(deps.Share.IDLength, deps.Share.ExpectedLinks, deps.Share.BloomFalsePositive)
	}
	return &linkService{
		logger:    logger,
		repo:      deps.Repo,
		ids:       ids,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		cfg:       deps.Share,
		now:       now,
	}
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	Codes []string
	// Period defaults to the configured period when zero.
	Period int64
	// StartTime is the epoch second of Codes[0]'s window.
	StartTime int64
	// ExpiresIn is one of the config.ExpiryPresets keys; anything else uses the default.
	ExpiresIn string
	// BurnAfterReading defaults to true when nil.
	BurnAfterReading *bool
}

func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.ShareLink, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	period := input.Period
	if period == 0 {
		period = s.cfg.DefaultPeriod
	}

	burn := true
	if input.BurnAfterReading != nil {
		burn = *input.BurnAfterReading
	}

	expiresAt := s.now().Add(s.expiryFor(input.ExpiresIn)).UTC()

	for attempt := 0; attempt < createRetries; attempt++ {
		id, err := s.ids.Generate()
		if err != nil {
			return nil, fmt.Errorf("create link: %w", err)
		}

		link := &model.ShareLink{
			ID:               id,
			Codes:            input.Codes,
			Period:           period,
			OriginTimestamp:  input.StartTime,
			BurnAfterReading: burn,
			ExpiresAt:        expiresAt,
		}

		err = s.repo.Create(ctx, link)
		if errors.Is(err, repository.ErrLinkExists) {
			s.ids.Remember(id)
			s.logger.Debug("link id collision, retrying", zap.String("id", id), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create link: %w", err)
		}

		s.ids.Remember(id)
		if s.metrics != nil {
			s.metrics.LinkCreated()
		}
		s.announce(ctx, link)
		return link, nil
	}

	return nil, fmt.Errorf("create link: %w", ErrIDSpaceExhausted)
}

func (s *linkService) validate(input CreateLinkInput) error {
	if len(input.Codes) == 0 {
		return fmt.Errorf("%w: codes must not be empty", ErrInvalidInput)
	}
	if s.cfg.MaxCodes > 0 && len(input.Codes) > s.cfg.MaxCodes {
		return fmt.Errorf("%w: at most %d codes are accepted", ErrInvalidInput, s.cfg.MaxCodes)
	}
	for i, code := range input.Codes {
		if code == "" {
			return fmt.Errorf("%w: code %d is empty", ErrInvalidInput, i)
		}
	}
	if input.Period < 0 {
		return fmt.Errorf("%w: period must be positive", ErrInvalidInput)
	}
	if input.Period == 0 && s.cfg.DefaultPeriod <= 0 {
		return fmt.Errorf("%w: period is required", ErrInvalidInput)
	}
	return nil
}

func (s *linkService) expiryFor(preset string) time.Duration {
	if d, ok := config.ExpiryPresets[preset]; ok {
		return d
	}
	if d, ok := config.ExpiryPresets[s.cfg.DefaultExpiresIn]; ok {
		return d
	}
	return config.ExpiryPresets[config.DefaultExpiryPreset]
}

// announce is best effort: the link is already durable.
func (s *linkService) announce(ctx context.Context, link *model.ShareLink) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLinkCreated(ctx, link); err != nil {
		s.logger.Warn("failed to publish link created event", zap.String("id", link.ID), zap.Error(err))
	}
}
