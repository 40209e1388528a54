package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sifan077/PowerOTP/internal/app/repository"
)

// RedemptionService turns a link id and the current time into the codes a
// reader may see.
type RedemptionService interface {
	Redeem(ctx context.Context, id string, now time.Time) (*Redemption, error)
}

// Redemption is the payload of a successful read.
type Redemption struct {
	Codes              []string
	Period             int64
	FirstCodeTimestamp int64
	BurnAfterReading   bool
	ExpiresAt          time.Time
	// AccessCount is the post-increment counter; it is not part of the public payload.
	AccessCount int64
}

type redemptionService struct {
	repo    repository.LinkRepository
	horizon time.Duration
}

// NewRedemptionService returns a redemption engine over repo. A non-positive
// horizon falls back to DefaultFreshnessHorizon.
func NewRedemptionService(repo repository.LinkRepository, horizon time.Duration) RedemptionService {
	if horizon <= 0 {
		horizon = DefaultFreshnessHorizon
	}
	return &redemptionService{repo: repo, horizon: horizon}
}

// Redeem increments first and judges the post-increment record. The count
// that reaches exactly 1 is the one legitimate read of a burn-after-reading
// link. The increment is never retried here: a second increment would be
// counted as a second reader.
func (s *redemptionService) Redeem(ctx context.Context, id string, now time.Time) (*Redemption, error) {
	link, err := s.repo.IncrementAccess(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("increment access: %w", err)
	}

	// Expiry is terminal and takes precedence over burn state.
	if link.IsExpired(now) {
		return nil, ErrLinkExpired
	}

	if link.BurnAfterReading && link.AccessCount > 1 {
		return nil, ErrLinkBurned
	}

	window, err := SelectWindow(link.Codes, link.Period, link.OriginTimestamp, link.BurnAfterReading, now, s.horizon)
	if err != nil {
		return nil, err
	}

	return &Redemption{
		Codes:              window.Codes,
		Period:             link.Period,
		FirstCodeTimestamp: window.FirstCodeTimestamp,
		BurnAfterReading:   link.BurnAfterReading,
		ExpiresAt:          link.ExpiresAt,
		AccessCount:        link.AccessCount,
	}, nil
}
