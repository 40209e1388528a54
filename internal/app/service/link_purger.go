package service

import (
	"context"
	"time"

	"github.com/sifan077/PowerOTP/internal/app/repository"
	"go.uber.org/zap"
)

const defaultPurgeInterval = 10 * time.Minute

// PurgeRecorder counts removed links.
type PurgeRecorder interface {
	LinksPurged(n int64)
}

// LinkPurger periodically deletes links that expired more than retention ago.
// Reads during the retention window still report the link as expired rather
// than not found.
type LinkPurger struct {
	logger    *zap.Logger
	repo      repository.LinkRepository
	metrics   PurgeRecorder
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	stopChan  chan struct{}
}

// NewLinkPurger creates a new purger. A nil metrics recorder is allowed.
func NewLinkPurger(logger *zap.Logger, repo repository.LinkRepository, metrics PurgeRecorder, retention, interval time.Duration) *LinkPurger {
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	return &LinkPurger{
		logger:    logger,
		repo:      repo,
		metrics:   metrics,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the periodic purge.
func (p *LinkPurger) Start() {
	go p.run()
}

// Stop stops the periodic purge.
func (p *LinkPurger) Stop() {
	close(p.stopChan)
}

func (p *LinkPurger) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), p.interval)
			_, _ = p.PurgeOnce(ctx)
			cancel()
		case <-p.stopChan:
			p.logger.Info("link purger stopped")
			return
		}
	}
}

// PurgeOnce removes links whose expiry is older than the retention window.
func (p *LinkPurger) PurgeOnce(ctx context.Context) (int64, error) {
	before := p.now().Add(-p.retention)

	purged, err := p.repo.PurgeExpired(ctx, before)
	if err != nil {
		p.logger.Error("failed to purge expired links", zap.Error(err))
		return 0, err
	}

	if purged > 0 {
		if p.metrics != nil {
			p.metrics.LinksPurged(purged)
		}
		p.logger.Info("purged expired links",
			zap.Int64("count", purged),
			zap.Time("expired_before", before),
		)
	}
	return purged, nil
}
