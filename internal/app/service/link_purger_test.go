package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sifan077/PowerOTP/internal/app/repository"
	"go.uber.org/zap"
)

type purgeCounter struct{ total int64 }

func (p *purgeCounter) LinksPurged(n int64) { p.total += n }

func TestLinkPurger_PurgeOnce(t *testing.T) {
	now := unix(1_000_000)
	repo := repository.NewMemoryLinkRepository()
	seedLink(t, repo, "old", 1, false, now.Add(-48*time.Hour))
	seedLink(t, repo, "recent", 1, false, now.Add(-time.Hour))
	seedLink(t, repo, "live", 1, false, now.Add(time.Hour))

	counter := &purgeCounter{}
	p := NewLinkPurger(zap.NewNop(), repo, counter, 24*time.Hour, time.Minute)
	p.now = func() time.Time { return now }

	purged, err := p.PurgeOnce(context.Background())
	if err != nil {
		t.Fatalf("PurgeOnce returned error: %v", err)
	}
	if purged != 1 || counter.total != 1 {
		t.Fatalf("expected one purged link, got %d (recorded %d)", purged, counter.total)
	}
	if repo.Len() != 2 {
		t.Fatalf("expected 2 links to remain, got %d", repo.Len())
	}

	// A link inside the retention window still reads as expired.
	svc := NewRedemptionService(repo, 0)
	if _, err := svc.Redeem(context.Background(), "recent", now); !errors.Is(err, ErrLinkExpired) {
		t.Fatalf("expected ErrLinkExpired, got %v", err)
	}
}

func TestLinkPurger_StoreError(t *testing.T) {
	boom := errors.New("timeout")
	repo := &mockLinkRepository{
		purgeFn: func(ctx context.Context, before time.Time) (int64, error) { return 0, boom },
	}
	p := NewLinkPurger(zap.NewNop(), repo, nil, time.Hour, 0)

	if _, err := p.PurgeOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if p.interval != defaultPurgeInterval {
		t.Fatalf("expected default interval, got %v", p.interval)
	}
}

func TestLinkPurger_StartStop(t *testing.T) {
	p := NewLinkPurger(zap.NewNop(), repository.NewMemoryLinkRepository(), nil, time.Hour, time.Millisecond)
	p.Start()
	time.Sleep(5 * time.Millisecond)
	p.Stop()
}
