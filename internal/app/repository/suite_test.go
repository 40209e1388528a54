package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sifan077/PowerOTP/internal/app/model"
)

// runLinkRepositorySuite exercises the LinkRepository contract against any backend.
func runLinkRepositorySuite(t *testing.T, newRepo func(t *testing.T) LinkRepository) {
	t.Helper()

	t.Run("create and increment", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		link := newTestLink("abc1234", false, time.Now().Add(time.Hour))

		if err := repo.Create(ctx, link); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}

		for want := int64(1); want <= 3; want++ {
			got, err := repo.IncrementAccess(ctx, link.ID)
			if err != nil {
				t.Fatalf("IncrementAccess returned error: %v", err)
			}
			if got.AccessCount != want {
				t.Fatalf("expected access count %d, got %d", want, got.AccessCount)
			}
			if len(got.Codes) != len(link.Codes) || got.Codes[0] != link.Codes[0] {
				t.Fatalf("codes not round-tripped: %v", got.Codes)
			}
			if got.Period != link.Period || got.OriginTimestamp != link.OriginTimestamp {
				t.Fatalf("window fields not round-tripped: %+v", got)
			}
			if got.BurnAfterReading != link.BurnAfterReading {
				t.Fatalf("burn flag not round-tripped")
			}
			if !got.ExpiresAt.Equal(link.ExpiresAt) {
				t.Fatalf("expiresAt mismatch: got %v want %v", got.ExpiresAt, link.ExpiresAt)
			}
		}
	})

	t.Run("burn flag false is persisted", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		link := newTestLink("noburn1", false, time.Now().Add(time.Hour))
		if err := repo.Create(ctx, link); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		got, err := repo.IncrementAccess(ctx, link.ID)
		if err != nil {
			t.Fatalf("IncrementAccess returned error: %v", err)
		}
		if got.BurnAfterReading {
			t.Fatal("expected burnAfterReading=false to survive storage defaults")
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		if err := repo.Create(ctx, newTestLink("dup0001", true, time.Now().Add(time.Hour))); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		err := repo.Create(ctx, newTestLink("dup0001", true, time.Now().Add(time.Hour)))
		if !errors.Is(err, ErrLinkExists) {
			t.Fatalf("expected ErrLinkExists, got %v", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.IncrementAccess(context.Background(), "missing")
		if !errors.Is(err, ErrLinkNotFound) {
			t.Fatalf("expected ErrLinkNotFound, got %v", err)
		}
	})

	t.Run("concurrent increments are distinct", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		link := newTestLink("race001", true, time.Now().Add(time.Hour))
		if err := repo.Create(ctx, link); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}

		const workers = 16
		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			counts []int64
			errs   []error
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := repo.IncrementAccess(ctx, link.ID)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				counts = append(counts, got.AccessCount)
			}()
		}
		wg.Wait()

		if len(errs) > 0 {
			t.Fatalf("IncrementAccess errors: %v", errs)
		}
		sort.Slice(counts, func(i, j int) bool { return counts[i] < counts[j] })
		for i, c := range counts {
			if c != int64(i+1) {
				t.Fatalf("expected counts 1..%d, got %v", workers, counts)
			}
		}
	})
}

func newTestLink(id string, burn bool, expiresAt time.Time) *model.ShareLink {
	codes := make([]string, 10)
	for i := range codes {
		codes[i] = fmt.Sprintf("%06d", i)
	}
	return &model.ShareLink{
		ID:               id,
		Codes:            codes,
		Period:           30,
		OriginTimestamp:  1000,
		BurnAfterReading: burn,
		ExpiresAt:        expiresAt.UTC().Truncate(time.Second),
	}
}
