package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sifan077/PowerOTP/internal/app/model"
)

// Compile-time interface check
var _ LinkRepository = (*MemoryLinkRepository)(nil)

// MemoryLinkRepository keeps links in process memory. One mutex covers the
// whole increment-and-copy, which gives the same per-id ordering as the
// database backends.
type MemoryLinkRepository struct {
	mu    sync.Mutex
	links map[string]*model.ShareLink
}

// NewMemoryLinkRepository returns an empty in-memory repository.
func NewMemoryLinkRepository() *MemoryLinkRepository {
	return &MemoryLinkRepository{links: make(map[string]*model.ShareLink)}
}

func (m *MemoryLinkRepository) Create(_ context.Context, link *model.ShareLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[link.ID]; ok {
		return ErrLinkExists
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	link.AccessCount = 0

	stored := *link
	stored.Codes = append([]string(nil), link.Codes...)
	m.links[link.ID] = &stored
	return nil
}

func (m *MemoryLinkRepository) IncrementAccess(_ context.Context, id string) (*model.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[id]
	if !ok {
		return nil, ErrLinkNotFound
	}
	link.AccessCount++

	// Codes are never mutated after Create, so sharing the slice is safe.
	out := *link
	return &out, nil
}

func (m *MemoryLinkRepository) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for id, link := range m.links {
		if link.ExpiresAt.Before(before) {
			delete(m.links, id)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of stored links.
func (m *MemoryLinkRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}
