package service

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	idAlphabet          = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	defaultIDLength     = 7
	maxGenerateAttempts = 8
)

var idBase = big.NewInt(int64(len(idAlphabet)))

// ErrIDSpaceExhausted is returned when every candidate was already issued.
var ErrIDSpaceExhausted = errors.New("could not find an unused link id")

// IDGenerator produces random base62 link ids and skips ids a bloom filter
// reports as already issued. A false positive only costs a redraw; the store's
// uniqueness check remains the source of truth.
type IDGenerator struct {
	length int

	mu     sync.Mutex
	issued *bloom.BloomFilter
}

// NewIDGenerator sizes the filter for expected ids at falsePositive rate.
func NewIDGenerator(length int, expected uint, falsePositive float64) *IDGenerator {
	if length <= 0 {
		length = defaultIDLength
	}
	if expected == 0 {
		expected = 100000
	}
	if falsePositive <= 0 || falsePositive >= 1 {
		falsePositive = 0.001
	}
	return &IDGenerator{
		length: length,
		issued: bloom.NewWithEstimates(expected, falsePositive),
	}
}

// Generate returns an id not yet known to be issued.
func (g *IDGenerator) Generate() (string, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		id, err := randomBase62(g.length)
		if err != nil {
			return "", err
		}
		if !g.MaybeIssued(id) {
			return id, nil
		}
	}
	return "", ErrIDSpaceExhausted
}

// Remember records id as issued, locally or by another instance.
func (g *IDGenerator) Remember(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued.AddString(id)
}

// MaybeIssued reports whether id may have been issued already.
func (g *IDGenerator) MaybeIssued(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issued.TestString(id)
}

func randomBase62(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, idBase)
		if err != nil {
			return "", err
		}
		b.WriteByte(idAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
