package backoff

import (
	"context"
	"errors"
	"testing"
)

func TestConnect_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Connect(context.Background(), nil, "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestConnect_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Connect(ctx, nil, "test", func(ctx context.Context) error {
		return errors.New("down")
	})
	if err == nil {
		t.Fatal("expected error when context is cancelled")
	}
}
