package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0

	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}

	if calls != 3 {
		t.Errorf("fn ran %d times, want 3", calls)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	boom := errors.New("boom")

	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do() = %v, want the last error", err)
	}

	// Initial attempt plus MaxRetries
	if calls != 4 {
		t.Errorf("fn ran %d times, want 4", calls)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := Policy{
		MaxRetries:     10,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
	}

	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("always")
	})
	if err == nil {
		t.Fatal("Do() = nil, want the last error")
	}

	if calls != 1 {
		t.Errorf("fn ran %d times after cancel, want 1", calls)
	}
}
