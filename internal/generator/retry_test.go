package generator

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scripted struct {
	errs  []error
	calls int
}

func (s *scripted) Generate(_ context.Context, _ Request) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return "ok", nil
}

func TestRetryingBackoff(t *testing.T) {
	boom := errors.New("boom")
	inner := &scripted{errs: []error{boom, boom}}
	var waits []time.Duration
	r := NewRetrying(inner, 3, 2)
	r.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	reply, err := r.Generate(context.Background(), Request{Prompt: "p"})
	if err != nil || reply != "ok" {
		t.Fatalf("Generate = %q, %v", reply, err)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(waits) != len(want) || waits[0] != want[0] || waits[1] != want[1] {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
}

func TestRetryingExhaustedReturnsEmpty(t *testing.T) {
	boom := errors.New("boom")
	inner := &scripted{errs: []error{boom, boom, boom, boom}}
	r := NewRetrying(inner, 3, 2)
	r.Sleep = func(context.Context, time.Duration) error { return nil }
	reply, err := r.Generate(context.Background(), Request{})
	if err != nil || reply != "" {
		t.Fatalf("Generate = %q, %v; want empty reply and nil error", reply, err)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryingHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inner := Func(func(ctx context.Context, _ Request) (string, error) {
		cancel()
		return "", errors.New("transport closed")
	})
	r := NewRetrying(inner, 3, 2)
	if _, err := r.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
