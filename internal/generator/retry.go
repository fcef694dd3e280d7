package generator

import (
	"context"
	"math"
	"time"

	"uav-testgen/internal/logging"
)

// Retrying retries failed requests with exponential backoff. When every attempt fails it
// logs the exhaustion and returns an empty reply with a nil error; callers treat "" as a
// failed attempt.
type Retrying struct {
	Next          Generator
	MaxRetries    int
	BackoffFactor float64
	Sleep         func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps next with maxRetries attempts and factor^attempt second waits.
func NewRetrying(next Generator, maxRetries int, factor float64) *Retrying {
	return &Retrying{Next: next, MaxRetries: maxRetries, BackoffFactor: factor}
}

func (r *Retrying) Generate(ctx context.Context, req Request) (string, error) {
	log := logging.FromContext(ctx)
	attempts := r.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; i <= attempts; i++ {
		reply, err := r.Next.Generate(ctx, req)
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Error("generator request failed", "attempt", i, "max_retries", attempts, "err", err)
		if i == attempts {
			break
		}
		wait := time.Duration(math.Pow(r.BackoffFactor, float64(i)) * float64(time.Second))
		log.Warn("retrying generator request", "wait", wait, "attempt", i, "max_retries", attempts)
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	log.Error("generator retries exhausted, returning empty reply", "max_retries", attempts)
	return "", nil
}

func (r *Retrying) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
