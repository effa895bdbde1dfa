package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWithBackoffSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	cfg := Config{MaxRetries: 3, BaseDelay: time.Millisecond}

	err := WithBackoff(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBackoff returned error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithBackoffStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	cfg := Config{MaxRetries: 3, BaseDelay: time.Millisecond}

	err := WithBackoff(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return errors.New("status 404 not found")
	})
	if err == nil {
		t.Fatal("expected error for non-retryable failure")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestWithBackoffExhaustsRetries(t *testing.T) {
	attempts := 0
	cfg := Config{MaxRetries: 2, BaseDelay: time.Millisecond}

	err := WithBackoff(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("status 503 unavailable")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithBackoffHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{MaxRetries: 5, BaseDelay: time.Second}
	err := WithBackoff(ctx, cfg, func(ctx context.Context) error {
		return errors.New("timeout")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", errors.New("request timeout"), true},
		{"rate limit", errors.New("status 429 too many requests"), true},
		{"server error", errors.New("status 500 internal"), true},
		{"client error", errors.New("status 400 bad request"), false},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestHTTPStatusRetryable(t *testing.T) {
	if !HTTPStatusRetryable(503) {
		t.Error("expected 503 to be retryable")
	}
	if !HTTPStatusRetryable(429) {
		t.Error("expected 429 to be retryable")
	}
	if HTTPStatusRetryable(404) {
		t.Error("expected 404 to not be retryable")
	}
}
