package jitter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExponentialBackoffBounds(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{name: "first attempt", attempt: 0, min: 100 * time.Millisecond, max: 150 * time.Millisecond},
		{name: "doubles", attempt: 2, min: 400 * time.Millisecond, max: 600 * time.Millisecond},
		{name: "capped", attempt: 10, min: time.Second, max: 1500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				got := ExponentialBackoff(100*time.Millisecond, time.Second, tt.attempt, DefaultJitter)
				if got < tt.min || got > tt.max {
					t.Fatalf("backoff %v outside [%v, %v]", got, tt.min, tt.max)
				}
			}
		})
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSleepElapses(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
