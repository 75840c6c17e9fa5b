// Package retry runs an operation with exponential backoff until it
// succeeds, the attempt budget runs out, or the error classifies as
// not worth retrying.
package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/c360/facebridge/errors"
)

var (
	// Shared jitter source; rand.Rand is not goroutine safe.
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Config tunes the backoff schedule.
type Config struct {
	// MaxAttempts is the total attempt budget, including the first.
	MaxAttempts int

	// InitialDelay is the wait after the first failure. Each further
	// failure multiplies it by Multiplier, capped at MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// AddJitter spreads the waits by up to 25% so parallel retriers
	// do not reconnect in lockstep.
	AddJitter bool
}

// Quick suits startup probes: many fast attempts, short cap.
func Quick() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   1.5,
		AddJitter:    true,
	}
}

// Persistent suits long-lived connections such as a backend's event
// stream: a large budget with a wide cap.
func Persistent() Config {
	return Config{
		MaxAttempts:  30,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// DefaultConfig is the middle ground: three attempts over a few seconds.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// normalized fills zero fields with defaults and rejects nonsense.
func (cfg Config) normalized() (Config, error) {
	if cfg.InitialDelay < 0 || cfg.MaxDelay < 0 || cfg.Multiplier < 0 {
		return cfg, stderrors.New("retry: negative config field")
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Multiplier > 1000 {
		cfg.Multiplier = 1000
	}

	if cfg.MaxDelay < cfg.InitialDelay {
		return cfg, stderrors.New("retry: MaxDelay below InitialDelay")
	}

	return cfg, nil
}

// Do executes fn under the backoff schedule. Errors classified as
// fatal or invalid abort immediately; everything else is treated as
// transient and retried. Context cancellation aborts between attempts
// and during backoff waits.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg, err := cfg.normalized()
	if err != nil {
		return err
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.IsFatal(err) || errors.IsInvalid(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt, ctx.Err())
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if err := sleep(ctx, withJitter(delay, cfg.AddJitter)); err != nil {
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, err)
		}
		delay = nextDelay(delay, cfg)
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

func withJitter(delay time.Duration, add bool) time.Duration {
	if !add || delay < 4 {
		return delay
	}
	randMu.Lock()
	jitter := time.Duration(randSource.Int63n(int64(delay / 4)))
	randMu.Unlock()
	return delay + jitter
}

func nextDelay(delay time.Duration, cfg Config) time.Duration {
	next := float64(delay) * cfg.Multiplier
	if next > float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	return time.Duration(next)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
