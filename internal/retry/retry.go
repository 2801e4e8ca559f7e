// Package retry runs unreliable remote calls under a bounded, fixed-delay
// retry policy.
//
// Two policies are used by polarsync. Lookup guards test case queries and is
// fatal: when it runs out of attempts the run cannot continue. Write guards
// result writes and is not: the write is dropped and the run goes on.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"polarsync/internal/backend"
	"polarsync/pkg/logging"
)

// ErrFatal is matched by errors.Is for exhaustion of a fatal policy.
var ErrFatal = errors.New("fatal backend error")

// Policy is a fixed-delay retry policy.
type Policy struct {
	// Name is used in logs and errors.
	Name string
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Delay is waited between attempts.
	Delay time.Duration
	// Retryable decides whether an error is worth another attempt. Nil
	// retries every error.
	Retryable func(error) bool
	// Fatal marks exhaustion as run-aborting.
	Fatal bool
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Lookup is the policy for test case queries: 5 attempts, 300ms apart,
// only transient faults are retried, exhaustion is fatal.
var Lookup = Policy{
	Name:        "lookup",
	MaxAttempts: 5,
	Delay:       300 * time.Millisecond,
	Retryable:   backend.IsFault,
	Fatal:       true,
}

// Write is the policy for result writes: 3 attempts, 500ms apart, every
// error is retried, exhaustion is not fatal.
var Write = Policy{
	Name:        "write",
	MaxAttempts: 3,
	Delay:       500 * time.Millisecond,
}

// ExhaustedError is returned when every attempt of a policy failed.
type ExhaustedError struct {
	Policy   string
	Attempts int
	Fatal    bool
	Err      error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Policy, e.Attempts, e.Err)
}

// Unwrap returns the last error.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrFatal) report exhaustion of a fatal policy.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrFatal && e.Fatal
}

// IsFatal reports whether err aborts the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// IsExhausted reports whether err is a policy exhaustion, fatal or not.
func IsExhausted(err error) bool {
	var e *ExhaustedError
	return errors.As(err, &e)
}

// WithSleep returns a copy of p that waits using sleep. Tests use it to
// skip the real delays.
func (p Policy) WithSleep(sleep func(ctx context.Context, d time.Duration) error) Policy {
	p.Sleep = sleep
	return p
}

// Do runs op until it succeeds, returns a non-retryable error, or the
// attempts are used up. attempt starts at 1.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}

		if attempt == attempts {
			break
		}
		logging.Debug("Retry", "%s attempt %d/%d failed: %v", p.Name, attempt, attempts, lastErr)
		if err := p.sleep(ctx); err != nil {
			return err
		}
	}

	return &ExhaustedError{Policy: p.Name, Attempts: attempts, Fatal: p.Fatal, Err: lastErr}
}

func (p Policy) sleep(ctx context.Context) error {
	if p.Delay <= 0 {
		return nil
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, p.Delay)
	}

	timer := time.NewTimer(p.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoSleep is a Sleep func that returns immediately.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
