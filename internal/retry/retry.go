// Package retry delivers one outbound message over a connection that may not
// be open yet, reconnecting a bounded number of times.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = time.Second
)

// ErrRetriesExhausted is returned when the connection never became usable.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Transport is the part of the connection supervisor the policy drives.
type Transport interface {
	Ready() bool
	Connect()
	Send(text string) error
}

// Policy is a fixed-delay reconnect-and-resend strategy. The zero value is
// not usable; build one with New.
type Policy struct {
	maxAttempts int
	delay       time.Duration
	logger      *zap.Logger
	onReconnect func(attempt int)
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxAttempts sets how many readiness checks are made before giving up.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithDelay sets the grace period after each reconnect.
func WithDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithLogger sets the logger for attempt diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Policy) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithReconnectHook registers fn, called with the 1-based attempt number
// every time the policy issues a reconnect.
func WithReconnectHook(fn func(attempt int)) Option {
	return func(p *Policy) { p.onReconnect = fn }
}

// New returns a policy with 3 attempts spaced one second apart unless
// overridden.
func New(opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: DefaultMaxAttempts,
		delay:       DefaultDelay,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "retry"))
	return p
}

// MaxAttempts returns the configured attempt bound.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// Deliver sends text once t is usable. Each attempt re-checks readiness; a
// reconnect is only a request, so success is never assumed. After
// MaxAttempts failed checks it returns ErrRetriesExhausted. A send error
// on a ready transport is returned as is.
func (p *Policy) Deliver(ctx context.Context, t Transport, text string) error {
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if t.Ready() {
			if err := t.Send(text); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			return nil
		}

		p.logger.Warn("connection not ready, reconnecting",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", p.maxAttempts))
		if p.onReconnect != nil {
			p.onReconnect(attempt + 1)
		}
		t.Connect()

		if err := p.wait(ctx); err != nil {
			return err
		}
	}

	p.logger.Error("giving up on backend connection", zap.Int("attempts", p.maxAttempts))
	return fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, p.maxAttempts)
}

func (p *Policy) wait(ctx context.Context) error {
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
