package params

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounce is how long a parameter must stay unchanged before it is
// pushed to the backend.
const DefaultDebounce = 5 * time.Second

// Debouncer runs the latest function scheduled for a key once the key has
// been quiet for the delay.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewDebouncer creates a Debouncer.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, timers: make(map[string]*time.Timer)}
}

// Trigger (re)schedules fn for key, cancelling any pending call for it.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.timers[key] == t
		if current {
			delete(d.timers, key)
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
	d.timers[key] = t
}

// Pending returns how many keys are waiting to fire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop cancels every pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

// Pusher debounces parameter changes and sends them with a Client.
type Pusher struct {
	client   *Client
	debounce *Debouncer
	logger   *zap.Logger
}

// NewPusher creates a Pusher that waits delay after the last change.
func NewPusher(client *Client, delay time.Duration, logger *zap.Logger) *Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pusher{client: client, debounce: NewDebouncer(delay), logger: logger}
}

// Set schedules value for p. Only the last value set within the debounce
// window is sent.
func (p *Pusher) Set(param Param, value float64) {
	value = param.Clamp(value)
	p.debounce.Trigger(param.Name, func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		if err := p.client.SetSamplingParam(ctx, param.Name, value); err != nil {
			p.logger.Error("Failed to set "+param.Label+" parameter", zap.Error(err))
		}
	})
}

// Stop drops changes that have not been sent yet.
func (p *Pusher) Stop() {
	p.debounce.Stop()
}
