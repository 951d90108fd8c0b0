package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu       sync.Mutex
	ready    bool
	openOn   int // connect call that makes the transport ready; 0 never
	connects int
	sent     []string
	sendErr  error
}

func (f *fakeTransport) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeTransport) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.openOn > 0 && f.connects >= f.openOn {
		f.ready = true
	}
}

func (f *fakeTransport) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestDeliverSendsImmediatelyWhenReady(t *testing.T) {
	tr := &fakeTransport{ready: true}
	p := New(WithDelay(time.Hour))

	require.NoError(t, p.Deliver(context.Background(), tr, "hi"))
	assert.Equal(t, []string{"hi"}, tr.sent)
	assert.Zero(t, tr.connects)
}

func TestDeliverReconnectsUntilReady(t *testing.T) {
	tr := &fakeTransport{openOn: 2}
	var hooked []int
	p := New(WithDelay(time.Millisecond), WithReconnectHook(func(n int) { hooked = append(hooked, n) }))

	require.NoError(t, p.Deliver(context.Background(), tr, "hello"))
	assert.Equal(t, 2, tr.connects)
	assert.Equal(t, []int{1, 2}, hooked)
	assert.Equal(t, []string{"hello"}, tr.sent)
}

func TestDeliverGivesUpAfterThreeAttempts(t *testing.T) {
	tr := &fakeTransport{}
	p := New(WithDelay(10 * time.Millisecond))

	start := time.Now()
	err := p.Deliver(context.Background(), tr, "hello")

	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, tr.connects, "no fourth reconnect")
	assert.Empty(t, tr.sent)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDeliverHonorsMaxAttempts(t *testing.T) {
	tr := &fakeTransport{}
	p := New(WithMaxAttempts(5), WithDelay(0))

	require.ErrorIs(t, p.Deliver(context.Background(), tr, "x"), ErrRetriesExhausted)
	assert.Equal(t, 5, tr.connects)
	assert.Equal(t, 5, p.MaxAttempts())
}

func TestDeliverReturnsSendError(t *testing.T) {
	boom := errors.New("broken pipe")
	tr := &fakeTransport{ready: true, sendErr: boom}

	err := New().Deliver(context.Background(), tr, "x")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
}

func TestDeliverStopsOnCancel(t *testing.T) {
	tr := &fakeTransport{}
	p := New(WithDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Deliver(ctx, tr, "x") }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Deliver did not return after cancel")
	}
	assert.Equal(t, 1, tr.connects)
}
