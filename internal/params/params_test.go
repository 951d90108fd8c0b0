package params

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-playground/llm-playground/internal/testutil"
)

func TestLookup(t *testing.T) {
	p, ok := Lookup("top_k")
	require.True(t, ok)
	assert.Equal(t, "Top K", p.Label)

	p, ok = Lookup("maximum output tokens")
	require.True(t, ok)
	assert.Equal(t, "max_new_tokens", p.Name)

	_, ok = Lookup("frequency_penalty")
	assert.False(t, ok)
}

func TestClamp(t *testing.T) {
	temp, _ := Lookup("temperature")
	topK, _ := Lookup("top_k")
	maxTokens, _ := Lookup("max_new_tokens")

	tests := []struct {
		name string
		p    Param
		in   float64
		want float64
	}{
		{name: "below range", p: temp, in: 0, want: 0.1},
		{name: "above range", p: temp, in: 3, want: 1},
		{name: "snapped to step", p: temp, in: 0.55, want: 0.6},
		{name: "already on grid", p: temp, in: 0.7, want: 0.7},
		{name: "integer step", p: topK, in: 42.4, want: 42},
		{name: "integer max", p: maxTokens, in: 4096, want: 2048},
		{name: "integer min", p: maxTokens, in: 1, want: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.p.Clamp(tt.in), 1e-9)
		})
	}
}

func TestNudgeAndFormat(t *testing.T) {
	temp, _ := Lookup("temperature")
	topK, _ := Lookup("top_k")

	assert.InDelta(t, 0.9, temp.Nudge(1.0, -1), 1e-9)
	assert.InDelta(t, 1.0, temp.Nudge(1.0, 1), 1e-9)
	assert.Equal(t, "0.9", temp.Format(0.9))
	assert.Equal(t, "51", topK.Format(topK.Nudge(50, 1)))

	v, err := topK.Parse(" 250 ")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)
	_, err = topK.Parse("lots")
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Len(t, d, 4)
	assert.Equal(t, 512.0, d["max_new_tokens"])
	assert.Equal(t, 1.0, d["temperature"])
}

func TestSuggest(t *testing.T) {
	got := Suggest("tmp")
	require.NotEmpty(t, got)
	assert.Equal(t, "temperature", got[0])
	assert.Empty(t, Suggest("zzz"))
}

func TestClientPostsSettings(t *testing.T) {
	backend := testutil.NewBackend(t, nil)
	c := NewClient(backend.Server.URL)

	require.NoError(t, c.SetSamplingParam(context.Background(), "top_k", 40))
	require.NoError(t, c.SetStreaming(context.Background(), false))

	calls := backend.ParamCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/set-sampling-param", calls[0].Path)
	assert.Equal(t, map[string]any{"top_k": 40.0}, calls[0].Body)
	assert.Equal(t, "/set-streaming", calls[1].Path)
	assert.Equal(t, map[string]any{"stream": false}, calls[1].Body)
}

func TestClientReportsHTTPFailure(t *testing.T) {
	backend := testutil.NewBackend(t, nil)
	backend.SetParamStatus(http.StatusInternalServerError)
	c := NewClient(backend.Server.URL + "/")

	err := c.SetSamplingParam(context.Background(), "temperature", 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestDebouncerRunsLastCallOnly(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var last, runs atomic.Int32

	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Trigger("k", func() {
			last.Store(n)
			runs.Add(1)
		})
	}
	assert.Equal(t, 1, d.Pending())

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, int32(5), last.Load())
	assert.Zero(t, d.Pending())
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var runs atomic.Int32
	d.Trigger("a", func() { runs.Add(1) })
	d.Trigger("b", func() { runs.Add(1) })

	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var runs atomic.Int32
	d.Trigger("a", func() { runs.Add(1) })
	d.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runs.Load())
}

func TestPusherSendsClampedLatestValue(t *testing.T) {
	backend := testutil.NewBackend(t, nil)
	p := NewPusher(NewClient(backend.Server.URL), 20*time.Millisecond, nil)
	defer p.Stop()

	temp, _ := Lookup("temperature")
	p.Set(temp, 0.3)
	p.Set(temp, 0.44)

	require.Eventually(t, func() bool { return len(backend.ParamCalls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, map[string]any{"temperature": 0.4}, backend.ParamCalls()[0].Body)
}
