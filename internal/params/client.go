package params

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/llm-playground/llm-playground/internal/metrics"
)

const (
	samplingPath  = "/set-sampling-param"
	streamingPath = "/set-streaming"

	defaultTimeout = 10 * time.Second
)

// Client posts settings to the backend.
type Client struct {
	resty    *resty.Client
	logger   *zap.Logger
	recorder *metrics.Recorder
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder counts requests by outcome.
func WithRecorder(r *metrics.Recorder) ClientOption {
	return func(c *Client) { c.recorder = r }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.resty.SetTimeout(d) }
}

// NewClient creates a client for the backend at baseURL, e.g.
// "http://localhost:8000".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	r := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "llm-playground")

	c := &Client{resty: r, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "params"))
	return c
}

// SetSamplingParam sends {name: value}.
func (c *Client) SetSamplingParam(ctx context.Context, name string, value float64) error {
	err := c.post(ctx, samplingPath, map[string]any{name: value})
	c.recorder.Param(name, err == nil)
	return err
}

// SetStreaming sends {"stream": on}.
func (c *Client) SetStreaming(ctx context.Context, on bool) error {
	err := c.post(ctx, streamingPath, map[string]any{"stream": on})
	c.recorder.Param("stream", err == nil)
	return err
}

func (c *Client) post(ctx context.Context, path string, body map[string]any) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode())
	}
	c.logger.Debug("settings updated", zap.String("path", path), zap.Any("body", body))
	return nil
}
