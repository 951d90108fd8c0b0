package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llm-playground/llm-playground/internal/config"
	"github.com/llm-playground/llm-playground/internal/conn"
	"github.com/llm-playground/llm-playground/internal/diag"
	"github.com/llm-playground/llm-playground/internal/logging"
	"github.com/llm-playground/llm-playground/internal/metrics"
	"github.com/llm-playground/llm-playground/internal/params"
	"github.com/llm-playground/llm-playground/internal/retry"
	"github.com/llm-playground/llm-playground/internal/session"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: configFile})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	o := config.Overrides{Endpoint: endpointArg, Path: pathArg, LogLevel: logLevelArg}
	if cmd != nil && cmd.Flags().Changed("secure") {
		o.Secure = &secureArg
	}
	cfg.ApplyOverrides(o)
	if logFileArg != "" {
		cfg.Log.File = logFileArg
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, interactive bool) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		Development: cfg.Log.Development,
		Interactive: interactive,
	})
}

const syncTimeout = 5 * time.Second

// runtimeDeps is everything a command needs to talk to the backend.
type runtimeDeps struct {
	cfg      *config.Config
	logger   *zap.Logger
	recorder *metrics.Recorder
	session  *session.Session
	client   *params.Client
	pusher   *params.Pusher

	diag *diag.Server
}

func newRuntime(cfg *config.Config, logger *zap.Logger) (*runtimeDeps, error) {
	rec := metrics.New()
	sup := conn.New(cfg.WebsocketURL(), conn.WithLogger(logger))
	policy := retry.New(
		retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retry.WithDelay(cfg.Retry.Delay),
		retry.WithLogger(logger),
		retry.WithReconnectHook(rec.Reconnect),
	)
	sess := session.New(sup,
		session.WithPolicy(policy),
		session.WithLogger(logger),
		session.WithRecorder(rec),
		session.WithStreaming(cfg.Stream),
	)
	client := params.NewClient(cfg.HTTPBaseURL(), params.WithLogger(logger), params.WithRecorder(rec))

	rt := &runtimeDeps{
		cfg:      cfg,
		logger:   logger,
		recorder: rec,
		session:  sess,
		client:   client,
		pusher:   params.NewPusher(client, cfg.Params.Debounce, logger),
	}

	if cfg.Metrics.Addr != "" {
		srv := diag.NewServer(rec.Handler(), diag.WithProfiling(cfg.Metrics.Pprof), diag.WithLogger(logger))
		if _, err := srv.Start(cfg.Metrics.Addr); err != nil {
			_ = sess.Close()
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		rt.diag = srv
	}

	logger.Info("session started",
		zap.String("session_id", sess.ID()),
		zap.String("url", cfg.WebsocketURL()),
		zap.Bool("streaming", cfg.Stream))
	return rt, nil
}

// syncStreaming pushes the configured streaming mode to the backend so both
// sides agree before the first message. It blocks until the backend answers.
func (rt *runtimeDeps) syncStreaming(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	if err := rt.client.SetStreaming(ctx, rt.cfg.Stream); err != nil {
		rt.logger.Warn("Failed to set streaming mode", zap.Bool("stream", rt.cfg.Stream), zap.Error(err))
		return err
	}
	return nil
}

func (rt *runtimeDeps) Close() {
	rt.pusher.Stop()
	if err := rt.session.Close(); err != nil {
		rt.logger.Debug("close session", zap.Error(err))
	}
	if rt.diag != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rt.diag.Stop(ctx)
	}
	_ = rt.logger.Sync()
}
