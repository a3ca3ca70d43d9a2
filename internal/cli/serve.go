package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/config"
	"github.com/aretw0/reel/pkg/domain"
	httpAdapter "github.com/aretw0/reel/pkg/adapters/http"
	"github.com/aretw0/reel/pkg/adapters/mqtt"
	"github.com/aretw0/reel/pkg/observability"
	"github.com/aretw0/reel/pkg/persistence"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/aretw0/reel/pkg/session"
	"github.com/google/uuid"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// ServeOptions configures Serve.
type ServeOptions struct {
	Config   *config.Config
	Logger   *slog.Logger
	Out      io.Writer
	ReadOnly bool
}

// Serve runs the HTTP API (and the MQTT bridge when a broker is configured)
// until ctx is done.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg, logger := opts.Config, opts.Logger
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	backend, err := OpenStore(ctx, cfg.Store, StoreOptions{ReadOnly: opts.ReadOnly, Logger: logger})
	if err != nil {
		return err
	}
	defer backend.Close()

	hooks := []domain.LifecycleHooks{observability.LoggingHooks(logger)}
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
		hooks = append(hooks, metrics.Hooks())
	}

	writerOpts := []persistence.Option{persistence.WithCommitDelay(cfg.CommitDelay)}
	if backend.Locker != nil {
		writerOpts = append(writerOpts, persistence.WithLocker(backend.Locker, "deck"))
	}

	sessionOpts := []session.Option{}
	if metrics != nil {
		sessionOpts = append(sessionOpts, session.WithSessionCount(func(n int) {
			metrics.Sessions.Set(float64(n))
		}))
	}

	var broker mqttClient
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.Connect(cfg.MQTT.Broker, "reel-"+uuid.NewString())
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		broker = client
		topic := cfg.MQTT.Topic
		sessionOpts = append(sessionOpts, session.WithViewport(func(id string) ports.Viewport {
			return mqtt.NewViewport(client, topic, id, logger)
		}))
	}

	engine, err := reel.New(ctx, backend.Store,
		reel.WithLogger(logger),
		reel.WithPlaybackConfig(cfg.Playback()),
		reel.WithLifecycleHooks(hooks...),
		reel.WithWriterOptions(writerOpts...),
		reel.WithSessionOptions(sessionOpts...),
		reel.WithOnCommit(func(report persistence.Report) {
			if metrics == nil {
				return
			}
			for _, res := range report {
				metrics.ObserveOutcome(res.Outcome)
			}
		}),
	)
	if err != nil {
		return err
	}
	defer engine.Close(context.WithoutCancel(ctx))

	if err := engine.Watch(ctx); err != nil {
		logger.Info("hot reload disabled", "reason", err)
	}

	if broker != nil {
		bridge := mqtt.NewBridge(broker, cfg.MQTT.Topic, engine.Sessions(), logger)
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("failed to start mqtt bridge: %w", err)
		}
		logger.Info("mqtt bridge started", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
	}

	var handlerOpts []httpAdapter.Option
	handlerOpts = append(handlerOpts, httpAdapter.WithLogger(logger))
	if metrics != nil {
		handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(metrics.Handler()))
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpAdapter.NewHandler(engine, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(opts.Out, "Serving %d slides on %s", engine.Graph().Len(), srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			return srv.Close()
		}
		printSystemMessage(opts.Out, "Server stopped gracefully")
		return nil
	}
}

type mqttClient interface {
	mqtt.Publisher
	mqtt.Subscriber
}
