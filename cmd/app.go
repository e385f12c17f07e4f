package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/RezaSbu/MO-BOT/internal/chat"
	"github.com/RezaSbu/MO-BOT/internal/config"
	"github.com/RezaSbu/MO-BOT/internal/gemini"
	"github.com/RezaSbu/MO-BOT/internal/log"
	"github.com/RezaSbu/MO-BOT/internal/observability"
	"github.com/RezaSbu/MO-BOT/internal/session"
	"github.com/RezaSbu/MO-BOT/internal/storage"
)

// app bundles the wired application for a single command invocation.
type app struct {
	cfg    *config.Config
	logger log.Logger
	store  *session.Store
	orch   *chat.Orchestrator

	cleanups []func(context.Context) error
}

// newApp loads configuration and wires storage, the Gemini gateway and the
// orchestrator. Callers must invoke close when done.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	logger.Debug("configuration loaded", "config", cfg)

	a := &app{cfg: cfg, logger: logger}

	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			Environment: cfg.Tracing.Environment,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.cleanups = append(a.cleanups, shutdown)
	}

	blob, err := a.openBlob(ctx)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(blob, logger)
	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	a.store = store

	gateway, err := gemini.New(ctx, gemini.Config{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   int32(cfg.MaxTokens),
		Limiter:     newLimiter(cfg.RequestsPerMinute),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	orch, err := chat.New(chat.Config{
		Store:    store,
		Gateway:  gateway,
		Resolver: storage.NewSpool(filepath.Join(cfg.DataDir, "spool")),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.orch = orch

	return a, nil
}

// openBlob builds the persistence backend selected by the configuration.
func (a *app) openBlob(ctx context.Context) (session.Blob, error) {
	switch a.cfg.StorageDriver {
	case config.DriverSQLite:
		blob, err := storage.NewSQLiteBlob(ctx, filepath.Join(a.cfg.DataDir, "mobot.db"), a.logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		a.cleanups = append(a.cleanups, func(context.Context) error { return blob.Close() })
		return blob, nil
	default:
		return storage.NewFileBlob(filepath.Join(a.cfg.DataDir, "sessions.json"), a.logger), nil
	}
}

// close releases resources in reverse acquisition order.
func (a *app) close(ctx context.Context) {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](ctx); err != nil {
			a.logger.Warn("cleanup failed", "error", err)
		}
	}
}

// newLimiter converts a requests-per-minute budget into a limiter.
// Zero means unlimited.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// printAPIKeyHelp prints setup instructions when no key is configured.
func printAPIKeyHelp() {
	fmt.Fprintln(os.Stderr, "Error: Gemini API key not configured")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Please run:")
	fmt.Fprintln(os.Stderr, "  export MOBOT_GEMINI_API_KEY=your-api-key")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")
}
