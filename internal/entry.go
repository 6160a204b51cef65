// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/argument/internal/api"
	"github.com/starford/argument/internal/clipboard"
	"github.com/starford/argument/internal/export"
	"github.com/starford/argument/internal/imagecodec"
	"github.com/starford/argument/internal/inbox"
	"github.com/starford/argument/internal/mcpserver"
	"github.com/starford/argument/internal/noteservice"
	"github.com/starford/argument/internal/share"
	"github.com/starford/argument/internal/sse"
	"github.com/starford/argument/internal/storage"
	"github.com/starford/argument/internal/store"
)

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(cfg.App, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("inbox_enabled", cfg.Inbox.Enabled),
		slog.String("share_mode", cfg.Share.Mode),
		slog.String("clipboard_mode", cfg.Clipboard.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := newService(cfg, db, logger, noteservice.WithEvents(publishEvents(broker)))

	clip, clipView := app.clipboardSinks(cfg)
	shareSink, err := app.shareSink(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init share sink: %w", err)
	}

	var box *inbox.Inbox
	if cfg.Inbox.Enabled {
		box, err = newInbox(cfg.Inbox, svc, logger)
		if err != nil {
			return fmt.Errorf("init inbox: %w", err)
		}
	}

	handler := newHTTPHandler(cfg, db, svc, api.RouterConfig{
		Clipboard:     clip,
		ClipboardView: clipView,
		Share:         shareSink,
		AuthEnabled:   cfg.Auth.AuthEnabled(),
		Token:         cfg.Auth.Token,
		Events:        broker,
	})

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the inbox; new files become notes and reach clients via SSE.
	if box != nil {
		g.Go(func() error {
			if err := box.Run(gCtx); err != nil {
				return fmt.Errorf("inbox: %w", err)
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...", slog.Int("event_clients", broker.ClientCount()))

		// Ends open SSE streams so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio until the client disconnects.
// Logs go to stderr so they never interleave with the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(cfg.App, app.logOutput)
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	svc := newService(cfg, db, logger)
	clip, _ := app.clipboardSinks(cfg)
	shareSink, err := app.shareSink(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init share sink: %w", err)
	}

	logger.Info("MCP server starting", slog.String("sqlite_path", cfg.SQLite.Path))
	return mcpserver.New(svc, clip, shareSink).ServeStdio()
}

// errShutdown stops the errgroup once a signal or cancellation is handled.
var errShutdown = errors.New("shutdown")

func newApplication(defaultLog io.Writer, opts []Option) (*application, error) {
	app := &application{logOutput: defaultLog}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the JSON logger. With app.log_file set, records are also
// written to a size-rotated file.
func newLogger(cfg ApplicationConfig, out io.Writer) *slog.Logger {
	if cfg.LogFile != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		})
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

func newService(cfg *Config, db store.NoteStore, logger *slog.Logger, opts ...noteservice.Option) *noteservice.Service {
	codec := imagecodec.NewStandard(imagecodec.WithWebP(cfg.Export.WebP))
	enc := export.NewEncoder(codec,
		export.WithQuality(cfg.Export.Quality),
		export.WithLogger(logger))
	return noteservice.NewService(db, enc, append([]noteservice.Option{noteservice.WithLogger(logger)}, opts...)...)
}

// clipboardSinks returns the sink commands write to and, when it is the
// in-memory one, the same value for GET /api/clipboard.
func (a *application) clipboardSinks(cfg *Config) (clipboard.Sink, *clipboard.Memory) {
	if a.clipboard != nil {
		mem, _ := a.clipboard.(*clipboard.Memory)
		return a.clipboard, mem
	}
	if cfg.Clipboard.Mode == ClipboardModeSystem {
		return clipboard.NewSystem(), nil
	}
	mem := clipboard.NewMemory()
	return mem, mem
}

func (a *application) shareSink(ctx context.Context, cfg *Config) (share.Sink, error) {
	if a.share != nil {
		return a.share, nil
	}
	return newShareSink(ctx, cfg.Share)
}

func newShareSink(ctx context.Context, cfg ShareConfig) (share.Sink, error) {
	switch cfg.Mode {
	case ShareModeWebDAV:
		w := cfg.WebDAV
		return share.NewWebDAV(w.URL, w.User, w.Password, w.Root), nil
	case ShareModeS3:
		s := cfg.S3
		client, err := share.NewS3Client(ctx, share.S3Options{
			Region:    s.Region,
			Endpoint:  s.Endpoint,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return share.NewS3(client, s.Bucket, s.Prefix), nil
	default:
		if err := os.MkdirAll(cfg.Dir.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create share dir: %w", err)
		}
		files, err := storage.NewFS(cfg.Dir.Path)
		if err != nil {
			return nil, err
		}
		return share.NewDir(files), nil
	}
}

func newInbox(cfg InboxConfig, svc *noteservice.Service, logger *slog.Logger) (*inbox.Inbox, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Path)
	if err != nil {
		return nil, err
	}
	return inbox.New(files, svc,
		inbox.WithLogger(logger),
		inbox.WithSweepSchedule(cfg.SweepSchedule)), nil
}

// publishEvents forwards service events to SSE clients. Copies surface as
// clipboard.updated, everything else as note.<kind>.
func publishEvents(b *sse.Broker) noteservice.EventFunc {
	return func(kind noteservice.EventKind, id string) {
		if kind == noteservice.EventCopied {
			b.Publish(sse.Event{Type: "clipboard.updated", Data: map[string]string{"id": id}})
			return
		}
		b.PublishNoteEvent(string(kind), id)
	}
}

type storeProbe interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

type healthStatus struct {
	Status string `json:"status"`
	Notes  *int   `json:"notes,omitempty"`
}

// newHTTPHandler builds the root router: request middleware, health checks
// and the API under /api.
func newHTTPHandler(cfg *Config, db storeProbe, svc *noteservice.Service, rc api.RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.CORS(cfg.App.HTTP.Origins()))

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, healthStatus{Status: "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		err := db.Ping(r.Context())
		var notes int
		if err == nil {
			notes, err = db.Count(r.Context())
		}
		if err != nil {
			slog.Warn("readiness check failed", slog.String("error", err.Error()))
			writeStatus(w, http.StatusServiceUnavailable, healthStatus{Status: "unavailable"})
			return
		}
		writeStatus(w, http.StatusOK, healthStatus{Status: "ok", Notes: &notes})
	})

	r.With(api.RateLimit(cfg.App.HTTP.RateLimitRPS, cfg.App.HTTP.RateLimitBurst)).
		Mount("/api", api.NewRouter(svc, rc))

	return r
}

func writeStatus(w http.ResponseWriter, code int, body healthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
