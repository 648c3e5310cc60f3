// PickleAI - pickleball assistant server
package main

import (
	"context"
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
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/pickleai/internal/api"
	"github.com/ashureev/pickleai/internal/chat"
	"github.com/ashureev/pickleai/internal/config"
	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/identity"
	"github.com/ashureev/pickleai/internal/knowledge"
	"github.com/ashureev/pickleai/internal/llm"
	"github.com/ashureev/pickleai/internal/metrics"
	"github.com/ashureev/pickleai/internal/middleware"
	"github.com/ashureev/pickleai/internal/security"
	"github.com/ashureev/pickleai/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

type rateLimitStore interface {
	security.RateLimitStore
	io.Closer
}

func newRateLimitStore(cfg config.RateLimitConfig) (rateLimitStore, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		s, err := security.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return security.NewMemoryStore(time.Minute), nil
	}
}

//nolint:funlen // Startup wiring is intentionally sequential to keep dependency setup explicit.
func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected")

	registry, err := knowledge.LoadYAML(knowledge.Default(), cfg.KnowledgeBasePath)
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}
	slog.Info("Knowledge base loaded", "categories", registry.Len(), "overlay", cfg.KnowledgeBasePath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(reg)

	limits, err := newRateLimitStore(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("initialize rate limit store: %w", err)
	}
	defer func() {
		if closeErr := limits.Close(); closeErr != nil {
			slog.Error("Failed to close rate limit store", "error", closeErr)
		}
	}()
	slog.Info("Rate limit store ready", "backend", cfg.RateLimit.Backend)

	gate := security.NewGate(limits, security.Config{
		PerMinute:      cfg.RateLimit.PerMinute,
		PerDay:         cfg.RateLimit.PerDay,
		Cooldown:       cfg.RateLimit.Cooldown,
		AllowedIntents: cfg.RateLimit.AllowedIntents,
	})

	model := llm.New(llm.Config{
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		Model:        cfg.LLM.Model,
		Timeout:      cfg.LLM.Timeout,
		MaxRetries:   cfg.LLM.MaxRetries,
		HistoryLimit: cfg.LLM.HistoryLimit,
	}, llm.WithObserver(recorder))
	if !cfg.LLM.Enabled() {
		slog.Warn("No LLM endpoint or API key configured, replies will fail until one is set")
	}

	conversationLogger, err := chat.NewConversationLogger(chat.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize conversation logger: %w", err)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	planner := chat.NewPlanner(registry, nil)
	sessions := chat.NewSessions(repo, func(userID, sessionID string, restored *domain.ChatState) *chat.Assistant {
		opts := []chat.Option{
			chat.WithGate(gate),
			chat.WithRecorder(recorder),
			chat.WithConversationLogger(conversationLogger),
			chat.WithSession(userID, sessionID, "chat_http"),
		}
		if restored != nil {
			opts = append(opts, chat.WithState(*restored))
		}
		return chat.NewAssistant(planner, model, opts...)
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, sessions, cfg.IsDevelopment())
	healthHandler := api.NewHealthHandler(repo, cfg)
	chatHandler := api.NewChatHandler(baseHandler, planner, gate.Config(), cfg.LLM.Enabled())
	wsHandler := api.NewWebSocketHandler(baseHandler, cfg.FrontendURL)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins(cfg), identity.SessionHeaderName))

	// Public routes.
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		healthHandler.RegisterHealth(r)
		chatHandler.RegisterRoutes(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Note: WebSocket connections require long timeouts (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return chat.RunTTLWorker(gctx, sessions, repo, cfg.SessionTTL)
	})

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		// Flush live chats so a restart resumes them.
		n, err := sessions.PersistAll(shutdownCtx)
		if err != nil {
			slog.Error("Failed to persist some chat sessions", "error", err)
		}
		slog.Info("Persisted live chat sessions", "count", n)
		return nil
	})

	return g.Wait()
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() || cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
