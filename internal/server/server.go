// Package server wires configuration into a running HTTP server: store,
// cache, secrets, completion client, workflow, websocket hub and routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-app-builder/internal/ai"
	"ai-app-builder/internal/cache"
	"ai-app-builder/internal/config"
	"ai-app-builder/internal/flows"
	"ai-app-builder/internal/handlers"
	"ai-app-builder/internal/keys"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/metrics"
	"ai-app-builder/internal/middleware"
	"ai-app-builder/internal/preview"
	"ai-app-builder/internal/projects"
	"ai-app-builder/internal/secrets"
	"ai-app-builder/internal/store"
	"ai-app-builder/internal/websocket"
	"ai-app-builder/internal/workflow"
)

// Server owns every long-lived component.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	Router    *gin.Engine
	Database  *store.Database
	Cache     *cache.RedisCache
	Projects  *projects.Service
	Hub       *websocket.BatchedHub
	collector *metrics.ProjectCollector
	http      *http.Server
}

// NewCompleter builds the completion client for cfg. Without a key it
// returns ai.Unconfigured so generation still runs on fallbacks.
func NewCompleter(cfg *config.Config, logger *zap.Logger) (ai.Completer, error) {
	provider := ai.Provider(cfg.AIProvider)
	client, err := ai.NewClient(provider, ai.Options{
		APIKey:  cfg.ActiveAPIKey(),
		Timeout: cfg.AIRequestTimeout,
		Logger:  logger,
	})
	if errors.Is(err, ai.ErrMissingAPIKey) {
		logger.Warn("no API key configured, agents will use fallback output", zap.String("provider", string(provider)))
		return ai.Unconfigured{Backend: provider}, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// New builds the server. version labels the build info metric.
func New(cfg *config.Config, version string, logger *zap.Logger) (*Server, error) {
	logger = logging.OrDefault(logger)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	ai.SetMaxConcurrency(cfg.AIMaxConcurrency)

	client, err := NewCompleter(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	db, err := store.Open(&store.Config{
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		LogLevel:    "warn",
	}, logger)
	if err != nil {
		return nil, err
	}

	rc := newCache(cfg, logger)
	pc := cache.NewProjectCache(rc, cfg.CacheTTL)

	sm, err := newSecrets(cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	settings := keys.NewSettings(db, sm, keys.NewVerifier(keys.VerifierOptions{Logger: logger}), map[keys.Service]string{
		keys.ServiceCerebras: cfg.CerebrasAPIKey,
		keys.ServiceGemini:   cfg.GeminiAPIKey,
	}, logger)

	orchestrator := workflow.NewOrchestrator(client, nil, workflow.Config{
		Retry: workflow.RetryPolicy{
			MaxAttempts: cfg.WorkflowMaxAttempts,
			Backoff:     cfg.WorkflowRetryBackoff,
		},
		ProgressInterval: cfg.WorkflowProgressInterval,
		AgentPause:       cfg.WorkflowAgentPause,
	}, logger)

	// the hub reads snapshots from the service, which publishes to the hub
	var svc *projects.Service
	hub := websocket.NewHub(websocket.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Production:     cfg.IsProduction(),
		Source: func(ctx context.Context, id string) (any, error) {
			return svc.Snapshot(ctx, id)
		},
		Logger: logger,
	})
	batched := websocket.NewBatchedHub(hub, websocket.BatchInterval)

	svc = projects.NewService(projects.Options{
		Runner:    orchestrator,
		Store:     db,
		Cache:     pc,
		Publisher: batched,
		Preview:   preview.NewGenerator(pc, logger),
		Logger:    logger,
	})

	h := handlers.NewHandler(handlers.Dependencies{
		Completer:   client,
		Projects:    svc,
		Keys:        settings,
		Flows:       flows.NewService(client, logger),
		Database:    db,
		Environment: cfg.Environment,
		Logger:      logger,
	})

	middleware.InitRateLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst)
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger("/api/health", "/metrics"),
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.Security(),
		metrics.PrometheusMiddleware(),
		middleware.RateLimit(),
	)
	h.RegisterRoutes(router, hub.HandleWebSocket)

	metrics.Get().SetBuildInfo(version, cfg.Environment)

	return &Server{
		cfg:       cfg,
		logger:    logger.Named("server"),
		Router:    router,
		Database:  db,
		Cache:     rc,
		Projects:  svc,
		Hub:       batched,
		collector: metrics.NewProjectCollector(db, 30*time.Second),
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

func newCache(cfg *config.Config, logger *zap.Logger) *cache.RedisCache {
	cc := cache.DefaultCacheConfig()
	cc.DefaultTTL = cfg.CacheTTL
	if cfg.RedisURL == "" {
		return cache.NewRedisCache(cc)
	}
	rc, err := cache.NewRedisCacheFromURL(cfg.RedisURL, cc)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
		return cache.NewRedisCache(cc)
	}
	logger.Info("redis cache connected")
	return rc
}

func newSecrets(cfg *config.Config, logger *zap.Logger) (*secrets.Manager, error) {
	if cfg.SecretsMasterKey != "" {
		sm, err := secrets.NewManager(cfg.SecretsMasterKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize secrets manager: %w", err)
		}
		return sm, nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("SECRETS_MASTER_KEY is required in production")
	}
	logger.Warn("using an ephemeral master key, stored API keys will not survive a restart")
	return secrets.NewEphemeralManager()
}

// Run recovers interrupted projects, starts the background loops and
// serves HTTP until ctx ends. It then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.Projects.RecoverInterrupted(ctx); err != nil {
		s.logger.Warn("failed to recover interrupted projects", zap.Error(err))
	}
	go s.Hub.Run()
	s.collector.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("server listening",
			zap.String("addr", s.http.Addr),
			zap.String("environment", s.cfg.Environment),
			zap.String("provider", s.cfg.AIProvider))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		runErr = err
	case <-ctx.Done():
		s.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.Shutdown(shutdownCtx)
	return runErr
}

// Shutdown stops accepting requests, lets running generations record
// their final snapshot and closes the hub, cache and database.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
	if err := s.Projects.Shutdown(ctx); err != nil {
		s.logger.Warn("generations did not stop in time", zap.Error(err))
	}
	s.Hub.Stop()
	s.collector.Stop()
	if err := s.Cache.Close(); err != nil {
		s.logger.Warn("cache close", zap.Error(err))
	}
	if err := s.Database.Close(); err != nil {
		s.logger.Warn("database close", zap.Error(err))
	}
	s.logger.Info("shutdown complete")
}
