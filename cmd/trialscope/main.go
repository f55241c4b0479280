package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pipelinex/trialscope/internal/config"
	"github.com/pipelinex/trialscope/internal/db"
	dbRedis "github.com/pipelinex/trialscope/internal/db/redis"
	logpkg "github.com/pipelinex/trialscope/internal/logger"
	"github.com/pipelinex/trialscope/internal/metrics"
	"github.com/pipelinex/trialscope/internal/repository/trialcache"
	chiTransport "github.com/pipelinex/trialscope/internal/transport/chi"
	"github.com/pipelinex/trialscope/internal/transport/ctgov"
	openaiExt "github.com/pipelinex/trialscope/internal/transport/openai"
	healthuc "github.com/pipelinex/trialscope/internal/usecase/health"
	searchuc "github.com/pipelinex/trialscope/internal/usecase/search"
	"github.com/pipelinex/trialscope/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting trialscope API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("ctgov_base_url", cfg.CTGov.BaseURL),
		zap.Bool("cache_enabled", cfg.Cache.Enabled()),
		zap.Bool("extraction_enabled", cfg.Extraction.Enabled()),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Optional cache store
	var store db.Store
	if cfg.Cache.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		ctx := context.Background()
		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store")
	}

	// Upstream client
	fetcher := ctgov.NewClient(&ctgov.Config{
		BaseURL:        cfg.CTGov.BaseURL,
		PageSize:       cfg.CTGov.PageSize,
		MaxPages:       cfg.CTGov.MaxPages,
		RequestTimeout: time.Duration(cfg.CTGov.RequestTimeoutSec) * time.Second,
		MaxRetries:     cfg.CTGov.MaxRetries,
		UserAgent:      cfg.CTGov.UserAgent,
		Logger:         logger,
	})

	// Pipeline service with optional enrichment
	searchSvc := searchuc.New(fetcher, logger)

	var extractor *openaiExt.Extractor
	if cfg.Extraction.Enabled() {
		extractor = openaiExt.NewExtractor(&openaiExt.Config{
			APIKey:  cfg.Extraction.APIKey,
			BaseURL: cfg.Extraction.BaseURL,
			Model:   cfg.Extraction.Model,
			Logger:  logger,
		})
		searchSvc.WithExtractor(
			extractor,
			time.Duration(cfg.Extraction.TimeoutSec)*time.Second,
			cfg.Extraction.MaxConcurrent,
		)
		logger.Info("Disease extraction enabled", zap.String("model", cfg.Extraction.Model))
	}

	// Optional caching decorator
	var searcher chiTransport.Searcher = searchSvc
	if store != nil {
		searcher = trialcache.New(
			searchSvc, store,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			cfg.Cache.KeyPrefix,
			metrics.SearchCacheTotal,
			logger,
		)
	}

	// Health service — pass nil interfaces, not typed nil pointers
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	var extractionChecker healthuc.ExtractionChecker
	if extractor != nil {
		extractionChecker = extractor
	}
	healthSvc := healthuc.New(cachePinger, extractionChecker)

	// Create chi server
	server := chiTransport.NewServer(searcher, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
