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

	"github.com/dravis-labs/corpusd/internal/config"
	"github.com/dravis-labs/corpusd/internal/db"
	dbRedis "github.com/dravis-labs/corpusd/internal/db/redis"
	"github.com/dravis-labs/corpusd/internal/domain/chunker"
	logpkg "github.com/dravis-labs/corpusd/internal/logger"
	"github.com/dravis-labs/corpusd/internal/metrics"
	"github.com/dravis-labs/corpusd/internal/repository/chunkstore"
	"github.com/dravis-labs/corpusd/internal/repository/embcache"
	"github.com/dravis-labs/corpusd/internal/repository/memstore"
	registryrepo "github.com/dravis-labs/corpusd/internal/repository/registry"
	"github.com/dravis-labs/corpusd/internal/transport/httpapi"
	openaiEmb "github.com/dravis-labs/corpusd/internal/transport/openai"
	healthuc "github.com/dravis-labs/corpusd/internal/usecase/health"
	registryuc "github.com/dravis-labs/corpusd/internal/usecase/registry"
	retrievaluc "github.com/dravis-labs/corpusd/internal/usecase/retrieval"
	"github.com/dravis-labs/corpusd/internal/version"
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

	logger.Info("Starting corpusd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	// Attach the persistent backend, falling back to the in-memory store
	// once at startup. The choice holds for the process lifetime.
	ctx := context.Background()
	store, col, docStore := buildBackend(ctx, cfg, logger)
	if store != nil {
		defer store.Close()
	}

	// Embedder chain: OpenAI -> Cached (persistent mode only)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	var embedder retrievaluc.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cached", store != nil),
	)

	// Use case services
	retrievalSvc := retrievaluc.New(col, embedder, cfg.Embedding.Model)
	chk := chunker.New(cfg.Chunker.Size, cfg.Chunker.Overlap)
	registrySvc := registryuc.New(docStore, retrievalSvc, chk)
	healthSvc := healthuc.New(store, base)

	// HTTP server
	server := httpapi.NewServer(registrySvc, retrievalSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
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

// buildBackend connects the persistent backend. Any failure along the way
// (connect, readiness, index creation) switches the process to the
// in-memory collection and registry for its whole lifetime.
func buildBackend(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
) (db.Store, retrievaluc.Collection, registryuc.Store) {
	redisStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err == nil {
		err = redisStore.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second)
	}

	var chunks *chunkstore.Collection
	if err == nil {
		chunks = chunkstore.New(redisStore, chunkstore.Config{
			Dim:         cfg.Embedding.Dimensions,
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
		err = chunks.EnsureIndex(ctx)
	}

	if err != nil {
		if redisStore != nil {
			redisStore.Close()
		}
		logger.Warn("Persistent backend unavailable, running on the in-memory store",
			zap.Error(err))
		return nil, memstore.New(), registryrepo.NewMemory()
	}

	logger.Info("Connected to database")
	return redisStore, chunks, registryrepo.New(redisStore)
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
						"code":    "internal_error",
						"message": "internal error",
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

			// Set X-Request-ID in response header
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
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
