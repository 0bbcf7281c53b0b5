package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/owaisoptics/reviewdesk/pkg/database"
	apperrors "github.com/owaisoptics/reviewdesk/pkg/errors"
	"github.com/owaisoptics/reviewdesk/pkg/health"
	"github.com/owaisoptics/reviewdesk/pkg/httpclient"
	"github.com/owaisoptics/reviewdesk/pkg/middleware"
	"github.com/owaisoptics/reviewdesk/pkg/tracing"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/auth"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/config"
	handler "github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/handler/http"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/repository"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/repository/memory"
	redisstore "github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/repository/redis"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/repository/remote"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/service"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/session"
)

const serviceName = "reviewdesk"

type sessionKV interface {
	repository.KeyValueStore
	Ping(ctx context.Context) error
}

// App wires together all dependencies and runs the reviewdesk service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Session persistence.
	var (
		kv  sessionKV
		rdb *redis.Client
	)
	switch cfg.SessionBackend {
	case config.BackendRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB

		rdb, err = database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			_ = tracerShutdown(context.Background())
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		kv = redisstore.NewStore(rdb, cfg.SessionKeyPrefix, cfg.SessionTTL())
	default:
		kv = memory.New()
	}

	sessions := session.NewStore(kv, auth.Codec{}, logger)
	if sess, err := sessions.Restore(ctx); err != nil {
		logger.Warn("could not restore session", slog.String("error", err.Error()))
	} else if sess != nil {
		logger.Info("session restored", slog.String("subject_id", sess.SubjectID))
	}

	// Review service client: retries, then the breaker, then the bearer token.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.HTTPClientTimeout()
	httpCfg.MaxRetries = cfg.HTTPClientMaxRetries

	breaker := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), httpclient.CircuitBreakerConfig{
		Name:         "reviews-api",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBIntervalSeconds) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeoutSeconds) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}, logger).WithFallback(func(context.Context, error) (*http.Response, error) {
		return nil, apperrors.ServiceUnavailable("review service circuit open")
	})

	client := remote.NewClient(httpclient.WithBearer(breaker, sessions), cfg.APIBaseURL, cfg.FetchLimit)
	repo := remote.NewRepository(client, logger)
	board := service.NewBoard(repo, sessions, logger, cfg.PageSize, client.LoginURL())

	if err := board.Refresh(ctx); err != nil {
		logger.Warn("initial review load failed", slog.String("error", err.Error()))
	}

	// Health checks.
	healthHandler := health.NewHandler()
	if rdb != nil {
		healthHandler.Register("redis", database.RedisChecker(rdb))
	} else {
		healthHandler.Register("session_store", kv.Ping)
	}
	healthHandler.Register("reviews", func(context.Context) error {
		if board.Degraded() {
			return fmt.Errorf("serving fallback reviews: %w", health.ErrDegraded)
		}
		return nil
	})

	router := handler.NewRouter(board, sessions, healthHandler, logger, handler.RouterConfig{
		BasePath:    cfg.PublicBasePath,
		CORS:        middleware.CORSFromOrigins(cfg.CORSAllowedOrigins, cfg.Environment),
		SubmitRPS:   cfg.SubmitRateLimitRPS,
		SubmitBurst: cfg.SubmitRateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		tracerShutdown: tracerShutdown,
		httpServer:     httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}
