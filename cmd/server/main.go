package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/yuv5120/SplitPay/internal/auth"
	"github.com/yuv5120/SplitPay/internal/cache"
	"github.com/yuv5120/SplitPay/internal/config"
	"github.com/yuv5120/SplitPay/internal/metrics"
	"github.com/yuv5120/SplitPay/internal/middleware"
	"github.com/yuv5120/SplitPay/internal/ratelimit"
	"github.com/yuv5120/SplitPay/internal/service"
	"github.com/yuv5120/SplitPay/internal/storage/sqlite"
	"github.com/yuv5120/SplitPay/pkg/logging"
	"github.com/yuv5120/SplitPay/pkg/splitpayv1"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if cfg.JWTSecret == config.DevJWTSecret {
		slog.Warn("JWT_SECRET not set, using development secret")
	}

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	// Redis backs the balance cache and the shared rate limiter when configured
	var (
		balanceCache cache.BalanceCache = cache.NopCache{}
		limiter      ratelimit.Limiter
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			// Both users of the client tolerate an unreachable server
			slog.Warn("Redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
		}

		balanceCache = cache.NewRedisCache(rdb, cfg.CacheTTL)
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
		slog.Info("Redis configured", "addr", cfg.RedisAddr, "cache_ttl", cfg.CacheTTL)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		slog.Info("Redis not configured, balance cache disabled")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Services
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)
	groupSvc := service.NewGroupService(store, balanceCache, m)
	authSvc := service.NewAuthService(authenticator, jwtManager, store, logger)

	// Auth runs first so the logging interceptor sees the user
	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager, service.PublicProcedures...),
		middleware.LoggingInterceptor(m),
	)

	mux := http.NewServeMux()
	mux.Handle(splitpayv1.NewGroupServiceHandler(groupSvc, interceptors))
	mux.Handle(splitpayv1.NewAuthServiceHandler(authSvc, interceptors))
	service.NewRESTHandler(groupSvc, jwtManager, store).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	if cfg.RateLimitMax > 0 {
		handler = middleware.RateLimit(limiter, cfg.TrustedProxies, "/health", "/metrics")(handler)
		slog.Info("Rate limiting enabled",
			"max", cfg.RateLimitMax,
			"window", cfg.RateLimitWindow,
			"trusted_proxies", len(cfg.TrustedProxies),
		)
	}
	handler = middleware.CORS(cfg.CORSOrigin)(handler)
	handler = middleware.RequestLogger(handler)
	handler = middleware.Recovery(handler)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting",
			"address", cfg.Addr(),
			"url", fmt.Sprintf("http://localhost%s", cfg.Addr()),
			"env", cfg.Env,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}
