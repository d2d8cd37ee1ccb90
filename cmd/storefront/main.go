package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/client"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/metrics"
	"github.com/fjod/go_storefront/internal/service"
	"github.com/fjod/go_storefront/internal/session"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Config struct {
	HTTPPort          string
	BackendBaseURL    string
	BackendTimeout    time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
	PaymentDelay      time.Duration
	CheckoutStateTTL  time.Duration
	LookupConcurrency int
	RedisAddr         string
	RedisPassword     string
	LogLevel          string
	LogFormat         string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		BackendBaseURL:    getEnv("BACKEND_BASE_URL", "http://localhost:8081"),
		BackendTimeout:    getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		RequestTimeout:    30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		PaymentDelay:      getEnvDuration("PAYMENT_DELAY", service.DefaultPaymentDelay),
		CheckoutStateTTL:  getEnvDuration("CHECKOUT_STATE_TTL", session.DefaultTTL),
		LookupConcurrency: getEnvInt("LOOKUP_CONCURRENCY", 8),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func main() {
	cfg := loadConfig()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("bff", reg)

	backend := client.New(cfg.BackendBaseURL, cfg.BackendTimeout, client.WithLogger(log))

	store, closeStore := newStore(cfg, log)
	defer closeStore()

	cartService := service.NewCartService(backend, backend,
		service.WithCartLogger(log),
		service.WithCartMetrics(m),
		service.WithLookupConcurrency(cfg.LookupConcurrency))
	checkoutService := service.NewCheckoutService(backend, backend, store,
		service.WithCheckoutLogger(log),
		service.WithCheckoutMetrics(m),
		service.WithPayment(service.FixedDelayPayment{Delay: cfg.PaymentDelay}))

	r := h.NewRouter(h.RouterConfig{
		Cart:           h.NewCartHandler(cartService, cfg.BackendTimeout),
		Checkout:       h.NewCheckoutHandler(cartService, checkoutService, cfg.BackendTimeout),
		Products:       h.NewProductHandler(backend, cfg.BackendTimeout),
		Orders:         h.NewOrdersHandler(backend, cfg.BackendTimeout),
		Logger:         log,
		Metrics:        m,
		Gatherer:       reg,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort), zap.String("backend", cfg.BackendBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("server exited")
}

// writeTimeout leaves room for the slowest route, which is a checkout.
func writeTimeout(cfg *Config) time.Duration {
	return max(cfg.RequestTimeout, h.CheckoutBudget(cfg.BackendTimeout, cfg.PaymentDelay)) + 5*time.Second
}

// newStore uses Redis when REDIS_ADDR is set and process memory otherwise.
func newStore(cfg *Config, log *zap.Logger) (session.Store, func()) {
	if cfg.RedisAddr == "" {
		log.Info("checkout state kept in memory")
		return session.NewMemoryStore(cfg.CheckoutStateTTL), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	log.Info("checkout state kept in redis", zap.String("addr", cfg.RedisAddr))
	return session.NewRedisStore(rdb, cfg.CheckoutStateTTL), func() { _ = rdb.Close() }
}
