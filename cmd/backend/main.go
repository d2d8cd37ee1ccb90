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

	"github.com/fjod/go_storefront/internal/backend"
	"github.com/fjod/go_storefront/internal/metrics"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Config struct {
	HTTPPort              string
	CatalogDBPath         string
	CatalogMigrationsPath string
	Mongo                 repository.MongoConfig
	DB                    repository.Credentials
	RequestTimeout        time.Duration
	ShutdownTimeout       time.Duration
	LogLevel              string
	LogFormat             string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8081"),
		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "./catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./internal/repository/migrations/catalog"),
		Mongo: repository.MongoConfig{
			URI:                    getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:               getEnv("MONGO_DB_NAME", "storefront"),
			MaxPoolSize:            uint64(getEnvInt("MONGO_MAX_POOL_SIZE", 100)),
			MinPoolSize:            uint64(getEnvInt("MONGO_MIN_POOL_SIZE", 10)),
			ConnectTimeout:         getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			ServerSelectionTimeout: getEnvDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),
		},
		DB: repository.Credentials{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "orders"),
			MigrationsDirPath: getEnv("ORDERS_MIGRATIONS_PATH", "./internal/repository/migrations/orders"),
		},
		RequestTimeout:  15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

func main() {
	cfg := loadConfig()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	catalog, err := repository.NewCatalogRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatal("failed to open catalog", zap.Error(err))
	}
	defer catalog.Close()
	if err := catalog.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		log.Fatal("failed to migrate catalog", zap.Error(err))
	}

	orders, err := repository.NewOrderRepository(&cfg.DB)
	if err != nil {
		log.Fatal("failed to connect to orders database", zap.Error(err))
	}
	defer orders.Close()
	if err := orders.RunMigrations(&cfg.DB); err != nil {
		log.Fatal("failed to migrate orders", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoDB, disconnectMongo, err := repository.ConnectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		cancel()
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	carts := repository.NewCartRepository(mongoDB)
	if err := carts.CreateIndexes(ctx); err != nil {
		log.Warn("failed to create cart indexes", zap.Error(err))
	}
	cancel()
	defer func() {
		if err := disconnectMongo(context.Background()); err != nil {
			log.Warn("failed to disconnect from MongoDB", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	r := backend.NewRouter(backend.Config{
		Catalog:        catalog,
		Carts:          carts,
		Orders:         orders,
		Logger:         log,
		Metrics:        metrics.New("backend", reg),
		Gatherer:       reg,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "backend"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("backend starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("server exited")
}
