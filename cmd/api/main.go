package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	chromedpfetcher "github.com/user/price-intel/internal/adapter/chromedp_fetcher"
	"github.com/user/price-intel/internal/adapter/postgres"
	redisadapter "github.com/user/price-intel/internal/adapter/redis"
	"github.com/user/price-intel/internal/db"
	"github.com/user/price-intel/internal/delivery/http/handler"
	"github.com/user/price-intel/internal/delivery/http/router"
	"github.com/user/price-intel/internal/monitoring"
	"github.com/user/price-intel/internal/normalizer"
	"github.com/user/price-intel/internal/scheduler"
	"github.com/user/price-intel/internal/usecase"
	"github.com/user/price-intel/pkg/config"
	"github.com/user/price-intel/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("service exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	log.Info("connected to postgres")

	if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		return err
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	log.Info("connected to redis")

	catalogRepo := redisadapter.NewCatalogCache(
		postgres.NewCatalogRepo(pool),
		redisClient,
		cfg.CatalogCacheTTL(),
		log,
	)
	pricingRepo := postgres.NewPricingRepo(pool)

	fetcher := chromedpfetcher.NewChromedpFetcher(cfg.NavTimeout(), cfg.SelectorWait(), log)
	norm := normalizer.New(log)

	crawlUC := usecase.NewCrawlUsecase(catalogRepo, fetcher, norm, pricingRepo, metrics, log, cfg.CrawlConcurrency)
	pricingUC := usecase.NewPricingUsecase(pricingRepo)
	comparisonUC := usecase.NewComparisonUsecase(pricingRepo)

	sched, err := scheduler.New(cfg.CrawlSchedule, crawlUC, log)
	if err != nil {
		return err
	}
	sched.Start()

	h := handler.NewHandler(
		pricingUC,
		comparisonUC,
		crawlUC,
		func(ctx context.Context) error { return pool.Ping(ctx) },
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		log,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router.New(h, metrics, log),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		sched.Stop()
		return err
	case sig := <-quit:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("service stopped cleanly")
	return nil
}
