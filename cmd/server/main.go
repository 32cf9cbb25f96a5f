package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/amity/internal/api"
	"github.com/yourorg/amity/internal/auth"
	"github.com/yourorg/amity/internal/config"
	"github.com/yourorg/amity/internal/kafka"
	"github.com/yourorg/amity/internal/logger"
	"github.com/yourorg/amity/internal/media"
	"github.com/yourorg/amity/internal/metrics"
	"github.com/yourorg/amity/internal/notify"
	"github.com/yourorg/amity/internal/presence"
	"github.com/yourorg/amity/internal/store"
	"github.com/yourorg/amity/internal/sweeper"
	"github.com/yourorg/amity/internal/ws"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	zlog, err := logger.New(cfg.App.Env != "production")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	metrics.Init()

	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		zlog.Fatalw("database open", "error", err)
	}
	if err := store.Migrate(db); err != nil {
		zlog.Fatalw("database migrate", "error", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pres := presence.NewStore(rdb, cfg.Redis.Prefix, 24*time.Hour)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventTopic)
	defer func() { _ = producer.Close() }()

	uploader, err := media.NewS3Store(context.Background(),
		cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Endpoint, cfg.S3.PublicRead)
	if err != nil {
		zlog.Fatalw("s3 init", "error", err)
	}

	hub := ws.NewHub(zlog)
	relay := notify.New(db, hub, producer, zlog)
	st := store.New(db, uploader, relay, cfg, zlog)

	validator := auth.NewValidator(cfg.JWT.Secret)
	dispatcher := ws.NewDispatcher(st, hub, pres, zlog)
	wsSrv := ws.NewServer(hub, dispatcher, validator, pres, cfg, zlog)

	handler := api.NewHandler(st, zlog)
	app := api.NewApp(handler, wsSrv, validator, zlog)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sw := sweeper.New(db, cfg.SweepInterval, zlog)
	go sw.Run(sweepCtx)

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.MetricsPort),
		Handler: metrics.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Errorw("metrics listener", "error", err)
		}
	}()

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		zlog.Infow("starting server", "addr", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		zlog.Fatalw("server error", "error", err)
	case s := <-sig:
		zlog.Infow("shutdown signal received", "signal", s.String())
	}

	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Errorw("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		zlog.Errorw("metrics shutdown", "error", err)
	}
	_ = rdb.Close()
	zlog.Info("shutdown complete")
}
