package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/events"
	"github.com/MrKriegler/go-brokerage/internal/files"
	transporthttp "github.com/MrKriegler/go-brokerage/internal/http"
	"github.com/MrKriegler/go-brokerage/internal/http/handlers"
	"github.com/MrKriegler/go-brokerage/internal/http/health"
	"github.com/MrKriegler/go-brokerage/internal/jobs"
	"github.com/MrKriegler/go-brokerage/internal/middleware"
	"github.com/MrKriegler/go-brokerage/internal/platform/auth"
	"github.com/MrKriegler/go-brokerage/internal/platform/config"
	"github.com/MrKriegler/go-brokerage/internal/platform/logging"
	"github.com/MrKriegler/go-brokerage/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel)
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info("starting go-brokerage API", "addr", addr, "env", cfg.Env, "db", cfg.DBType)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Storage ----
	backend, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(context.Background()); err != nil {
			log.Warn("store close failed", "err", err)
		}
	}()
	repos := backend.Repos
	checks := []health.Check{{Name: "database", Pinger: health.PingFunc(backend.Ping)}}

	// ---- Document storage ----
	var docs core.FileStore = files.Disabled{}
	if cfg.S3Bucket != "" {
		s3, err := files.NewS3Store(ctx, files.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
			Prefix:          "proofs/",
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			log.Error("failed to set up document storage", "err", err)
			os.Exit(1)
		}
		docs = s3
		log.Info("document storage enabled", "bucket", cfg.S3Bucket)
	} else {
		log.Warn("S3_BUCKET not set, proof uploads are disabled")
	}

	// ---- Activity events ----
	var publisher core.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("failed to set up kafka publisher", "err", err)
			os.Exit(1)
		}
		defer kp.Close()
		publisher = kp
		log.Info("publishing activity events", "topic", cfg.KafkaTopic)
	}
	activity := core.NewActivityRecorder(repos.Activity, publisher, log)

	// ---- Services ----
	products := core.NewProductService(repos)
	quotes := core.NewQuoteService(repos)
	clients := core.NewClientService(repos, activity)
	brokers := core.NewBrokerService(repos)
	offers := core.NewOfferService(repos, activity)
	policies := core.NewPolicyService(repos, docs, activity, core.WithLogger(log))
	commissions := core.NewCommissionService(repos, activity)
	timeline := core.NewActivityService(repos)

	// ---- Security ----
	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	if err != nil {
		log.Error("invalid jwt settings", "err", err)
		os.Exit(1)
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPM)
	go limiter.Run(ctx)

	deps := transporthttp.Deps{
		Log: log,
		Mounts: []handlers.Mountable{
			handlers.NewProductHandler(products, log),
			handlers.NewQuoteHandler(quotes, log),
			handlers.NewClientHandler(clients, log),
			handlers.NewBrokerHandler(brokers, log),
			handlers.NewOfferHandler(offers, log),
			handlers.NewPolicyHandler(policies, log),
			handlers.NewCommissionHandler(commissions, log),
			handlers.NewActivityHandler(timeline, log),
		},
		Tokens:         signer,
		Limiter:        limiter,
		IdempotencyTTL: time.Duration(cfg.IdempotencyTTLSec) * time.Second,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: time.Duration(cfg.HTTPRequestTimeoutSec) * time.Second,
	}

	// ---- Idempotency keys ----
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		deps.Redis = rdb
		checks = append(checks, health.Check{Name: "redis", Pinger: health.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})})
		log.Info("idempotency keys enabled", "redis", cfg.RedisAddr)
	}
	deps.Health = health.New(log, time.Duration(cfg.DBOpTimeoutMs)*time.Millisecond, checks...)

	// ---- Background sweep ----
	var workers jobs.Group
	if cfg.ExpirySweepEnabled {
		sweep := jobs.NewExpiryWorker(repos, time.Duration(cfg.ExpirySweepIntervalSec)*time.Second, log)
		workers.Go(ctx, sweep)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           transporthttp.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "err", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	workers.Wait()
	log.Info("server stopped")
}
