package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"veriledger/internal/audit"
	"veriledger/internal/jwttoken"
	"veriledger/internal/platform/config"
	"veriledger/internal/platform/httpserver"
	"veriledger/internal/platform/logger"
	"veriledger/internal/platform/metrics"
	"veriledger/internal/platform/middleware"
	"veriledger/internal/platform/postgres"
	platformredis "veriledger/internal/platform/redis"
	"veriledger/internal/reconcile"
	"veriledger/internal/reconcile/handler"
	"veriledger/internal/record"
	"veriledger/internal/registry"
)

// main wires dependencies and owns the process lifecycle. Stores and clients
// fall back to in-memory implementations when their URLs are unset, so the
// server runs dependency-free in development.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var store record.Store
	if db != nil {
		store = record.NewPostgresStore(db)
	} else {
		store = record.NewInMemoryStore()
		log.Warn("POSTGRES_URL not set, using in-memory record store")
	}

	var ledger registry.Client
	if redisClient != nil {
		ledger = registry.NewRedisClient(redisClient.Client)
	} else {
		ledger = registry.NewInMemoryClient()
		log.Warn("REDIS_URL not set, using in-memory ledger client")
	}

	var auditSinks []audit.Sink
	if db != nil {
		auditSinks = append(auditSinks, audit.NewPostgresStore(db))
	} else {
		auditSinks = append(auditSinks, audit.NewInMemoryStore())
	}
	kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
	if err != nil {
		log.Error("kafka connection failed", "error", err)
		os.Exit(1)
	}
	if kafkaSink != nil {
		defer kafkaSink.Close()
		auditSinks = append(auditSinks, kafkaSink)
	}
	auditor := audit.NewPublisher(log, auditSinks...)

	m := metrics.New()
	svc := reconcile.NewService(store, ledger, auditor, m, log, reconcile.Config{
		LedgerTimeout:    cfg.LedgerTimeout,
		LedgerMaxRetries: cfg.LedgerMaxRetries,
	})
	sweeper := reconcile.NewSweeper(svc, cfg.RepairInterval, log)
	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "veriledger")

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.Latency(m))
		r.Use(middleware.RequireAuth(jwtService, log))
		handler.New(svc, log).RegisterRoutes(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting veriledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return sweeper.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
