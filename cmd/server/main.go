// Server entrypoint. main wires configuration, stores, services, and the two
// HTTP listeners (API and metrics); business logic lives under internal/.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"arkhiv/internal/access"
	accesshandler "arkhiv/internal/access/handler"
	accessmetrics "arkhiv/internal/access/metrics"
	"arkhiv/internal/audit"
	auditkafka "arkhiv/internal/audit/kafka"
	auditmemory "arkhiv/internal/audit/store/memory"
	"arkhiv/internal/filestore"
	"arkhiv/internal/identity"
	"arkhiv/internal/platform/config"
	"arkhiv/internal/platform/httpserver"
	"arkhiv/internal/platform/logger"
	platformmetrics "arkhiv/internal/platform/metrics"
	"arkhiv/internal/platform/middleware"
	platformredis "arkhiv/internal/platform/redis"
	"arkhiv/internal/ratelimit"
	recordservice "arkhiv/internal/record/service"
	recordstore "arkhiv/internal/record/store"
	requesthandler "arkhiv/internal/request/handler"
	requestmetrics "arkhiv/internal/request/metrics"
	requestservice "arkhiv/internal/request/service"
	requeststore "arkhiv/internal/request/store"
)

const auditInboxSize = 256

func main() {
	log := logger.New()
	slog.SetDefault(log)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when a DSN is configured, in-memory otherwise.
	var (
		requests requestservice.RequestStore
		records  recordservice.RecordStore
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		requests = requeststore.NewPostgres(db)
		records = recordstore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		requests = requeststore.NewInMemory()
		records = recordstore.NewInMemory()
		log.Warn("no postgres DSN configured, using in-memory stores")
	}

	// Audit register: kafka sink when brokers are configured, in-memory
	// otherwise. Either way events flow through the async inbox so emitters
	// never block on the sink.
	var auditStore audit.Store
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()
		auditStore = sink
		log.Info("audit events flowing to kafka", "topic", cfg.Kafka.Topic)
	} else {
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("no kafka brokers configured, audit events kept in memory")
	}
	auditInbox := make(chan audit.Event, auditInboxSize)
	auditor := audit.NewAsyncPublisher(auditInbox, log)
	auditWorker := audit.NewWorker(auditStore, auditInbox, log)

	// Rate limit store: redis when configured so the limit holds across
	// replicas, in-memory otherwise.
	var limits ratelimit.Store = ratelimit.NewInMemoryStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		limits = ratelimit.NewRedisStore(redisClient.Client)
		log.Info("rate limits backed by redis")
	}

	httpMetrics := platformmetrics.New()
	validator := identity.NewJWTValidator(cfg.JWTSigningKey)

	recordSvc := recordservice.New(records)
	requestSvc := requestservice.New(requests,
		requestservice.WithLogger(log),
		requestservice.WithMetrics(requestmetrics.New()),
		requestservice.WithAuditPublisher(auditor),
	)
	gateSvc := access.NewService(recordSvc, requestSvc,
		access.WithLogger(log),
		access.WithMetrics(accessmetrics.New()),
		access.WithAuditPublisher(auditor),
	)

	requestHandler := requesthandler.New(requestSvc, recordSvc, validator, log)
	downloadHandler := accesshandler.New(gateSvc, filestore.NewDisk(cfg.UploadsDir), validator, log,
		accesshandler.WithRateLimiter(
			ratelimit.Middleware(limits, cfg.DownloadRateLimit, cfg.DownloadRateWindow, log),
		),
	)

	router := chi.NewRouter()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.RequestTime,
		middleware.Metadata,
		middleware.Logger(log),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.ContentTypeJSON,
		middleware.Latency(httpMetrics),
	)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	requestHandler.Register(router)
	downloadHandler.Register(router)

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	apiServer := httpserver.New(cfg.Addr, router)
	metricsServer := httpserver.New(cfg.MetricsAddr, metricsRouter)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api server listening", "addr", cfg.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return metricsServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
