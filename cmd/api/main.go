// Package main is the entry point for the reactor: the HTTP API plus the
// event consumers.
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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/snowparadise/reactor/internal/config"
	"github.com/snowparadise/reactor/internal/counter"
	"github.com/snowparadise/reactor/internal/events"
	"github.com/snowparadise/reactor/internal/handler"
	"github.com/snowparadise/reactor/internal/model"
	natsclient "github.com/snowparadise/reactor/internal/nats"
	"github.com/snowparadise/reactor/internal/notify"
	"github.com/snowparadise/reactor/internal/push"
	"github.com/snowparadise/reactor/internal/ratelimit"
	"github.com/snowparadise/reactor/internal/service"
	"github.com/snowparadise/reactor/internal/store"
	"github.com/snowparadise/reactor/internal/store/memory"
	"github.com/snowparadise/reactor/internal/store/postgres"
	redisstore "github.com/snowparadise/reactor/internal/store/redis"
	"github.com/snowparadise/reactor/internal/unread"
	"github.com/snowparadise/reactor/pkg/logger"
	"github.com/snowparadise/reactor/pkg/tracing"
)

// backend is everything the reactor needs from the document store.
type backend interface {
	notify.Directory
	store.Transactor
	store.WindowStore
	service.KeywordStore
	service.ReportStore
	service.AdminStore
	handler.Pinger
}

// windowPurger is implemented by backends that keep expired windows around.
type windowPurger interface {
	PurgeExpiredWindows(ctx context.Context, now time.Time) (int64, error)
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("reactor stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("reactor stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info("starting reactor",
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("rate_limit_backend", cfg.RateLimitBackend),
	)

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "marketplace-reactor", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	docs, closeDocs, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDocs()

	checks := map[string]handler.Pinger{"store": docs}

	var windows store.WindowStore = docs
	if cfg.RateLimitBackend == "redis" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		windows = rdb
		checks["redis"] = rdb
	}

	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		Name:     cfg.EventConsumerPrefix,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		return err
	}
	defer natsClient.Close()
	checks["nats"] = natsClient

	streamManager := natsclient.NewStreamManager(natsClient)
	if _, err := streamManager.EnsureStream(ctx); err != nil {
		return err
	}

	// Event side
	mutator := counter.NewMutator(docs, log)
	dispatcher := notify.NewDispatcher(docs, push.NewClient(push.Config{
		BaseURL: cfg.PushGatewayURL,
		APIKey:  cfg.PushGatewayAPIKey,
		Timeout: cfg.PushGatewayTimeout,
	}), notify.PrometheusTelemetry{}, notify.Config{
		Hints: model.PlatformHints{Priority: "high", ChannelID: cfg.PushChannelID, Sound: "default"},
		Texts: notify.TextsFor(cfg.NotifyLocale),
	}, log)

	router := events.NewRouter(log)
	(&events.Handlers{
		Counters: mutator,
		Unread:   unread.NewReconciler(mutator),
		Notifier: dispatcher,
		Logger:   log.Named("handlers"),
	}).Register(router)

	consumer := events.NewConsumer(router, streamManager, events.ConsumerOptions{
		DurablePrefix: cfg.EventConsumerPrefix,
		MaxInFlight:   int64(cfg.EventMaxInFlight),
		MaxDeliver:    cfg.EventMaxDeliver,
		AckWait:       cfg.EventAckWait,
	}, log)

	// Request side
	keywordPolicy := ratelimit.Policy{Action: "searchKeyword", Window: cfg.KeywordRateWindow, Max: cfg.KeywordRateMax}
	reportPolicy := ratelimit.Policy{Action: "createReport", Window: cfg.ReportRateWindow, Max: cfg.ReportRateMax}
	for _, p := range []ratelimit.Policy{keywordPolicy, reportPolicy} {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	limiter := ratelimit.New(windows)

	server := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: handler.NewRouter(handler.RouterConfig{
			JWTSecret:         cfg.JWTSecret,
			AllowedOrigins:    cfg.CORSAllowedOrigins,
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
			Health:            handler.NewHealthHandler(checks),
			Keywords:          handler.NewKeywordHandler(service.NewKeywordService(docs, limiter, keywordPolicy, log), log),
			Reports:           handler.NewReportHandler(service.NewReportService(docs, limiter, reportPolicy, log), log),
			Admin:             handler.NewAdminHandler(service.NewAdminService(docs, cfg.AdminPasswordHash, log), log),
			Logger:            log.Named("http"),
		}),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return consumer.Run(gctx)
	})

	if purger, ok := windows.(windowPurger); ok && cfg.WindowPurgeInterval > 0 {
		g.Go(func() error {
			purgeWindows(gctx, purger, cfg.WindowPurgeInterval, log)
			return nil
		})
	}

	return g.Wait()
}

func openBackend(ctx context.Context, cfg *config.Config) (backend, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func purgeWindows(ctx context.Context, purger windowPurger, every time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := purger.PurgeExpiredWindows(ctx, now)
			if err != nil {
				log.Warn("failed to purge rate windows", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("purged rate windows", zap.Int64("count", n))
			}
		}
	}
}
