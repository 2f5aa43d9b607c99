package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/live"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"
	"fintrack/internal/telemetry"
)

const (
	summaryCacheSize = 256
	summaryCacheTTL  = 10 * time.Minute
	shutdownTimeout  = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	log.SetDefault(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	repo, err := cli.InitRepository(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Without a broker the web app still works; the worker's reconcile
	// loop picks up whatever was not announced.
	var publisher services.ChangePublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP, ledger export disabled", "error", err)
		} else {
			publisher = client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange)
		}
	}

	hub := live.NewHub()
	svc := services.NewTransactionService(repo, hub, publisher)

	summaries := cache.NewLRUCache[core.Summary](summaryCacheSize, summaryCacheTTL)
	unregister := svc.UseSummaryCache(summaries)
	defer unregister()
	caches := cache.NewManager()
	caches.Register(summaries)
	caches.StartCleanup(time.Minute)

	sessions, err := auth.NewManager(cli.SessionSecret(cfg, logger), cfg.SessionTTL)
	if err != nil {
		logger.Error("Failed to initialize sessions", "error", err)
		os.Exit(1)
	}

	rl := ratelimit.DefaultConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.Burst = cfg.RateLimitBurst

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Service:            svc,
		Sessions:           sessions,
		Authenticator:      auth.NewStaticAuthenticator(cfg.AuthUsername, cfg.AuthPasswordHash, cfg.DevMode),
		Logger:             logger,
		RateLimit:          rl,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies:     cfg.TrustedProxies,
		SummaryCache:       summaries,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rdb.AddHook(redisotel.NewTracingHook())
		bridge := live.NewRedisBridge(rdb, hub, cfg.RedisChannel)
		g.Go(func() error {
			// Losing the bridge only affects other instances; keep serving.
			if err := bridge.Run(gctx); err != nil && gctx.Err() == nil {
				logger.Error("Redis change bridge stopped", "error", err, "addr", cfg.RedisAddr)
			}
			return nil
		})
		logger.Info("Relaying changes through redis", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	}

	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend, "dev_mode", cfg.DevMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return cli.GracefulShutdown(logger, shutdownTimeout,
			srv.Shutdown,
			func(context.Context) error { caches.Stop(); return nil },
			func(context.Context) error {
				if rdb == nil {
					return nil
				}
				return rdb.Close()
			},
			func(context.Context) error { return svc.Close() },
			func(ctx context.Context) error { return shutdownTracing(ctx) },
		)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
