package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/helpdesk-labs/ticket-portal/internal/api/http"
	"github.com/helpdesk-labs/ticket-portal/internal/api/http/handlers"
	"github.com/helpdesk-labs/ticket-portal/internal/auth"
	"github.com/helpdesk-labs/ticket-portal/internal/bootstrap"
	"github.com/helpdesk-labs/ticket-portal/internal/cache"
	"github.com/helpdesk-labs/ticket-portal/internal/config"
	"github.com/helpdesk-labs/ticket-portal/internal/events"
	"github.com/helpdesk-labs/ticket-portal/internal/observability"
	"github.com/helpdesk-labs/ticket-portal/internal/persistence"
	"github.com/helpdesk-labs/ticket-portal/internal/service"
	"github.com/helpdesk-labs/ticket-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var ticketCache cache.TicketCache
	readiness := map[string]handlers.Pinger{"store": store}
	if redis != nil {
		ticketCache = cache.NewRedisTicketCache(redis.Client, cfg.Redis.CacheTTL(), logger)
		readiness["redis"] = redis
	}

	dispatcher := events.NewInMemoryDispatcher(func(event events.Event, err error) {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	})

	var publisher *events.AMQPPublisher
	if cfg.Events.AMQPURL != "" {
		publisher, err = events.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			logger.Warn("amqp unavailable; events stay in-process", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}
	worker.StartNotificationWorker(dispatcher, service.NewNotificationService(dispatcher, logger), publisher)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, store.Accounts(), tokens)
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Cache:      ticketCache,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App, httptransport.MiddlewareConfig{
		Logger:  logger,
		Metrics: metrics,
		Timeout: cfg.App.RequestTimeout(),
		CORS:    cfg.CORS,
	}, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, readiness),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Accounts()),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
