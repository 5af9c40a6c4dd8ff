// Package app provides the top-level application lifecycle for the
// prediction market engine. It wires together stores, caches, the matching
// engine and services, then runs the HTTP and WebSocket servers until the
// context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ipredict/engine/internal/config"
	"github.com/ipredict/engine/internal/domain"
	"github.com/ipredict/engine/internal/engine"
	"github.com/ipredict/engine/internal/ledger"
	"github.com/ipredict/engine/internal/notify"
	"github.com/ipredict/engine/internal/server"
	"github.com/ipredict/engine/internal/server/handler"
	"github.com/ipredict/engine/internal/server/ws"
	"github.com/ipredict/engine/internal/service"
)

// shutdownGrace is how long in-flight HTTP requests get to finish.
const shutdownGrace = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, restores persisted
// markets into the engine, starts the servers, and blocks until the context
// is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// The in-memory ledger models custody for a single-process deployment.
	// External custody plugs in behind the same interface.
	platform := domain.NewPlatform(a.cfg.Platform.Authority, a.cfg.Platform.FeeRecipient)
	eng := engine.New(platform, ledger.NewMemory(), domain.SystemClock{}, a.logger)

	lockTTL := time.Duration(a.cfg.Matching.LockTTLSeconds) * time.Second

	marketSvc := service.NewMarketService(
		eng, deps.MarketStore, deps.OrderBookStore, deps.PositionStore,
		deps.MarketCache, deps.LockManager, deps.SignalBus, deps.AuditStore,
		a.logger, lockTTL,
	)
	tradingSvc := service.NewTradingService(
		eng, deps.MarketStore, deps.OrderBookStore, deps.PositionStore, deps.FillStore,
		deps.BookCache, deps.MarketCache, deps.LockManager, deps.SignalBus, deps.AuditStore,
		a.logger, lockTTL, a.cfg.Matching.MaxIterationsPerCall,
	)
	settlementSvc := service.NewSettlementService(
		eng, deps.MarketStore, deps.PositionStore,
		deps.MarketCache, deps.LockManager, deps.SignalBus, deps.AuditStore,
		a.logger, lockTTL,
	)

	if err := marketSvc.Restore(ctx); err != nil {
		return fmt.Errorf("app: restore markets: %w", err)
	}

	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "server disabled, idling until shutdown")
		<-ctx.Done()
		return ctx.Err()
	}

	hub := ws.NewHub(deps.SignalBus, a.logger)

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(deps.Redis),
		Markets:    handler.NewMarketHandler(marketSvc, a.logger),
		Orders:     handler.NewOrderHandler(tradingSvc, a.logger),
		Settlement: handler.NewSettlementHandler(settlementSvc, a.logger),
		Positions:  handler.NewPositionHandler(settlementSvc, tradingSvc, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	if notifier := a.buildNotifier(); notifier != nil {
		g.Go(func() error {
			return notify.Bridge(ctx, deps.SignalBus, notifier, a.logger)
		})
	}
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// buildNotifier assembles the configured notification senders, or returns nil
// when none are configured.
func (a *App) buildNotifier() *notify.Notifier {
	var senders []notify.Sender
	if a.cfg.Notify.TelegramToken != "" && a.cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			a.cfg.Notify.TelegramToken,
			a.cfg.Notify.TelegramChatID,
		))
	}
	if a.cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(a.cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) == 0 {
		return nil
	}
	return notify.NewNotifier(senders, a.cfg.Notify.Events, a.logger)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
