// Package server assembles the HTTP and WebSocket API of the prediction
// market engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ipredict/engine/internal/server/handler"
	"github.com/ipredict/engine/internal/server/middleware"
	"github.com/ipredict/engine/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health     *handler.HealthHandler
	Markets    *handler.MarketHandler
	Orders     *handler.OrderHandler
	Settlement *handler.SettlementHandler
	Positions  *handler.PositionHandler
}

// Server is the HTTP + WebSocket API server for the prediction market engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Platform aggregates.
	mux.HandleFunc("GET /api/platform", handlers.Markets.Platform)

	// Market lifecycle.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/deposit", handlers.Markets.Deposit)

	// Trading.
	mux.HandleFunc("GET /api/markets/{id}/orders", handlers.Orders.ListOrders)
	mux.HandleFunc("POST /api/markets/{id}/orders", handlers.Orders.PlaceOrder)
	mux.HandleFunc("DELETE /api/markets/{id}/orders/{orderID}", handlers.Orders.CancelOrder)
	mux.HandleFunc("POST /api/markets/{id}/match", handlers.Orders.Match)
	mux.HandleFunc("POST /api/markets/{id}/quick-buy", handlers.Orders.QuickBuy)
	mux.HandleFunc("GET /api/markets/{id}/book", handlers.Orders.Depth)
	mux.HandleFunc("GET /api/markets/{id}/fills", handlers.Orders.ListFills)

	// Settlement.
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Settlement.Resolve)
	mux.HandleFunc("POST /api/markets/{id}/claim", handlers.Settlement.Claim)

	// Positions and trade history.
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("GET /api/trades", handlers.Positions.ListTrades)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
