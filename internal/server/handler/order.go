package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ipredict/engine/internal/domain"
	"github.com/ipredict/engine/internal/engine"
)

// TradingService defines the methods the order handler requires from the
// service layer.
type TradingService interface {
	PlaceOrder(ctx context.Context, user, marketID string, side domain.Side, outcome domain.Outcome, price, quantity uint64) (domain.Order, error)
	CancelOrder(ctx context.Context, user, marketID string, orderID uint64) (domain.Order, error)
	MatchMarket(ctx context.Context, marketID string, maxIterations int) (engine.MatchReport, error)
	QuickBuy(ctx context.Context, user, marketID string, outcome domain.Outcome, budget, minTokensOut uint64) (engine.QuickBuyReport, error)
	Depth(ctx context.Context, marketID string, outcome domain.Outcome) (domain.BookDepth, error)
	BookRecord(marketID string) (domain.OrderBookRecord, error)
	ListFillsByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Fill, error)
}

// OrderHandler serves trading endpoints.
type OrderHandler struct {
	trading TradingService
	logger  *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(trading TradingService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		trading: trading,
		logger:  logger,
	}
}

type placeOrderRequest struct {
	User     string `json:"user"`
	Side     string `json:"side"`
	Outcome  string `json:"outcome"`
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
}

// PlaceOrder rests a limit order on the market's book.
// POST /api/markets/{id}/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}
	side := domain.Side(req.Side)
	if side != domain.SideBuy && side != domain.SideSell {
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}

	order, err := h.trading.PlaceOrder(r.Context(), req.User, marketID, side, domain.Outcome(req.Outcome), req.Price, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

type cancelOrderRequest struct {
	User string `json:"user"`
}

// CancelOrder removes a resting order, releasing any sell-side escrow.
// DELETE /api/markets/{id}/orders/{orderID}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	orderID, err := strconv.ParseUint(pathParam(r, "orderID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req cancelOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	order, err := h.trading.CancelOrder(r.Context(), req.User, marketID, orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

type matchRequest struct {
	MaxIterations int `json:"max_iterations"`
}

// Match runs one bounded matching invocation on the market. An optional
// max_iterations in the body lowers the fill budget for this invocation; the
// service clamps it to the configured cap. The response reports whether the
// book is quiescent; callers re-invoke until it is.
// POST /api/markets/{id}/match
func (h *OrderHandler) Match(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req matchRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxIterations < 0 {
		writeError(w, http.StatusBadRequest, "max_iterations must not be negative")
		return
	}

	report, err := h.trading.MatchMarket(r.Context(), marketID, req.MaxIterations)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: match failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

type quickBuyRequest struct {
	User         string `json:"user"`
	Outcome      string `json:"outcome"`
	Budget       uint64 `json:"budget"`
	MinTokensOut uint64 `json:"min_tokens_out"`
}

// QuickBuy sweeps the cheapest resting sells of one outcome up to a budget.
// POST /api/markets/{id}/quick-buy
func (h *OrderHandler) QuickBuy(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	var req quickBuyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User == "" || req.Budget == 0 {
		writeError(w, http.StatusBadRequest, "user and budget are required")
		return
	}

	report, err := h.trading.QuickBuy(r.Context(), req.User, marketID, domain.Outcome(req.Outcome), req.Budget, req.MinTokensOut)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Depth returns the aggregated book depth for one outcome.
// GET /api/markets/{id}/book?outcome=yes
func (h *OrderHandler) Depth(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	outcome := domain.Outcome(r.URL.Query().Get("outcome"))

	depth, err := h.trading.Depth(r.Context(), marketID, outcome)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, depth)
}

// ListOrders returns the whole book record, all four resting queues.
// GET /api/markets/{id}/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	rec, err := h.trading.BookRecord(marketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListFills returns executed fills in the market, newest first.
// GET /api/markets/{id}/fills
func (h *OrderHandler) ListFills(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	opts := parseListOpts(r)

	fills, err := h.trading.ListFillsByMarket(r.Context(), marketID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list fills failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list fills")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fills":  fills,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
