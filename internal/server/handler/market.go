package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ipredict/engine/internal/domain"
	"github.com/ipredict/engine/internal/engine"
)

// MarketService defines the methods the market handler requires from the
// service layer.
type MarketService interface {
	CreateMarket(ctx context.Context, creator string, p engine.CreateMarketParams) (domain.Market, error)
	DepositAndMint(ctx context.Context, user, marketID string, amount uint64) (uint64, domain.UserPosition, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	ListMarkets(ctx context.Context, activeOnly bool, opts domain.ListOpts) ([]domain.Market, error)
	Platform() domain.Platform
}

// MarketHandler serves market lifecycle endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

type createMarketRequest struct {
	Creator        string `json:"creator"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	OpeningTime    int64  `json:"opening_time"`
	ClosingTime    int64  `json:"closing_time"`
	ResolutionTime int64  `json:"resolution_time"`
}

// CreateMarket registers a new binary market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Creator == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "creator and name are required")
		return
	}

	market, err := h.markets.CreateMarket(r.Context(), req.Creator, engine.CreateMarketParams{
		Name:           req.Name,
		Description:    req.Description,
		OpeningTime:    req.OpeningTime,
		ClosingTime:    req.ClosingTime,
		ResolutionTime: req.ResolutionTime,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create market failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, market)
}

// ListMarkets returns markets with pagination. ?active=true filters to
// markets currently accepting orders.
// GET /api/markets?active=true&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	activeOnly := r.URL.Query().Get("active") == "true"

	markets, err := h.markets.ListMarkets(r.Context(), activeOnly, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"markets": markets,
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, market)
}

type depositRequest struct {
	User   string `json:"user"`
	Amount uint64 `json:"amount"`
}

// Deposit moves collateral into the market vault and mints the complementary
// YES/NO token pair.
// POST /api/markets/{id}/deposit
func (h *MarketHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User == "" || req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "user and amount are required")
		return
	}

	tokens, pos, err := h.markets.DepositAndMint(r.Context(), req.User, id, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tokens_minted": tokens,
		"position":      pos,
	})
}

// Platform returns the platform record and lifetime aggregates.
// GET /api/platform
func (h *MarketHandler) Platform(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.markets.Platform())
}
