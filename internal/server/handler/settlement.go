package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ipredict/engine/internal/domain"
	"github.com/ipredict/engine/internal/engine"
)

// SettlementService defines the methods the settlement handler requires from
// the service layer.
type SettlementService interface {
	ResolveMarket(ctx context.Context, authority, marketID string, resolution domain.Resolution) (domain.Market, error)
	ClaimWinnings(ctx context.Context, user, marketID string) (engine.ClaimReport, error)
}

// SettlementHandler serves resolution and redemption endpoints.
type SettlementHandler struct {
	settlement SettlementService
	logger     *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler with the given service and
// logger.
func NewSettlementHandler(settlement SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlement: settlement,
		logger:     logger,
	}
}

type resolveRequest struct {
	Authority  string `json:"authority"`
	Resolution string `json:"resolution"`
}

// Resolve sets the market's terminal outcome. Authority-only, once.
// POST /api/markets/{id}/resolve
func (h *SettlementHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Authority == "" {
		writeError(w, http.StatusBadRequest, "authority is required")
		return
	}

	market, err := h.settlement.ResolveMarket(r.Context(), req.Authority, marketID, domain.Resolution(req.Resolution))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: resolve failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, market)
}

type claimRequest struct {
	User string `json:"user"`
}

// Claim redeems the caller's outcome tokens for collateral after resolution.
// POST /api/markets/{id}/claim
func (h *SettlementHandler) Claim(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	report, err := h.settlement.ClaimWinnings(r.Context(), req.User, marketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
