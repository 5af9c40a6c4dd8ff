package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ipredict/engine/internal/domain"
)

// PositionService defines the methods the position handler requires from the
// service layer.
type PositionService interface {
	GetPosition(ctx context.Context, user, marketID string) (domain.UserPosition, error)
	ListPositionsByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.UserPosition, error)
}

// FillService provides per-user fill history.
type FillService interface {
	ListFillsByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.Fill, error)
}

// PositionHandler serves position and trade history endpoints.
type PositionHandler struct {
	positions PositionService
	fills     FillService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given services.
func NewPositionHandler(positions PositionService, fills FillService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		fills:     fills,
		logger:    logger,
	}
}

// ListPositions returns a user's positions, or one position when market is
// given.
// GET /api/positions?user=alice&market={id}
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user := q.Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	if marketID := q.Get("market"); marketID != "" {
		pos, err := h.positions.GetPosition(r.Context(), user, marketID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pos)
		return
	}

	opts := parseListOpts(r)
	positions, err := h.positions.ListPositionsByUser(r.Context(), user, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"positions": positions,
		"limit":     opts.Limit,
		"offset":    opts.Offset,
	})
}

// ListTrades returns fills where the user was buyer or seller.
// GET /api/trades?user=alice
func (h *PositionHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	opts := parseListOpts(r)
	fills, err := h.fills.ListFillsByUser(r.Context(), user, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fills":  fills,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
