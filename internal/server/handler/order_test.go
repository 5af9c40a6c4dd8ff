package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ipredict/engine/internal/domain"
	"github.com/ipredict/engine/internal/engine"
)

// stubTrading records the last MatchMarket call; the other methods exist only
// to satisfy the handler interface.
type stubTrading struct {
	gotMarketID      string
	gotMaxIterations int
}

func (s *stubTrading) PlaceOrder(context.Context, string, string, domain.Side, domain.Outcome, uint64, uint64) (domain.Order, error) {
	return domain.Order{}, nil
}

func (s *stubTrading) CancelOrder(context.Context, string, string, uint64) (domain.Order, error) {
	return domain.Order{}, nil
}

func (s *stubTrading) MatchMarket(_ context.Context, marketID string, maxIterations int) (engine.MatchReport, error) {
	s.gotMarketID = marketID
	s.gotMaxIterations = maxIterations
	return engine.MatchReport{Quiescent: true}, nil
}

func (s *stubTrading) QuickBuy(context.Context, string, string, domain.Outcome, uint64, uint64) (engine.QuickBuyReport, error) {
	return engine.QuickBuyReport{}, nil
}

func (s *stubTrading) Depth(context.Context, string, domain.Outcome) (domain.BookDepth, error) {
	return domain.BookDepth{}, nil
}

func (s *stubTrading) BookRecord(string) (domain.OrderBookRecord, error) {
	return domain.OrderBookRecord{}, nil
}

func (s *stubTrading) ListFillsByMarket(context.Context, string, domain.ListOpts) ([]domain.Fill, error) {
	return nil, nil
}

func matchReq(body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(http.MethodPost, "/api/markets/m-1/match", nil)
	} else {
		r = httptest.NewRequest(http.MethodPost, "/api/markets/m-1/match", strings.NewReader(body))
	}
	r.SetPathValue("id", "m-1")
	return r
}

func TestMatchPassesRequestedIterations(t *testing.T) {
	stub := &stubTrading{}
	h := NewOrderHandler(stub, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Match(rec, matchReq(`{"max_iterations": 7}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.gotMarketID != "m-1" || stub.gotMaxIterations != 7 {
		t.Errorf("MatchMarket(%q, %d), want (m-1, 7)", stub.gotMarketID, stub.gotMaxIterations)
	}
}

func TestMatchEmptyBodyUsesDefaultBudget(t *testing.T) {
	stub := &stubTrading{gotMaxIterations: -1}
	h := NewOrderHandler(stub, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Match(rec, matchReq(""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for empty body", rec.Code)
	}
	if stub.gotMaxIterations != 0 {
		t.Errorf("maxIterations = %d, want 0 to select the configured budget", stub.gotMaxIterations)
	}
}

func TestMatchRejectsNegativeIterations(t *testing.T) {
	stub := &stubTrading{}
	h := NewOrderHandler(stub, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Match(rec, matchReq(`{"max_iterations": -2}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for negative budget", rec.Code)
	}
	if stub.gotMarketID != "" {
		t.Error("service called despite invalid request")
	}
}
