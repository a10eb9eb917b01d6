package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Jemiiah/Maniifold/internal/domain"
	"github.com/Jemiiah/Maniifold/internal/service"
)

// MarketHandler serves the market endpoints.
type MarketHandler struct {
	service *service.MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(svc *service.MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{service: svc, logger: logger}
}

// ListMarkets returns all markets, optionally filtered by ?status=.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	status := domain.MarketStatus(r.URL.Query().Get("status"))
	markets, err := h.service.ListMarkets(r.Context(), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

// ListPending returns markets awaiting on-chain creation.
// GET /api/markets/pending
func (h *MarketHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, domain.StatusPending)
}

// ListLocked returns markets awaiting resolution.
// GET /api/markets/locked
func (h *MarketHandler) ListLocked(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, domain.StatusLocked)
}

func (h *MarketHandler) listByStatus(w http.ResponseWriter, r *http.Request, status domain.MarketStatus) {
	markets, err := h.service.ListMarkets(r.Context(), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

// GetMarket returns a single market by its key.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetMarket(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// createRequest is the JSON body for market creation.
type createRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	OptionA     string  `json:"option_a_label"`
	OptionB     string  `json:"option_b_label"`
	MetricType  string  `json:"metric_type"`
	Threshold   float64 `json:"threshold"`
	Deadline    int64   `json:"deadline"`

	// Upsert amends an existing market's deadline, threshold, metric type,
	// and description on an ID collision instead of returning 409.
	Upsert bool `json:"upsert"`
}

// CreateMarket inserts a new draft market for the worker to broadcast.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" || req.Deadline == 0 || req.Threshold == 0 {
		writeError(w, http.StatusBadRequest, "missing required fields: title, deadline, threshold")
		return
	}

	m, err := h.service.CreateMarket(r.Context(), service.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		OptionA:     req.OptionA,
		OptionB:     req.OptionB,
		Deadline:    req.Deadline,
		Threshold:   req.Threshold,
		MetricType:  req.MetricType,
		Upsert:      req.Upsert,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"market_id": m.ID,
		"message":   "market created",
	})
}

// LockMarket manually locks a pending market.
// POST /api/markets/{id}/lock
func (h *MarketHandler) LockMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.ForceLock(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"market_id": id,
		"message":   "market locked",
	})
}

// resolveRequest is the JSON body for manual resolution.
type resolveRequest struct {
	WinningOption int `json:"winning_option"`
}

// ResolveMarket manually resolves a locked market.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.service.ForceResolve(r.Context(), id, req.WinningOption); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"market_id":      id,
		"winning_option": req.WinningOption,
		"message":        "market resolved",
	})
}

// ListMetrics returns the registered metric type names.
// GET /api/metrics
func (h *MarketHandler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": h.service.MetricTypes(),
	})
}
