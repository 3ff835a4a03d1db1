package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/pattern-scanner/internal/scanner"
	"github.com/mohamedkhairy/pattern-scanner/internal/storage"
	"github.com/mohamedkhairy/pattern-scanner/pkg/logger"
)

// Handler serves the operational endpoints: health, engine stats,
// recent signals and Prometheus metrics.
type Handler struct {
	engine *scanner.Engine
	store  storage.SignalStore
}

// NewHandler creates a handler. The store may be nil when persistence
// is disabled; the signals endpoint then returns 404.
func NewHandler(engine *scanner.Engine, store storage.SignalStore) *Handler {
	return &Handler{engine: engine, store: store}
}

// Router builds the mux router with all routes registered
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stats", h.Stats).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/signals/{symbol}", h.SignalsBySymbol).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Stats handles GET /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Stats())
}

// SignalsBySymbol handles GET /api/v1/signals/{symbol}?limit=N
func (h *Handler) SignalsBySymbol(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondWithError(w, http.StatusNotFound, "Signal store not configured")
		return
	}

	symbol := mux.Vars(r)["symbol"]
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	signals, err := h.store.GetSignalsBySymbol(r.Context(), symbol, limit)
	if err != nil {
		logger.Error("Failed to load signals",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve signals")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"signals": signals,
		"count":   len(signals),
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", logger.ErrorField(err))
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
