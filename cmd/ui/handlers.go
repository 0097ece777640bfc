package main

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ratio-jump-trader/internal/models"
	"ratio-jump-trader/internal/store"
	"ratio-jump-trader/internal/supervisor"
)

// APIHandler holds dependencies for the read-only inspection API.
// Grounded on the teacher's APIHandler, rebuilt against the store
// directly instead of reaching into a live engine struct, so the
// dashboard keeps working whether or not a trader process is up.
type APIHandler struct {
	log        *zap.Logger
	store      *store.Store
	traderURLs []string
}

// NewAPIHandler builds an APIHandler.
func NewAPIHandler(log *zap.Logger, s *store.Store, traderURLs []string) *APIHandler {
	return &APIHandler{log: log, store: s, traderURLs: traderURLs}
}

// TraderStatus mirrors one remote trader process's /status response.
type TraderStatus struct {
	UUID      string `json:"uuid"`
	Strategy  string `json:"strategy"`
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	IsHealthy bool   `json:"is_healthy"`
	Error     string `json:"error,omitempty"`
}

// TradersHandler polls every configured trader URL's /health and
// /status and reports back an aggregate view.
func (h *APIHandler) TradersHandler(w http.ResponseWriter, r *http.Request) {
	var statuses []TraderStatus
	client := &http.Client{Timeout: 5 * time.Second}

	for _, url := range h.traderURLs {
		status := TraderStatus{}

		resp, err := client.Get(url + "/health")
		if err != nil || resp.StatusCode != http.StatusOK {
			status.IsHealthy = false
			if err != nil {
				status.Error = err.Error()
			} else {
				status.Error = "unhealthy status code"
			}
			statuses = append(statuses, status)
			continue
		}
		resp.Body.Close()
		status.IsHealthy = true

		resp, err = client.Get(url + "/status")
		if err != nil {
			status.IsHealthy = false
			status.Error = err.Error()
			statuses = append(statuses, status)
			continue
		}
		func() {
			defer resp.Body.Close()
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				status.IsHealthy = false
				status.Error = "failed to decode status"
			}
		}()
		statuses = append(statuses, status)
	}

	h.writeJSON(w, statuses)
}

// TradesHandler returns all recorded trade legs, most recent first.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	var trades []models.Trade
	if err := h.store.DB().Order("created_at desc").Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, trades)
}

// ScoutHistoryHandler returns the most recent scout diagnostic rows.
func (h *APIHandler) ScoutHistoryHandler(w http.ResponseWriter, r *http.Request) {
	var entries []models.ScoutEntry
	if err := h.store.DB().Order("created_at desc").Limit(500).Find(&entries).Error; err != nil {
		h.log.Error("Failed to get scout history from database", zap.Error(err))
		http.Error(w, "Failed to get scout history", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, entries)
}

// ValueHistoryHandler returns the most recent coin value snapshots.
func (h *APIHandler) ValueHistoryHandler(w http.ResponseWriter, r *http.Request) {
	var values []models.CoinValue
	if err := h.store.DB().Order("datetime desc").Limit(500).Find(&values).Error; err != nil {
		h.log.Error("Failed to get value history from database", zap.Error(err))
		http.Error(w, "Failed to get value history", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, values)
}

// ProgressHandler renders the stats.py-style progress table as plain text.
func (h *APIHandler) ProgressHandler(w http.ResponseWriter, r *http.Request) {
	report, err := supervisor.ProgressReport(h.store)
	if err != nil {
		h.log.Error("Failed to build progress report", zap.Error(err))
		http.Error(w, "Failed to build progress report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(report))
}

// HealthHandler reports whether the store is reachable.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := h.store.DB().DB()
	if err != nil || sqlDB.Ping() != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
