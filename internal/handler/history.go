package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/web3-frozen/yield-monitor/internal/monitor"
)

// HistoryReader reads recorded APY rows for a pool.
type HistoryReader interface {
	History(ctx context.Context, poolID string, limit int) ([]monitor.LogEntry, error)
}

func History(s HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.Error(w, `{"error":"pool id required"}`, http.StatusBadRequest)
			return
		}

		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			l, err := strconv.Atoi(v)
			if err != nil || l <= 0 || l > 1000 {
				http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
				return
			}
			limit = l
		}

		entries, err := s.History(r.Context(), id, limit)
		if err != nil {
			http.Error(w, `{"error":"failed to read history"}`, http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []monitor.LogEntry{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entries)
	}
}
