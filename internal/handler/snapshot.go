package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/web3-frozen/yield-monitor/internal/monitor"
)

// Snapshot returns the result of the most recent run.
func Snapshot(engine *monitor.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := engine.LastResult()
		if res == nil {
			http.Error(w, `{"error":"no data available yet"}`, http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			*monitor.Result
			Threshold float64 `json:"threshold"`
		}{res, engine.Threshold()})
	}
}

// Pool returns one pool from the most recent selection.
func Pool(engine *monitor.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res := engine.LastResult()
		if res == nil {
			http.Error(w, `{"error":"no data available yet"}`, http.StatusServiceUnavailable)
			return
		}
		p, ok := res.Selected[id]
		if !ok {
			http.Error(w, `{"error":"pool not selected"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
	}
}
