package handler

import (
	"context"
	"net/http"

	"github.com/web3-frozen/yield-monitor/internal/monitor"
)

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// Pinger is a backing store that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ready reports ready once the engine has finished at least one run and
// every dependency answers a ping.
func Ready(engine *monitor.Engine, deps ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if engine.LastResult() == nil {
			http.Error(w, `{"status":"not ready"}`, http.StatusServiceUnavailable)
			return
		}
		for _, d := range deps {
			if err := d.Ping(r.Context()); err != nil {
				http.Error(w, `{"status":"not ready"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
