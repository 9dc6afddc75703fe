package api

import (
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/heysubinoy/htkv/internal/server"
	"github.com/heysubinoy/htkv/internal/store"
)

// MetricsHandler returns current store and session metrics as JSON.
// Any of the sources may be nil, in which case its section is omitted.
func MetricsHandler(instrumented *store.InstrumentedStore, mem *store.MemStore, kv *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		response := map[string]interface{}{}

		if instrumented != nil {
			metrics := instrumented.GetMetrics()
			response["operations"] = map[string]uint64{
				"get":          metrics.GetCount,
				"get_hits":     metrics.GetHits,
				"get_misses":   metrics.GetMisses,
				"set":          metrics.SetCount,
				"set_failures": metrics.SetFailures,
			}
			response["avg_latency"] = map[string]string{
				"get": metrics.GetAvgLatency.String(),
				"set": metrics.SetAvgLatency.String(),
			}
		}
		if mem != nil {
			response["table"] = mem.Stats()
		}
		if kv != nil {
			response["sessions"] = kv.Stats()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// ResetMetricsHandler handles POST /metrics/reset, zeroing the operation
// counters. Table and session stats are derived from live state and are not
// affected.
func ResetMetricsHandler(instrumented *store.InstrumentedStore, logger hclog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if instrumented == nil {
			http.Error(w, "Metrics not enabled", http.StatusNotFound)
			return
		}

		instrumented.ResetMetrics()
		logger.Info("operation metrics reset")
		w.WriteHeader(http.StatusNoContent)
	}
}
