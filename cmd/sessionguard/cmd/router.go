package cmd

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/sessionguard/metrics/export/prometheus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type otelPoint struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

func newRouter(rt *runtime, prom *prometheus.Exporter, reader *sdkmetric.ManualReader) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", prom.Handler())

	r.Get("/metrics/otel", func(w http.ResponseWriter, r *http.Request) {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(r.Context(), &rm); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, flattenOtel(rm))
	})

	r.Get("/session", func(w http.ResponseWriter, r *http.Request) {
		sess, err := rt.guard.CheckSession(r.Context())
		report := buildStatus(sess, err)
		status := http.StatusOK
		if err != nil {
			status = http.StatusBadGateway
		}
		state := rt.guard.CheckState()
		writeJSON(w, status, map[string]any{
			"status": report,
			"check": map[string]any{
				"in_progress": state.InProgress,
				"retry_count": state.RetryCount,
				"max_retries": state.MaxRetries,
			},
			"location": rt.navigator.Location(),
		})
	})
	return r
}

// flattenOtel reduces collected int64 sums and gauges to name/value pairs.
func flattenOtel(rm metricdata.ResourceMetrics) []otelPoint {
	var points []otelPoint
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					points = append(points, otelPoint{Name: m.Name, Value: dp.Value})
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					points = append(points, otelPoint{Name: m.Name, Value: dp.Value})
				}
			}
		}
	}
	return points
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
