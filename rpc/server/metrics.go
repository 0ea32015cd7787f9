package server

import (
	"errors"
	"github.com/VictoriaMetrics/metrics"
	"net/http"
	"time"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var connections = struct {
	accepted *metrics.Counter
	closed   *metrics.Counter
	rejected *metrics.Counter
	active   *metrics.Counter
}{
	accepted: metrics.GetOrCreateCounter("skv_connections_accepted_total"),
	closed:   metrics.GetOrCreateCounter("skv_connections_closed_total"),
	rejected: metrics.GetOrCreateCounter("skv_connections_rejected_total"),
	active:   metrics.GetOrCreateCounter("skv_connections_active"),
}

var requests = struct {
	get *metrics.Counter
	put *metrics.Counter
	err *metrics.Counter
}{
	get: metrics.GetOrCreateCounter(`skv_requests_total{op="get"}`),
	put: metrics.GetOrCreateCounter(`skv_requests_total{op="put"}`),
	err: metrics.GetOrCreateCounter(`skv_requests_total{op="err"}`),
}

// MetricsHandler serves all metrics in the Prometheus text format
func MetricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}

// startMetricsServer serves MetricsHandler on endpoint at /metrics in the background
func startMetricsServer(endpoint string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())

	srv := &http.Server{
		Addr:              endpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		Logger.Infof("serving metrics on http://%s/metrics", endpoint)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics server failed: %v", err)
		}
	}()

	return srv
}
