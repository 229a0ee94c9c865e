// Package observability wires the Prometheus registry and the optional
// metrics HTTP endpoint.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beehub/bmar-go/internal/observability/metrics"
)

// Metrics holds the registry and the per-package metric recorders.
type Metrics struct {
	registry *prometheus.Registry
	MyAudio  *metrics.MyAudioMetrics
}

// NewMetrics creates a registry with Go runtime collectors and the capture
// engine metrics registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	myaudio, err := metrics.NewMyAudioMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register myaudio metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		MyAudio:  myaudio,
	}, nil
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve exposes /metrics on the given address. It blocks until the server
// fails, so callers run it in a goroutine.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}
