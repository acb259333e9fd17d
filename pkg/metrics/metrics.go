// Package metrics provides the Prometheus registry used by the catalog client.
// All metrics are defined in their respective packages (client, fetcher,
// ratelimit) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and the HTTP exposition handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the catalog client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back everything registered on Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - catalog_requests_total{action, status} (Counter): Total requests by action and HTTP status
//   - catalog_request_duration_seconds{action} (Histogram): Request duration by action
//   - catalog_errors_total{class} (Counter): Errors by class (network, status, decode, request, timeout, partial)
//
// Fetch Metrics (pkg/fetcher):
//   - catalog_fetches_total{mode, outcome} (Counter): Fetch pipelines by mode (list, filter) and outcome
//   - catalog_fetch_duration_seconds{mode} (Histogram): Pipeline duration by mode
//   - catalog_duplicate_ids_total (Counter): Duplicate identifiers dropped before detail hydration
//   - catalog_stale_fetches_total (Counter): Session fetches discarded by a newer fetch
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_throttles_total (Counter): Waits caused by a full shared window
//   - catalog_rate_limit_fallbacks_total (Counter): Shared window unavailable, local pacing only
//   - catalog_rate_limit_window_requests (Gauge): Requests counted in the current shared window
//
// Example Prometheus Queries:
//
//   # Upstream Error Rate
//   sum(rate(catalog_errors_total[5m])) by (class)
//
//   # Duplicate Identifier Rate
//   rate(catalog_duplicate_ids_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
//
//   # Failed Fetch Ratio
//   sum(rate(catalog_fetches_total{outcome!="success"}[5m])) / sum(rate(catalog_fetches_total[5m]))
