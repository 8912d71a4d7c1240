package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess       = "success"
	OutcomeProviderError = "provider_error"
	OutcomeFailure       = "failure"
	OutcomeIgnored       = "ignored"
)

// Metrics holds all Prometheus metrics for the BFF.
type Metrics struct {
	registry *prometheus.Registry

	GatewayCalls  *prometheus.CounterVec
	TokenParses   *prometheus.CounterVec
	ActivePages   prometheus.Gauge
	SessionsSwept prometheus.Counter
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pressgate_gateway_calls_total",
			Help: "Credential gateway calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		TokenParses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pressgate_token_parses_total",
			Help: "Redirect fragment parses by outcome",
		}, []string{"outcome"}),
		ActivePages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pressgate_active_pages",
			Help: "Pages currently held in memory",
		}),
		SessionsSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "pressgate_delegated_sessions_swept_total",
			Help: "Expired delegated sessions removed by the janitor",
		}),
	}
}

// ObserveGatewayCall records the outcome of one credential gateway call.
func (m *Metrics) ObserveGatewayCall(operation, outcome string) {
	if m == nil {
		return
	}
	m.GatewayCalls.WithLabelValues(operation, outcome).Inc()
}

// ObserveTokenParse records the outcome of one fragment parse.
func (m *Metrics) ObserveTokenParse(outcome string) {
	if m == nil {
		return
	}
	m.TokenParses.WithLabelValues(outcome).Inc()
}

// SetActivePages reports the size of the page registry.
func (m *Metrics) SetActivePages(n int) {
	if m == nil {
		return
	}
	m.ActivePages.Set(float64(n))
}

// AddSessionsSwept counts expired delegated sessions removed in one sweep.
func (m *Metrics) AddSessionsSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsSwept.Add(float64(n))
}

// RegisterDB exports connection pool statistics for db under the given name.
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	if m == nil {
		return nil
	}
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
