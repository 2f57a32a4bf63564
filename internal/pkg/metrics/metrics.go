package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for oracle checks.
const (
	OutcomeEligible   = "eligible"
	OutcomeIneligible = "ineligible"
	OutcomeUnknown    = "unknown"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	oracleChecks    *prometheus.CounterVec
	votesCast       *prometheus.CounterVec
	voteRejections  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		oracleChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_checks_total",
				Help: "NFT ownership checks by data source and outcome",
			},
			[]string{"source", "outcome"},
		),
		votesCast: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "votes_cast_total",
				Help: "accepted votes by option",
			},
			[]string{"option"},
		),
		voteRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vote_rejections_total",
				Help: "rejected vote attempts by reason",
			},
			[]string{"reason"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (m *Metrics) OracleCheck(source, outcome string) {
	if m == nil {
		return
	}
	m.oracleChecks.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) VoteCast(option string) {
	if m == nil {
		return
	}
	m.votesCast.WithLabelValues(option).Inc()
}

func (m *Metrics) VoteRejected(reason string) {
	if m == nil {
		return
	}
	m.voteRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
