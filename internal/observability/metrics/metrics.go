// Package metrics exposes Prometheus collectors for the bot.
//
// Label values are drawn from small fixed sets (submission kind, decision
// action, delivery result, route name) so cardinality stays bounded.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestbot_submissions_total",
			Help: "Submissions received, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestbot_moderation_decisions_total",
			Help: "Moderation callbacks, by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestbot_broadcast_deliveries_total",
			Help: "Broadcast recipients, by result.",
		},
		[]string{"result"},
	)

	droppedUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "suggestbot_updates_dropped_total",
			Help: "Inbound updates dropped because the dispatcher queue was full.",
		},
	)

	handlerLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suggestbot_handler_duration_seconds",
			Help:    "Handler latency in seconds, by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(submissions, decisions, deliveries, droppedUpdates, handlerLat)
}

func Submission(kind, outcome string) { submissions.WithLabelValues(kind, outcome).Inc() }

func Decision(action, outcome string) { decisions.WithLabelValues(action, outcome).Inc() }

func Delivery(result string) { deliveries.WithLabelValues(result).Inc() }

func DroppedUpdates(n uint64) { droppedUpdates.Add(float64(n)) }

func Handler(route string, d time.Duration) { handlerLat.WithLabelValues(route).Observe(d.Seconds()) }
