// Package observability holds the Prometheus instruments of the bot.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "phraseguard"

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Metrics groups all Prometheus instruments used by the bot.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	MessagesScreened *prometheus.CounterVec
	MessagesFlagged  prometheus.Counter
	Actions          *prometheus.CounterVec
	Commands         *prometheus.CounterVec
	Phrases          prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers the instruments with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the global registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesScreened: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_screened_total",
			Help:      "Messages run through the classifier, by kind.",
		}, []string{"kind"}),
		MessagesFlagged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_flagged_total",
			Help:      "Messages that matched a blocked phrase.",
		}),
		Actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Moderation actions by action and result.",
		}, []string{"action", "result"}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Admin commands by command and result.",
		}, []string{"command", "result"}),
		Phrases: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phrases",
			Help:      "Number of phrases in the block list.",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveScreened(edited bool) {
	if m == nil {
		return
	}
	kind := "new"
	if edited {
		kind = "edited"
	}
	m.MessagesScreened.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveFlagged() {
	if m == nil {
		return
	}
	m.MessagesFlagged.Inc()
}

func (m *Metrics) ObserveAction(action, result string) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) ObserveCommand(command, result string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, result).Inc()
}

func (m *Metrics) SetPhrases(n int) {
	if m == nil {
		return
	}
	m.Phrases.Set(float64(n))
}

// Handler serves the metrics registered in this instance's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
