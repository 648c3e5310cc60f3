// Package metrics exposes assistant activity as prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements chat.Recorder and llm.Observer.
type Recorder struct {
	gateDecisions   *prometheus.CounterVec
	categoryMatches *prometheus.CounterVec
	chatErrors      *prometheus.CounterVec
	llmDuration     *prometheus.HistogramVec
}

// NewRecorder registers the collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pickleai_gate_decisions_total",
			Help: "Security gate outcomes by reason, \"allowed\" for passed messages",
		}, []string{"outcome"}),
		categoryMatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pickleai_category_matches_total",
			Help: "Messages classified into each knowledge base category, \"none\" when nothing matched",
		}, []string{"category"}),
		chatErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pickleai_chat_errors_total",
			Help: "Turns that ended with an error recorded in the chat state",
		}, []string{"kind"}),
		llmDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pickleai_llm_request_duration_seconds",
			Help:    "Language model request latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"status"}),
	}
}

// ObserveGateDecision counts one gate outcome.
func (r *Recorder) ObserveGateDecision(outcome string) {
	r.gateDecisions.WithLabelValues(outcome).Inc()
}

// ObserveCategory counts one classified message.
func (r *Recorder) ObserveCategory(category string) {
	if category == "" {
		category = "none"
	}
	r.categoryMatches.WithLabelValues(category).Inc()
}

// ObserveChatError counts one failed turn.
func (r *Recorder) ObserveChatError(kind string) {
	r.chatErrors.WithLabelValues(kind).Inc()
}

// ObserveLLMRequest records the latency of one model call.
func (r *Recorder) ObserveLLMRequest(status string, d time.Duration) {
	r.llmDuration.WithLabelValues(status).Observe(d.Seconds())
}
