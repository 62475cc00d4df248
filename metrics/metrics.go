// Package metrics exposes Prometheus counters and histograms for message
// routing, Jira calls, model latency and feedback.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sprintbot"

// Route labels.
const (
	RouteJira = "jira"
	RouteChat = "chat"
)

// Collector owns the bot's metrics and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	messages       *prometheus.CounterVec
	jiraRequests   *prometheus.CounterVec
	dispatchErrors prometheus.Counter
	feedback       *prometheus.CounterVec
	llmDuration    *prometheus.HistogramVec
}

// New creates a collector registered on registry. A nil registry gets a
// fresh one.
func New(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages by route.",
		}, []string{"route"}),
		jiraRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jira_requests_total",
			Help:      "Jira API calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		dispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_errors_total",
			Help:      "Messages that failed with an unclassified error.",
		}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Feedback submissions by value.",
		}, []string{"value"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_duration_seconds",
			Help:      "Model response latency by delivery mode.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"mode"}),
	}

	registry.MustRegister(c.messages, c.jiraRequests, c.dispatchErrors, c.feedback, c.llmDuration)
	return c
}

func (c *Collector) RecordMessage(route string) {
	c.messages.WithLabelValues(route).Inc()
}

// RecordJiraRequest counts one Jira call; err decides the outcome label.
func (c *Collector) RecordJiraRequest(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.jiraRequests.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) RecordDispatchError() {
	c.dispatchErrors.Inc()
}

// RecordFeedback counts a feedback submission. Unknown values are folded
// into "other" to bound label cardinality.
func (c *Collector) RecordFeedback(value string) {
	switch value {
	case "positive", "negative":
	default:
		value = "other"
	}
	c.feedback.WithLabelValues(value).Inc()
}

func (c *Collector) ObserveLLM(mode string, d time.Duration) {
	c.llmDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
