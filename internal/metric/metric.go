package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "familychat"

// Metrics agrupa os coletores do gateway
type Metrics struct {
	registry *prometheus.Registry

	ChatRequests *prometheus.CounterVec
	ChatDuration prometheus.Histogram
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	OpenSessions prometheus.Gauge
}

// New cria um registro próprio com os coletores do gateway e do runtime Go
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests handled, by outcome",
		}, []string{"status"}),
		ChatDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_duration_seconds",
			Help:      "Time spent waiting for the agent reply",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Tool invocations made by the agent, by tool and outcome",
		}, []string{"tool", "status"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool invocation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		OpenSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversations_open",
			Help:      "Named conversations currently kept in memory",
		}),
	}

	m.registry.MustRegister(
		m.ChatRequests,
		m.ChatDuration,
		m.ToolCalls,
		m.ToolDuration,
		m.OpenSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry retorna o registro Prometheus subjacente
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler expõe as métricas no formato Prometheus/OpenMetrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
