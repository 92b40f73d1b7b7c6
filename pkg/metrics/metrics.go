package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vntrbirds"

// Metrics holds the collectors exported on /metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	submissions     *prometheus.CounterVec
	uploadDuration  prometheus.Histogram
	teamsCreated    *prometheus.CounterVec
	recomputes      prometheus.Counter
	feedEvents      *prometheus.CounterVec
	streamClients   *prometheus.GaugeVec
	exportFiles     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	submissionsOpen prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submission attempts by outcome (stored, already_found, upload_failed, insert_failed, invalid).",
		}, []string{"outcome"}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Time spent transferring a file to blob storage.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		teamsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "team_registrations_total",
			Help:      "Team create attempts by outcome.",
		}, []string{"outcome"}),
		recomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_recomputes_total",
			Help:      "Full leaderboard re-aggregations.",
		}),
		feedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_events_total",
			Help:      "Change-feed events by topic and direction.",
		}, []string{"topic", "direction"}),
		streamClients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected websocket clients per stream.",
		}, []string{"stream"}),
		exportFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_files_total",
			Help:      "Files considered by the admin export, by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		submissionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "submissions_open",
			Help:      "1 when submissions are open.",
		}),
	}

	reg.MustRegister(
		m.submissions,
		m.uploadDuration,
		m.teamsCreated,
		m.recomputes,
		m.feedEvents,
		m.streamClients,
		m.exportFiles,
		m.httpRequests,
		m.httpDuration,
		m.submissionsOpen,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry (tests gather from it)
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SubmissionOutcome(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUpload(d time.Duration) {
	if m == nil {
		return
	}
	m.uploadDuration.Observe(d.Seconds())
}

func (m *Metrics) TeamRegistration(outcome string) {
	if m == nil {
		return
	}
	m.teamsCreated.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LeaderboardRecompute() {
	if m == nil {
		return
	}
	m.recomputes.Inc()
}

func (m *Metrics) FeedEvent(topic, direction string) {
	if m == nil {
		return
	}
	m.feedEvents.WithLabelValues(topic, direction).Inc()
}

func (m *Metrics) StreamClients(stream string, delta float64) {
	if m == nil {
		return
	}
	m.streamClients.WithLabelValues(stream).Add(delta)
}

func (m *Metrics) ExportFile(result string) {
	if m == nil {
		return
	}
	m.exportFiles.WithLabelValues(result).Inc()
}

func (m *Metrics) SetSubmissionsOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.submissionsOpen.Set(1)
	} else {
		m.submissionsOpen.Set(0)
	}
}

// ObserveHTTP records one finished request
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
