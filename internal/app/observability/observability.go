package observability

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"examdesk/internal/auth"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var uuidSegment = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Collector owns the process metrics registry and the access log.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	workspaces      prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examdesk_http_requests_total",
			Help: "HTTP requests served, by method, path and status.",
		}, []string{"method", "path", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "examdesk_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		upstreamCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "examdesk_upstream_requests_total",
			Help: "Backend API round trips, by method, path and status.",
		}, []string{"method", "path", "status"}),
		upstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "examdesk_upstream_request_duration_seconds",
			Help:    "Backend API round trip latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		workspaces: f.NewGauge(prometheus.GaugeOpts{
			Name: "examdesk_active_workspaces",
			Help: "Workspaces currently held in memory.",
		}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveUpstream records one backend round trip. Status 0 means the call
// failed before a response arrived.
func (c *Collector) ObserveUpstream(method, path string, status int, elapsed time.Duration) {
	p := normalizedPath(path)
	c.upstreamCalls.WithLabelValues(method, p, strconv.Itoa(status)).Inc()
	c.upstreamLatency.WithLabelValues(method, p).Observe(elapsed.Seconds())
}

func (c *Collector) SetWorkspaces(n int) {
	c.workspaces.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		path := normalizedPath(r.URL.Path)
		c.requests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		c.requestDuration.WithLabelValues(r.Method, path).Observe(elapsed.Seconds())

		sess := auth.FromRequest(r)
		workspaceID := ""
		if sess.IsAuthenticated {
			workspaceID = sess.WorkspaceID()
		}

		entry := map[string]any{
			"request_id":   middleware.GetReqID(r.Context()),
			"user_id":      sess.UserID,
			"workspace_id": workspaceID,
			"method":       r.Method,
			"path":         path,
			"status":       rec.status,
			"latency_ms":   float64(elapsed.Microseconds()) / 1000.0,
			"remote_ip":    strings.TrimSpace(r.RemoteAddr),
		}
		b, _ := json.Marshal(entry)
		log.Printf("%s", string(b))
	})
}

func (c *Collector) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// normalizedPath collapses numeric and uuid segments into {id}.
func normalizedPath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil || uuidSegment.MatchString(p) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
