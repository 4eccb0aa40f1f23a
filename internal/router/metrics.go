package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics records request counts, latency and in-flight requests.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	f := promauto.With(reg)
	return &HTTPMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.3, 1, 3},
		}, []string{"method", "route"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
	}
}

// unmatchedRoute labels requests no registered pattern serves.
const unmatchedRoute = "unmatched"

// routeTable is a ServeMux that remembers its patterns so metrics can be
// labelled by route template instead of raw path.
type routeTable struct {
	*http.ServeMux
	known map[string]bool
}

func newRouteTable() *routeTable {
	return &routeTable{ServeMux: http.NewServeMux(), known: make(map[string]bool)}
}

func (t *routeTable) Handle(pattern string, h http.Handler) {
	t.known[pattern] = true
	t.ServeMux.Handle(pattern, h)
}

func (t *routeTable) HandleFunc(pattern string, h func(http.ResponseWriter, *http.Request)) {
	t.Handle(pattern, http.HandlerFunc(h))
}

// Route returns the path template of the pattern r matches, or
// unmatchedRoute for 404s, 405s and redirects.
func (t *routeTable) Route(r *http.Request) string {
	_, pattern := t.Handler(r)
	if !t.known[pattern] {
		return unmatchedRoute
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}

// Middleware observes every request passing through next, labelled with
// the route routeOf reports.
func (m *HTTPMetrics) Middleware(next http.Handler, routeOf func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		route := routeOf(r)
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(lrw.statusOrOK())).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
