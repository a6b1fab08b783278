package handlers

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/city-weather/internal/server/middlewares"
)

// HTTPMetricsSource is implemented by the metrics middleware.
type HTTPMetricsSource interface {
	HTTPSnapshot() middlewares.HTTPSnapshot
}

// MetricsHandler counts weather service outcomes and serves them, together
// with the HTTP metrics, in Prometheus text format.
type MetricsHandler struct {
	mutex        sync.RWMutex
	serviceCalls map[string]map[string]int64
	httpMetrics  HTTPMetricsSource
}

func NewMetricsHandler(httpMetrics HTTPMetricsSource) *MetricsHandler {
	return &MetricsHandler{
		serviceCalls: make(map[string]map[string]int64),
		httpMetrics:  httpMetrics,
	}
}

// RecordWeatherServiceCall records the outcome of an upstream call.
func (h *MetricsHandler) RecordWeatherServiceCall(ctx context.Context, service string, outcome string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	outcomes, ok := h.serviceCalls[service]
	if !ok {
		outcomes = make(map[string]int64)
		h.serviceCalls[service] = outcomes
	}
	outcomes[outcome]++
}

// ServiceCalls returns the count recorded for service and outcome.
func (h *MetricsHandler) ServiceCalls(service, outcome string) int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.serviceCalls[service][outcome]
}

func (h *MetricsHandler) ServeMetrics(c *gin.Context) {
	var b strings.Builder

	if h.httpMetrics != nil {
		snapshot := h.httpMetrics.HTTPSnapshot()

		b.WriteString("# HELP http_requests_total Total number of HTTP requests\n")
		b.WriteString("# TYPE http_requests_total counter\n")
		for _, key := range sortedKeys(snapshot.RequestsTotal) {
			b.WriteString("http_requests_total{route_status=\"" + key + "\"} " + strconv.FormatInt(snapshot.RequestsTotal[key], 10) + "\n")
		}

		b.WriteString("\n# HELP http_request_duration_seconds_avg Average duration of HTTP requests\n")
		b.WriteString("# TYPE http_request_duration_seconds_avg gauge\n")
		b.WriteString("http_request_duration_seconds_avg " + strconv.FormatFloat(snapshot.AvgDuration, 'f', 6, 64) + "\n")

		b.WriteString("\n# HELP http_active_requests Number of active HTTP requests\n")
		b.WriteString("# TYPE http_active_requests gauge\n")
		b.WriteString("http_active_requests " + strconv.FormatInt(snapshot.ActiveRequests, 10) + "\n\n")
	}

	h.mutex.RLock()
	b.WriteString("# HELP weather_service_calls_total Weather service calls by outcome\n")
	b.WriteString("# TYPE weather_service_calls_total counter\n")
	for _, service := range sortedKeys(h.serviceCalls) {
		outcomes := h.serviceCalls[service]
		for _, outcome := range sortedKeys(outcomes) {
			b.WriteString("weather_service_calls_total{service=\"" + service + "\",outcome=\"" + outcome + "\"} " + strconv.FormatInt(outcomes[outcome], 10) + "\n")
		}
	}
	h.mutex.RUnlock()

	c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
