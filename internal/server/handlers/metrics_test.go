package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/vzahanych/city-weather/internal/server/middlewares"
)

type staticHTTPMetrics struct {
	snapshot middlewares.HTTPSnapshot
}

func (s staticHTTPMetrics) HTTPSnapshot() middlewares.HTTPSnapshot {
	return s.snapshot
}

func TestMetricsHandler_RecordWeatherServiceCall(t *testing.T) {
	h := NewMetricsHandler(nil)

	h.RecordWeatherServiceCall(context.Background(), "openweather", "success")
	h.RecordWeatherServiceCall(context.Background(), "openweather", "success")
	h.RecordWeatherServiceCall(context.Background(), "openweather", "remote")

	assert.Equal(t, int64(2), h.ServiceCalls("openweather", "success"))
	assert.Equal(t, int64(1), h.ServiceCalls("openweather", "remote"))
	assert.Equal(t, int64(0), h.ServiceCalls("openweather", "decode"))
	assert.Equal(t, int64(0), h.ServiceCalls("other", "success"))
}

func TestMetricsHandler_ServeMetrics(t *testing.T) {
	h := NewMetricsHandler(staticHTTPMetrics{snapshot: middlewares.HTTPSnapshot{
		RequestsTotal:  map[string]int64{"GET /weather_200": 3},
		AvgDuration:    0.25,
		ActiveRequests: 1,
	}})
	h.RecordWeatherServiceCall(context.Background(), "openweather", "transport")

	engine := gin.New()
	engine.GET("/metrics", h.ServeMetrics)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{route_status="GET /weather_200"} 3`)
	assert.Contains(t, body, "http_request_duration_seconds_avg 0.250000")
	assert.Contains(t, body, "http_active_requests 1")
	assert.Contains(t, body, `weather_service_calls_total{service="openweather",outcome="transport"} 1`)
}
