package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vzahanych/city-weather/internal/config"
	"github.com/vzahanych/city-weather/internal/dispatch"
	"github.com/vzahanych/city-weather/internal/service"
	"github.com/vzahanych/city-weather/internal/weather"
	"github.com/vzahanych/city-weather/pkg/telemetry"
)

const seoulBody = `{"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}],"main":{"temp":5.0,"feels_like":3.0,"temp_min":2.0,"temp_max":7.0},"name":"Seoul"}`

type recordedCall struct {
	service string
	outcome string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeRecorder) RecordWeatherServiceCall(ctx context.Context, service string, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{service: service, outcome: outcome})
}

func (f *fakeRecorder) outcomes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.outcome)
	}
	return out
}

func testConfig(baseURL string) config.OpenWeatherConfig {
	cfg := config.NewDefaultConfig().OpenWeather
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	return cfg
}

func newTestService(t *testing.T, cfg config.OpenWeatherConfig) *service.OpenWeatherService {
	t.Helper()
	return service.NewOpenWeatherService(cfg, zaptest.NewLogger(t), &telemetry.Telemetry{})
}

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenWeatherService_Name(t *testing.T) {
	svc := newTestService(t, testConfig("http://localhost"))
	assert.Equal(t, "openweather", svc.Name())
}

func TestOpenWeatherService_CurrentWeather_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Seoul", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "kr", r.URL.Query().Get("lang"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(seoulBody))
	}))
	defer server.Close()

	svc := newTestService(t, testConfig(server.URL))

	info, err := svc.CurrentWeather(context.Background(), "Seoul")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "Seoul", info.Name)
	assert.Equal(t, 5.0, info.Temp.Temp)
	assert.Equal(t, 3.0, info.Temp.FeelsLike)
	assert.Equal(t, 2.0, info.Temp.MinTemp)
	assert.Equal(t, 7.0, info.Temp.MaxTemp)
	require.Len(t, info.Weather, 1)
	assert.Equal(t, "clear sky", info.Weather[0].Description)
}

func TestOpenWeatherService_CurrentWeather_EncodesCity(t *testing.T) {
	cities := []string{"New York", "서울", "Saint-Étienne", "a&b=c?d#e"}

	for _, city := range cities {
		t.Run(city, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, city, r.URL.Query().Get("q"))
				assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
				_, _ = w.Write([]byte(seoulBody))
			}))
			defer server.Close()

			svc := newTestService(t, testConfig(server.URL))
			_, err := svc.CurrentWeather(context.Background(), city)
			assert.NoError(t, err)
		})
	}
}

func TestOpenWeatherService_CurrentWeather_TrailingSlashBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		_, _ = w.Write([]byte(seoulBody))
	}))
	defer server.Close()

	svc := newTestService(t, testConfig(server.URL+"/data/2.5/"))
	_, err := svc.CurrentWeather(context.Background(), "Seoul")
	assert.NoError(t, err)
}

func TestOpenWeatherService_CurrentWeather_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		kind       weather.ErrorKind
		statusCode int
		message    string
	}{
		{
			name:       "city not found",
			status:     http.StatusNotFound,
			body:       `{"cod":"404","message":"city not found"}`,
			kind:       weather.KindRemote,
			statusCode: http.StatusNotFound,
			message:    "city not found",
		},
		{
			name:       "invalid api key",
			status:     http.StatusUnauthorized,
			body:       `{"cod":401,"message":"Invalid API key."}`,
			kind:       weather.KindRemote,
			statusCode: http.StatusUnauthorized,
			message:    "Invalid API key.",
		},
		{
			name:       "success status with empty object",
			status:     http.StatusOK,
			body:       `{}`,
			kind:       weather.KindDecode,
			statusCode: http.StatusOK,
		},
		{
			name:       "success status with html",
			status:     http.StatusOK,
			body:       `<html></html>`,
			kind:       weather.KindDecode,
			statusCode: http.StatusOK,
		},
		{
			name:       "error status without message",
			status:     http.StatusBadGateway,
			body:       `upstream down`,
			kind:       weather.KindDecode,
			statusCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jsonServer(t, tt.status, tt.body)
			svc := newTestService(t, testConfig(server.URL))

			info, err := svc.CurrentWeather(context.Background(), "Xyzzy")
			require.Error(t, err)
			assert.Nil(t, info)

			var werr *weather.Error
			require.ErrorAs(t, err, &werr)
			assert.Equal(t, tt.kind, werr.Kind)
			assert.Equal(t, tt.statusCode, werr.StatusCode)
			assert.Equal(t, tt.message, werr.Message)
		})
	}
}

func TestOpenWeatherService_CurrentWeather_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	svc := newTestService(t, testConfig(url))

	_, err := svc.CurrentWeather(context.Background(), "Seoul")
	require.Error(t, err)
	assert.Equal(t, weather.KindTransport, weather.KindOf(err))
}

func TestOpenWeatherService_CurrentWeather_TransportErrorHidesAPIKey(t *testing.T) {
	const apiKey = "SUPERSECRETKEY"

	for _, breaker := range []bool{false, true} {
		t.Run(fmt.Sprintf("breaker=%t", breaker), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			baseURL := server.URL
			server.Close()

			cfg := testConfig(baseURL)
			cfg.APIKey = apiKey
			cfg.Breaker.Enabled = breaker

			core, logs := observer.New(zapcore.DebugLevel)
			svc := service.NewOpenWeatherService(cfg, zap.New(core), &telemetry.Telemetry{})

			_, err := svc.CurrentWeather(context.Background(), "Seoul")
			require.Error(t, err)
			assert.Equal(t, weather.KindTransport, weather.KindOf(err))
			assert.NotContains(t, err.Error(), apiKey)
			assert.Contains(t, err.Error(), "appid=REDACTED")

			require.NotEmpty(t, logs.All())
			for _, entry := range logs.All() {
				assert.NotContains(t, entry.Message, apiKey)
				for key, value := range entry.ContextMap() {
					assert.False(t, strings.Contains(fmt.Sprint(value), apiKey),
						"log %q field %q contains the API key", entry.Message, key)
				}
			}
		})
	}
}

func TestOpenWeatherService_CurrentWeather_ContextCancelled(t *testing.T) {
	server := jsonServer(t, http.StatusOK, seoulBody)
	svc := newTestService(t, testConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CurrentWeather(ctx, "Seoul")
	require.Error(t, err)
	assert.Equal(t, weather.KindTransport, weather.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenWeatherService_CurrentWeather_MalformedURL(t *testing.T) {
	for _, baseURL := range []string{"http://bad host", "relative/path", "%zz"} {
		t.Run(baseURL, func(t *testing.T) {
			svc := newTestService(t, testConfig(baseURL))

			_, err := svc.CurrentWeather(context.Background(), "Seoul")
			require.Error(t, err)
			assert.Equal(t, weather.KindMalformedURL, weather.KindOf(err))
		})
	}
}

func TestOpenWeatherService_FetchCurrentWeather(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		success bool
		kind    weather.ErrorKind
		message string
	}{
		{"scenario A", http.StatusOK, seoulBody, true, weather.KindUnknown, ""},
		{"scenario B", http.StatusNotFound, `{"message":"city not found"}`, false, weather.KindRemote, "city not found"},
		{"scenario C", http.StatusOK, `{}`, false, weather.KindDecode, weather.GenericFailureMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jsonServer(t, tt.status, tt.body)
			svc := newTestService(t, testConfig(server.URL))

			results := make(chan weather.Result, 2)
			svc.FetchCurrentWeather(context.Background(), "Seoul", func(r weather.Result) {
				results <- r
			})

			var result weather.Result
			select {
			case result = <-results:
			case <-time.After(5 * time.Second):
				t.Fatal("onResult was not called")
			}

			assert.Equal(t, tt.success, result.IsSuccess())
			if tt.success {
				require.NotNil(t, result.Info)
				assert.Equal(t, 5.0, result.Info.Temp.Temp)
				assert.Equal(t, 2.0, result.Info.Temp.MinTemp)
				assert.Equal(t, 7.0, result.Info.Temp.MaxTemp)
				assert.Equal(t, "clear sky", result.Info.Weather[0].Description)
			} else {
				require.NotNil(t, result.Err)
				assert.Equal(t, tt.kind, result.Err.Kind)
				assert.Equal(t, tt.message, result.Message())
			}

			select {
			case <-results:
				t.Fatal("onResult called more than once")
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestOpenWeatherService_FetchCurrentWeather_TransportFailureStillCallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	svc := newTestService(t, testConfig(url))

	results := make(chan weather.Result, 1)
	svc.FetchCurrentWeather(context.Background(), "Seoul", func(r weather.Result) {
		results <- r
	})

	select {
	case r := <-results:
		require.NotNil(t, r.Err)
		assert.Equal(t, weather.KindTransport, r.Err.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("onResult was not called")
	}
}

func TestOpenWeatherService_FetchCurrentWeather_UsesExecutor(t *testing.T) {
	server := jsonServer(t, http.StatusOK, seoulBody)
	svc := newTestService(t, testConfig(server.URL))

	loop := dispatch.NewLoop(4, zaptest.NewLogger(t))
	svc.SetExecutor(loop)

	loopDone := make(chan struct{})
	var succeeded atomic.Bool
	go func() {
		defer close(loopDone)
		loop.Run(context.Background())
	}()

	var calls atomic.Int32
	svc.FetchCurrentWeather(context.Background(), "Seoul", func(r weather.Result) {
		calls.Add(1)
		succeeded.Store(r.IsSuccess())
		loop.Stop()
	})

	select {
	case <-loopDone:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, succeeded.Load())
}

func TestOpenWeatherService_FetchCurrentWeather_ConcurrentCallsIndependent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Xyzzy" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"city not found"}`))
			return
		}
		_, _ = w.Write([]byte(seoulBody))
	}))
	defer server.Close()

	svc := newTestService(t, testConfig(server.URL))

	const n = 10
	var wg sync.WaitGroup
	var successes, failures atomic.Int32
	wg.Add(n)
	for i := 0; i < n; i++ {
		city := "Seoul"
		if i%2 == 1 {
			city = "Xyzzy"
		}
		svc.FetchCurrentWeather(context.Background(), city, func(r weather.Result) {
			defer wg.Done()
			if r.IsSuccess() {
				successes.Add(1)
			} else {
				failures.Add(1)
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not every request called back")
	}

	assert.Equal(t, int32(n/2), successes.Load())
	assert.Equal(t, int32(n/2), failures.Load())
}

func TestOpenWeatherService_MetricsRecorder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "Seoul":
			_, _ = w.Write([]byte(seoulBody))
		case "Broken":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"city not found"}`))
		}
	}))
	defer server.Close()

	recorder := &fakeRecorder{}
	svc := newTestService(t, testConfig(server.URL))
	svc.SetMetricsRecorder(recorder)

	_, _ = svc.CurrentWeather(context.Background(), "Seoul")
	_, _ = svc.CurrentWeather(context.Background(), "Xyzzy")
	_, _ = svc.CurrentWeather(context.Background(), "Broken")

	assert.Equal(t, []string{"success", "remote", "decode"}, recorder.outcomes())
	for _, c := range recorder.calls {
		assert.Equal(t, "openweather", c.service)
	}
}

func TestOpenWeatherService_CircuitBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"internal error"}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Breaker = config.BreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Timeout:          60,
		FailureThreshold: 2,
	}
	svc := newTestService(t, cfg)

	for i := 0; i < 2; i++ {
		_, err := svc.CurrentWeather(context.Background(), "Seoul")
		require.Error(t, err)
		var werr *weather.Error
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, weather.KindRemote, werr.Kind)
		assert.Equal(t, "internal error", werr.Message)
	}

	_, err := svc.CurrentWeather(context.Background(), "Seoul")
	require.Error(t, err)
	assert.Equal(t, weather.KindTransport, weather.KindOf(err))
	assert.Equal(t, int32(2), hits.Load())
}

func TestOpenWeatherService_CircuitBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"city not found"}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Breaker = config.BreakerConfig{Enabled: true, MaxRequests: 1, Timeout: 60, FailureThreshold: 1}
	svc := newTestService(t, cfg)

	for i := 0; i < 3; i++ {
		_, err := svc.CurrentWeather(context.Background(), "Xyzzy")
		assert.Equal(t, weather.KindRemote, weather.KindOf(err))
	}
	assert.Equal(t, int32(3), hits.Load())
}
