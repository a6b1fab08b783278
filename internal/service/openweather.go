package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/vzahanych/city-weather/internal/config"
	"github.com/vzahanych/city-weather/internal/dispatch"
	"github.com/vzahanych/city-weather/internal/weather"
	"github.com/vzahanych/city-weather/pkg/telemetry"
)

const (
	OpenWeatherName = "openweather"

	outcomeSuccess = "success"
	maxBodyBytes   = 1 << 20
)

var errUpstreamServer = errors.New("upstream server error")

type OpenWeatherService struct {
	baseURL  string
	apiKey   string
	units    string
	lang     string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	executor dispatch.Executor
	metrics  MetricsRecorder
	logger   *zap.Logger
	tele     *telemetry.Telemetry
}

func NewOpenWeatherService(cfg config.OpenWeatherConfig, logger *zap.Logger, tele *telemetry.Telemetry) *OpenWeatherService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &OpenWeatherService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		units:   cfg.Units,
		lang:    cfg.Lang,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		executor: dispatch.Inline{},
		logger:   logger.With(zap.String("service", OpenWeatherName)),
		tele:     tele,
	}

	if cfg.Breaker.Enabled {
		s.breaker = newBreaker(cfg.Breaker, s.logger)
	}

	return s
}

func newBreaker(cfg config.BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        OpenWeatherName,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

func (s *OpenWeatherService) Name() string {
	return OpenWeatherName
}

// SetExecutor sets where FetchCurrentWeather delivers its results.
func (s *OpenWeatherService) SetExecutor(executor dispatch.Executor) {
	s.executor = executor
}

func (s *OpenWeatherService) SetMetricsRecorder(metrics MetricsRecorder) {
	s.metrics = metrics
}

// FetchCurrentWeather starts the request in the background and returns at once.
// onResult is called exactly once, through the configured executor.
func (s *OpenWeatherService) FetchCurrentWeather(ctx context.Context, city string, onResult func(weather.Result)) {
	go func() {
		result := weather.NewResult(s.CurrentWeather(ctx, city))
		s.executor.Execute(func() {
			onResult(result)
		})
	}()
}

// CurrentWeather fetches the current weather for city. Every error it returns
// is a *weather.Error.
func (s *OpenWeatherService) CurrentWeather(ctx context.Context, city string) (*weather.WeatherInfo, error) {
	tracer := s.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "openweather.CurrentWeather")
	defer span.End()

	span.SetAttributes(
		attribute.String("city", city),
		attribute.String("service", OpenWeatherName),
	)

	info, err := s.currentWeather(ctx, city)

	outcome := outcomeSuccess
	if err != nil {
		kind := weather.KindOf(err)
		outcome = kind.String()
		span.SetAttributes(
			attribute.Bool("success", false),
			attribute.String("error.kind", outcome),
		)
		s.tele.RecordError(ctx, err, map[string]interface{}{"city": city})
		s.logger.Warn("Current weather request failed",
			zap.String("city", city),
			zap.Stringer("kind", kind),
			zap.Error(err))
	} else {
		span.SetAttributes(attribute.Bool("success", true))
		s.logger.Debug("Current weather request completed",
			zap.String("city", city),
			zap.String("name", info.Name))
	}

	if s.metrics != nil {
		s.metrics.RecordWeatherServiceCall(ctx, OpenWeatherName, outcome)
	}

	return info, err
}

func (s *OpenWeatherService) currentWeather(ctx context.Context, city string) (*weather.WeatherInfo, error) {
	u, err := s.buildURL(city)
	if err != nil {
		return nil, weather.NewMalformedURLError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, weather.NewMalformedURLError(fmt.Errorf("create request: %w", redactError(err, u)))
	}

	s.logger.Debug("Requesting current weather", zap.String("url", redactURL(u)))

	resp, err := s.do(req)
	if err != nil {
		return nil, weather.NewTransportError(redactError(err, u))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, weather.NewTransportError(fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		info, err := weather.DecodeWeatherInfo(body)
		if err != nil {
			return nil, weather.NewDecodeError(resp.StatusCode, err)
		}
		return info, nil
	}

	msg, err := weather.DecodeErrorMessage(body)
	if err != nil {
		return nil, weather.NewDecodeError(resp.StatusCode, err)
	}
	return nil, weather.NewRemoteError(resp.StatusCode, msg.Message)
}

func (s *OpenWeatherService) buildURL(city string) (*url.URL, error) {
	u, err := url.Parse(fmt.Sprintf("%s/weather", s.baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", s.baseURL)
	}

	q := u.Query()
	q.Set("q", city)
	q.Set("units", s.units)
	q.Set("lang", s.lang)
	q.Set("appid", s.apiKey)
	u.RawQuery = q.Encode()

	return u, nil
}

func (s *OpenWeatherService) do(req *http.Request) (*http.Response, error) {
	if s.breaker == nil {
		return s.client.Do(req)
	}

	resp, err := s.breaker.Execute(func() (*http.Response, error) {
		r, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		// 5xx counts against the breaker but the body is still decoded.
		if r.StatusCode >= 500 {
			return r, errUpstreamServer
		}
		return r, nil
	})
	if errors.Is(err, errUpstreamServer) {
		return resp, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("circuit breaker: %w", err)
	}
	return resp, err
}

// redactError strips the API key from the URL carried by net/http errors.
func redactError(err error, u *url.URL) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = redactURL(u)
	}
	return err
}

func redactURL(u *url.URL) string {
	redacted := *u
	q := redacted.Query()
	if q.Has("appid") {
		q.Set("appid", "REDACTED")
	}
	redacted.RawQuery = q.Encode()
	return redacted.String()
}
