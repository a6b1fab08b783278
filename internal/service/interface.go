package service

import (
	"context"

	"github.com/vzahanych/city-weather/internal/weather"
)

type WeatherService interface {
	CurrentWeather(ctx context.Context, city string) (*weather.WeatherInfo, error)
	FetchCurrentWeather(ctx context.Context, city string, onResult func(weather.Result))
	Name() string
}

// MetricsRecorder receives one outcome per outbound call: "success" or the
// weather.ErrorKind name.
type MetricsRecorder interface {
	RecordWeatherServiceCall(ctx context.Context, service string, outcome string)
}
