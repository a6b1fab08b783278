package config

import (
	"errors"
	"sync/atomic"
)

var configValue atomic.Value

func GetConfig() *Config {
	return configValue.Load().(*Config)
}

func SetConfig(cfg *Config) {
	configValue.Store(cfg)
}

type Config struct {
	Version     string            `mapstructure:"version"`
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	OpenWeather OpenWeatherConfig `mapstructure:"openweather"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// OpenWeatherConfig describes the current-weather endpoint. Timeout is in
// seconds; 0 leaves the HTTP client without a timeout.
type OpenWeatherConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Units   string        `mapstructure:"units"`
	Lang    string        `mapstructure:"lang"`
	Timeout int           `mapstructure:"timeout"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig controls the circuit breaker around outbound calls.
// Interval and Timeout are in seconds.
type BreakerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	MaxRequests      uint32 `mapstructure:"max_requests"`
	Interval         int    `mapstructure:"interval"`
	Timeout          int    `mapstructure:"timeout"`
	FailureThreshold uint32 `mapstructure:"failure_threshold"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

var (
	ErrMissingAPIKey  = errors.New("openweather.api_key is required")
	ErrMissingBaseURL = errors.New("openweather.base_url is required")
)

// Validate checks the settings the weather client cannot run without.
func (c *Config) Validate() error {
	if c.OpenWeather.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if c.OpenWeather.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func NewDefaultConfig() *Config {
	return &Config{
		Version:     "1.0.0",
		Environment: "development",
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		OpenWeather: OpenWeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5",
			APIKey:  "",
			Units:   "metric",
			Lang:    "kr",
			Timeout: 0,
			Breaker: BreakerConfig{
				Enabled:          false,
				MaxRequests:      1,
				Interval:         0,
				Timeout:          60,
				FailureThreshold: 5,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "tempo:4317",
			ServiceName: "city-weather",
		},
	}
}
