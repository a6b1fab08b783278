// Package weather holds the OpenWeatherMap current-weather payloads, their
// decoders and the result type handed to callers.
package weather

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// WeatherInfo is the success payload of the current-weather endpoint.
type WeatherInfo struct {
	Weather []Weather `json:"weather"`
	Temp    Temp      `json:"main"`
	Name    string    `json:"name"`
}

// Weather is one condition entry of a WeatherInfo.
type Weather struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Temp is the temperature block, sent as "main" on the wire.
type Temp struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	MinTemp   float64 `json:"temp_min"`
	MaxTemp   float64 `json:"temp_max"`
}

// ErrorMessage is the payload returned with a non-2xx status.
type ErrorMessage struct {
	Message string `json:"message"`
}

// Primary returns the first condition entry, if any.
func (w *WeatherInfo) Primary() (Weather, bool) {
	if len(w.Weather) == 0 {
		return Weather{}, false
	}
	return w.Weather[0], true
}

// Wire mirrors use pointers so that a missing key can be told apart from a
// zero value. An empty weather array is valid, an absent one is not.
type weatherInfoWire struct {
	Weather *[]weatherWire `json:"weather" validate:"required,dive"`
	Main    *tempWire      `json:"main" validate:"required"`
	Name    *string        `json:"name" validate:"required"`
}

type weatherWire struct {
	ID          *int    `json:"id" validate:"required"`
	Main        *string `json:"main" validate:"required"`
	Description *string `json:"description" validate:"required"`
	Icon        *string `json:"icon" validate:"required"`
}

type tempWire struct {
	Temp      *float64 `json:"temp" validate:"required"`
	FeelsLike *float64 `json:"feels_like" validate:"required"`
	MinTemp   *float64 `json:"temp_min" validate:"required"`
	MaxTemp   *float64 `json:"temp_max" validate:"required"`
}

type errorMessageWire struct {
	Message *string `json:"message" validate:"required"`
}

var validate = validator.New()

// DecodeWeatherInfo parses a success body. It fails on malformed JSON,
// mistyped fields and missing required keys.
func DecodeWeatherInfo(data []byte) (*WeatherInfo, error) {
	var wire weatherInfoWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal weather info: %w", err)
	}
	if err := validate.Struct(wire); err != nil {
		return nil, fmt.Errorf("validate weather info: %w", err)
	}

	info := &WeatherInfo{
		Weather: make([]Weather, 0, len(*wire.Weather)),
		Temp: Temp{
			Temp:      *wire.Main.Temp,
			FeelsLike: *wire.Main.FeelsLike,
			MinTemp:   *wire.Main.MinTemp,
			MaxTemp:   *wire.Main.MaxTemp,
		},
		Name: *wire.Name,
	}
	for _, w := range *wire.Weather {
		info.Weather = append(info.Weather, Weather{
			ID:          *w.ID,
			Main:        *w.Main,
			Description: *w.Description,
			Icon:        *w.Icon,
		})
	}

	return info, nil
}

// DecodeErrorMessage parses a failure body.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	var wire errorMessageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal error message: %w", err)
	}
	if err := validate.Struct(wire); err != nil {
		return nil, fmt.Errorf("validate error message: %w", err)
	}
	return &ErrorMessage{Message: *wire.Message}, nil
}
