// Package presenter turns weather results into what a screen shows.
package presenter

import (
	"github.com/vzahanych/city-weather/internal/weather"
)

// WeatherView is the rendered form of a WeatherInfo. Temperatures are whole
// degrees Celsius, truncated toward zero.
type WeatherView struct {
	City        string `json:"city"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
	Temp        int    `json:"temp"`
	FeelsLike   int    `json:"feels_like"`
	MinTemp     int    `json:"min_temp"`
	MaxTemp     int    `json:"max_temp"`
}

// View is implemented by anything that can display a weather result.
type View interface {
	ShowWeather(view WeatherView)
	ShowError(message string)
}

type Presenter struct {
	view View
}

func New(view View) *Presenter {
	return &Presenter{view: view}
}

// Render shows exactly one of the weather or the error message.
func (p *Presenter) Render(result weather.Result) {
	if !result.IsSuccess() {
		p.view.ShowError(result.Message())
		return
	}
	p.view.ShowWeather(NewWeatherView(result.Info))
}

func NewWeatherView(info *weather.WeatherInfo) WeatherView {
	view := WeatherView{
		City:      info.Name,
		Temp:      int(info.Temp.Temp),
		FeelsLike: int(info.Temp.FeelsLike),
		MinTemp:   int(info.Temp.MinTemp),
		MaxTemp:   int(info.Temp.MaxTemp),
	}
	if primary, ok := info.Primary(); ok {
		view.Description = primary.Description
		view.Icon = primary.Icon
	}
	return view
}
