package widgets

import (
	"context"
	"time"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
	"github.com/homedash/homedash/internal/icons"
)

var forecastInterval = time.Minute * 30

type WeatherConfig struct {
	Entity homeassistant.EntityID `mapstructure:"entity"`
}

// WeatherCurrent comes entirely from the fast path: the weather entity's
// state and attributes, plus sun.sun for the sunrise/sunset fallback.
type WeatherCurrent struct {
	Condition   string     `json:"condition"`
	Temperature *float64   `json:"temperature"`
	Humidity    *float64   `json:"humidity"`
	WindSpeed   *float64   `json:"windSpeed"`
	Pressure    *float64   `json:"pressure"`
	Sunrise     *time.Time `json:"sunrise,omitempty"`
	Sunset      *time.Time `json:"sunset,omitempty"`
}

type WeatherForecastDay struct {
	Date                     string   `json:"date"`
	Condition                string   `json:"condition"`
	High                     float64  `json:"high"`
	Low                      float64  `json:"low"`
	Precipitation            float64  `json:"precipitation"`
	PrecipitationProbability *float64 `json:"precipitationProbability,omitempty"`
}

type WeatherData struct {
	Current  WeatherCurrent       `json:"current"`
	Forecast []WeatherForecastDay `json:"forecast"`
}

var sunEntity = homeassistant.EntityID{ID: "sun.sun"}

type weatherProvider struct {
	binding
	cfg WeatherConfig

	// forecast survives across fast-path re-derivations, a transient cache
	// miss must not blank it
	forecast *sideCache[[]homeassistant.ForecastDay]
}

func newWeatherProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &weatherProvider{
		binding:  newBinding(cfg.ID, "weather", deps),
		forecast: newSideCache[[]homeassistant.ForecastDay](forecastInterval),
	}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.deps.demoMode() || p.cfg.Entity.ID == "" {
		p.set(demoWeather())

		return p, nil
	}

	p.watch(p.cfg.Entity, sunEntity)
	p.subscribe(p.derive)

	if p.deps.REST != nil {
		p.every(forecastInterval, p.fetchForecast)
	}

	p.derive()

	return p, nil
}

func (p *weatherProvider) derive() {
	data := WeatherData{}

	if state := p.deps.Source.GetState(p.cfg.Entity); state != nil {
		data.Current.Condition = state.State
		data.Current.Temperature = attrFloat(state, "temperature")
		data.Current.Humidity = attrFloat(state, "humidity")
		data.Current.WindSpeed = attrFloat(state, "wind_speed")
		data.Current.Pressure = attrFloat(state, "pressure")
	}

	if sun := p.deps.Source.GetState(sunEntity); sun != nil {
		if rising, ok := sun.Attributes.Time("next_rising"); ok {
			data.Current.Sunrise = &rising
		}

		if setting, ok := sun.Attributes.Time("next_setting"); ok {
			data.Current.Sunset = &setting
		}
	}

	// most recently completed slow-path result, possibly none
	if forecast, ok := p.forecast.get(p.cfg.Entity.ID); ok {
		data.Forecast = shapeForecast(forecast)
	}

	p.set(data)
}

// fetchForecast is the slow path: it only touches the forecast side cache,
// never the fast-path fields.
func (p *weatherProvider) fetchForecast() {
	if p.forecast.fresh(p.cfg.Entity.ID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()

	forecast, err := p.deps.REST.GetForecast(ctx, p.cfg.Entity)
	if err != nil {
		p.pr.Warnf("%s forecast fetch failed: %v", icons.ReconnectCircle, err)

		return
	}

	p.forecast.put(p.cfg.Entity.ID, forecast)
	p.derive()
}

func shapeForecast(forecast []homeassistant.ForecastDay) []WeatherForecastDay {
	days := make([]WeatherForecastDay, 0, len(forecast))

	for _, day := range forecast {
		days = append(days, WeatherForecastDay{
			Date:                     day.DateTime,
			Condition:                day.Condition,
			High:                     day.Temperature,
			Low:                      day.TempLow,
			Precipitation:            day.Precipitation,
			PrecipitationProbability: day.PrecipitationProbability,
		})
	}

	return days
}

func attrFloat(state *homeassistant.State, key string) *float64 {
	if value, ok := state.Attributes.Float(key); ok {
		return &value
	}

	return nil
}
