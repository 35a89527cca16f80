package actions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"terminator/internal/ports"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeather reads current conditions from the OpenWeather API.
type OpenWeather struct {
	Key     string
	BaseURL string
	Client  *http.Client
}

func (w *OpenWeather) Current(ctx context.Context, city string) (ports.WeatherReport, error) {
	if w == nil || w.Key == "" {
		return ports.WeatherReport{}, ports.ErrNotConfigured
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return ports.WeatherReport{}, fmt.Errorf("empty city: %w", ports.ErrNotFound)
	}

	base := w.BaseURL
	if base == "" {
		base = openWeatherURL
	}
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", w.Key)
	q.Set("units", "metric")

	res, err := getJSON(ctx, w.Client, base+"?"+q.Encode(), nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return ports.WeatherReport{}, fmt.Errorf("city %q: %w", city, ports.ErrNotFound)
		}
		return ports.WeatherReport{}, fmt.Errorf("openweather: %w", err)
	}

	return ports.WeatherReport{
		Description: res.Get("weather.0.description").String(),
		TempC:       res.Get("main.temp").Float(),
		Humidity:    int(res.Get("main.humidity").Int()),
	}, nil
}
