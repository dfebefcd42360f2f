package weather

import (
	"encoding/json"
	"fmt"
)

// Condition is one entry of the provider's "weather" array.
type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	ID          int    `json:"id"`
}

// Readings is the provider's "main" block. Temperatures are °C (units=metric).
type Readings struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Humidity  int     `json:"humidity"`
	Pressure  int     `json:"pressure"`
}

// Wind speed is m/s.
type Wind struct {
	Speed float64 `json:"speed"`
	Gust  float64 `json:"gust"`
	Deg   int     `json:"deg"`
}

// Current is the subset of /weather the clients render.
type Current struct {
	Name       string      `json:"name"`
	Conditions []Condition `json:"weather"`
	Main       Readings    `json:"main"`
	Wind       Wind        `json:"wind"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	DateTime   int64 `json:"dt"`
	Timezone   int   `json:"timezone"` // seconds east of UTC
	Visibility int   `json:"visibility"`
}

// Primary returns the first condition, or the zero Condition.
func (c *Current) Primary() Condition {
	if len(c.Conditions) == 0 {
		return Condition{}
	}
	return c.Conditions[0]
}

// ForecastPoint is one 3-hour step of /forecast.
type ForecastPoint struct {
	Conditions []Condition `json:"weather"`
	Main       Readings    `json:"main"`
	Wind       Wind        `json:"wind"`
	Text       string      `json:"dt_txt"`
	DateTime   int64       `json:"dt"`
}

// Primary returns the first condition, or the zero Condition.
func (p *ForecastPoint) Primary() Condition {
	if len(p.Conditions) == 0 {
		return Condition{}
	}
	return p.Conditions[0]
}

// Forecast is the subset of /forecast the clients render.
type Forecast struct {
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone int    `json:"timezone"`
		Sunrise  int64  `json:"sunrise"`
		Sunset   int64  `json:"sunset"`
	} `json:"city"`
	List []ForecastPoint `json:"list"`
}

// DecodeCurrent parses a /weather response.
func DecodeCurrent(raw []byte) (*Current, error) {
	var c Current
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse current weather: %w", err)
	}
	return &c, nil
}

// DecodeForecast parses a /forecast response.
func DecodeForecast(raw []byte) (*Forecast, error) {
	var f Forecast
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse forecast: %w", err)
	}
	return &f, nil
}
