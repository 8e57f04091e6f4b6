package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// NormalizeZIP trims surrounding whitespace and validates that the result is a
// five-digit ZIP code. Validation happens before any cache or remote interaction.
func NormalizeZIP(zip string) (string, error) {
	z := strings.TrimSpace(zip)
	if !zipPattern.MatchString(z) {
		return "", NewInvalidInputError(fmt.Sprintf("invalid ZIP code %q: must be 5 digits", zip))
	}
	return z, nil
}

// RoundCoord rounds a coordinate to 4 decimal places and formats it without a
// trailing exponent. Two logically equal coordinate pairs must produce the
// same cache key, so all key derivation goes through this helper.
func RoundCoord(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// CoordKey derives the canonical "lat,lon" key fragment for a coordinate pair.
func CoordKey(lat, lon float64) string {
	return RoundCoord(lat) + "," + RoundCoord(lon)
}

// Coordinates is a geographic point resolved from a ZIP code.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
	State     string  `json:"state,omitempty"`
}

// GridPoint is the weather provider's spatial addressing unit, derived once
// per coordinate pair and itself cached.
type GridPoint struct {
	Office string `json:"office"`
	GridX  int    `json:"grid_x"`
	GridY  int    `json:"grid_y"`
}

// Key returns the canonical "office/x,y" key fragment for the grid point.
func (g GridPoint) Key() string {
	return fmt.Sprintf("%s/%d,%d", g.Office, g.GridX, g.GridY)
}

// ForecastPeriod is a single period of an NWS forecast (half-day for the
// 7-day product, one hour for the hourly product).
type ForecastPeriod struct {
	Number           int       `json:"number"`
	Name             string    `json:"name,omitempty"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	IsDaytime        bool      `json:"is_daytime"`
	Temperature      int       `json:"temperature"`
	TemperatureUnit  string    `json:"temperature_unit"`
	PrecipChance     int       `json:"precip_chance"`
	WindSpeed        string    `json:"wind_speed"`
	WindDirection    string    `json:"wind_direction"`
	ShortForecast    string    `json:"short_forecast"`
	DetailedForecast string    `json:"detailed_forecast,omitempty"`
	Icon             string    `json:"icon,omitempty"`
}

// Forecast is a list of forecast periods with the time it was generated upstream.
type Forecast struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Periods     []ForecastPeriod `json:"periods"`
}

// Observation is the latest report from a weather station.
type Observation struct {
	StationID        string    `json:"station_id"`
	Timestamp        time.Time `json:"timestamp"`
	TemperatureC     *float64  `json:"temperature_c,omitempty"`
	DewpointC        *float64  `json:"dewpoint_c,omitempty"`
	HumidityPct      *float64  `json:"humidity_pct,omitempty"`
	WindSpeedKmh     *float64  `json:"wind_speed_kmh,omitempty"`
	WindDirectionDeg *float64  `json:"wind_direction_deg,omitempty"`
	PressurePa       *float64  `json:"pressure_pa,omitempty"`
	VisibilityM      *float64  `json:"visibility_m,omitempty"`
	Description      string    `json:"description,omitempty"`
	Icon             string    `json:"icon,omitempty"`
}

// Alert is an active weather alert. Alerts are never cached.
type Alert struct {
	ID          string    `json:"id"`
	Event       string    `json:"event"`
	Headline    string    `json:"headline"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Urgency     string    `json:"urgency"`
	AreaDesc    string    `json:"area_desc"`
	Onset       time.Time `json:"onset,omitempty"`
	Expires     time.Time `json:"expires,omitempty"`
}

// UVIndex is a reading from the optional UV provider.
type UVIndex struct {
	Value   float64   `json:"value"`
	MaxUV   float64   `json:"max_uv"`
	MaxAt   time.Time `json:"max_at,omitempty"`
	TakenAt time.Time `json:"taken_at"`
}

// WeatherPackage is the assembled response for one ZIP code.
type WeatherPackage struct {
	ZIP         string         `json:"zip"`
	Coordinates Coordinates    `json:"coordinates"`
	GridPoint   GridPoint      `json:"grid_point"`
	Forecast    Forecast       `json:"forecast"`
	Hourly      Forecast       `json:"hourly"`
	Observation *Observation   `json:"observation,omitempty"`
	Alerts      []Alert        `json:"alerts"`
	UV          *UVIndex       `json:"uv,omitempty"`
	FetchedAt   time.Time      `json:"fetched_at"`
}
