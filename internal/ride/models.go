package ride

import (
	"encoding/json"

	"github.com/paulmach/orb"

	"github.com/i474232898/ride-weather-viewer/internal/geo"
)

// Weather is the weather sample the annotation service attached to a point.
type Weather struct {
	Temperature      float64 `json:"temperature"`    // °C
	WindSpeedKmh     float64 `json:"wind_speed_kmh"` // km/h
	WindDirectionDeg float64 `json:"wind_direction_deg"`
	Precipitation    float64 `json:"precipitation"` // mm

	// Error is set by the service when it could not fetch weather for the point.
	Error string `json:"error,omitempty"`
}

// UnmarshalJSON accepts the older "wind_speed" member when "wind_speed_kmh"
// is absent.
func (w *Weather) UnmarshalJSON(data []byte) error {
	type plain Weather
	var aux struct {
		plain
		WindSpeedKmh *float64 `json:"wind_speed_kmh"`
		WindSpeed    *float64 `json:"wind_speed"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*w = Weather(aux.plain)
	switch {
	case aux.WindSpeedKmh != nil:
		w.WindSpeedKmh = *aux.WindSpeedKmh
	case aux.WindSpeed != nil:
		w.WindSpeedKmh = *aux.WindSpeed
	}
	return nil
}

// Point is a position along the route at a known cumulative distance, with
// the weather sampled there.
type Point struct {
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	DistanceKm float64  `json:"distance_km"`
	Timestamp  string   `json:"timestamp"`
	Weather    *Weather `json:"weather"`
}

// Position returns the point as an orb point (lon, lat).
func (p Point) Position() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// HasWeather reports whether the point carries a usable weather sample.
func (p Point) HasWeather() bool {
	return p.Weather != nil && p.Weather.Error == ""
}

// RideWeatherPoint is a Point with its derived wind classification.
type RideWeatherPoint struct {
	Point
	WindClass geo.WindClass `json:"wind_class"`
}

// Response is the JSON document returned by the annotation service.
type Response struct {
	FullPath         [][2]float64 `json:"full_path"` // [lat, lon] pairs
	RideWeather      []Point      `json:"ride_weather"`
	ElevationProfile []float64    `json:"elevation_profile"` // meters
}

// Path returns the full route as a line string.
func (r *Response) Path() orb.LineString {
	if r == nil {
		return nil
	}
	ls := make(orb.LineString, 0, len(r.FullPath))
	for _, ll := range r.FullPath {
		ls = append(ls, orb.Point{ll[1], ll[0]})
	}
	return ls
}

// Empty reports whether the response has nothing to draw.
func (r *Response) Empty() bool {
	return r == nil || (len(r.FullPath) == 0 && len(r.RideWeather) == 0 && len(r.ElevationProfile) == 0)
}

// DistanceBlock is one fixed-width segment of cumulative route distance.
type DistanceBlock struct {
	StartKm        float64
	EndKm          float64
	CenterKm       float64
	Representative RideWeatherPoint
}

// PrecipitationDatum is one precipitation bar, spanning exactly its block.
type PrecipitationDatum struct {
	CenterKm        float64 `json:"x"`
	StartKm         float64 `json:"x_min"`
	EndKm           float64 `json:"x_max"`
	PrecipitationMm float64 `json:"y"`
}

// OverlayDatum drives the wind/temperature glyphs drawn over the chart.
type OverlayDatum struct {
	CenterKm     float64       `json:"x"`
	TemperatureC float64       `json:"temperature"`
	WindSpeedKmh float64       `json:"wind_speed"`
	WindClass    geo.WindClass `json:"wind_class"`
}

// ElevationSample is one point of the elevation line.
type ElevationSample struct {
	DistanceKm float64
	ElevationM float64
}
