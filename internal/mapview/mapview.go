// Package mapview keeps the map overlay of the last ride: the route polyline,
// one marker per weather sample and the viewport that fits the route.
package mapview

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/i474232898/ride-weather-viewer/internal/palette"
	"github.com/i474232898/ride-weather-viewer/internal/ride"
)

// ErrNoOverlay is returned when there is nothing drawn on the map.
var ErrNoOverlay = errors.New("no route has been drawn")

const routeColor = "blue"

// TileLayer is the base layer. It survives every redraw.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// Marker is one weather sample on the map.
type Marker struct {
	Position  orb.Point
	Timestamp string
	Weather   *ride.Weather
	Popup     string
}

// Overlay is a copy of what is currently drawn.
type Overlay struct {
	Route    orb.LineString
	Markers  []Marker
	Viewport orb.Bound
}

// Empty reports whether nothing is drawn.
func (o Overlay) Empty() bool { return len(o.Route) == 0 }

// Map owns the overlay state. The base tile layer is configured once and is
// never removed; the route and markers are replaced wholesale on Redraw.
type Map struct {
	mu      sync.RWMutex
	tiles   TileLayer
	overlay Overlay
	log     *zap.SugaredLogger
}

// New creates a map with only its base layer.
func New(tiles TileLayer, log *zap.SugaredLogger) *Map {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Map{tiles: tiles, log: log}
}

// TileLayer returns the base layer.
func (m *Map) TileLayer() TileLayer { return m.tiles }

// Redraw removes the previous route and markers, then draws resp: the full
// path as one polyline, a marker per ride_weather point, and a viewport
// fitted to the path. A response without a path leaves the map empty.
func (m *Map) Redraw(resp *ride.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.overlay = Overlay{}

	route := resp.Path()
	if len(route) == 0 {
		m.log.Debug("map: no path to draw")
		return nil
	}

	markers := make([]Marker, 0, len(resp.RideWeather))
	for _, p := range resp.RideWeather {
		mk := Marker{
			Position:  p.Position(),
			Timestamp: p.Timestamp,
			Popup:     popup(p),
		}
		if p.HasWeather() {
			w := *p.Weather
			mk.Weather = &w
		}
		markers = append(markers, mk)
	}

	m.overlay = Overlay{
		Route:    route,
		Markers:  markers,
		Viewport: route.Bound(),
	}
	m.log.Debugw("map drawn", "path", len(route), "markers", len(markers))
	return nil
}

// Clear removes the route and markers, keeping the base layer.
func (m *Map) Clear() {
	m.mu.Lock()
	m.overlay = Overlay{}
	m.mu.Unlock()
}

// Snapshot returns a copy of the current overlay.
func (m *Map) Snapshot() Overlay {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o := m.overlay
	o.Route = append(orb.LineString(nil), o.Route...)
	o.Markers = append([]Marker(nil), o.Markers...)
	return o
}

// GeoJSON returns the overlay as a FeatureCollection: the route LineString
// first, then one Point per marker. The collection's bbox is the viewport.
func (m *Map) GeoJSON() ([]byte, error) {
	o := m.Snapshot()

	fc := geojson.NewFeatureCollection()
	if o.Empty() {
		return fc.MarshalJSON()
	}

	route := geojson.NewFeature(o.Route)
	route.Properties["kind"] = "route"
	route.Properties["color"] = routeColor
	fc.Append(route)

	for _, mk := range o.Markers {
		f := geojson.NewFeature(mk.Position)
		f.Properties["kind"] = "marker"
		f.Properties["timestamp"] = mk.Timestamp
		f.Properties["popup"] = mk.Popup
		if w := mk.Weather; w != nil {
			f.Properties["temperature"] = w.Temperature
			f.Properties["wind_speed_kmh"] = w.WindSpeedKmh
			f.Properties["wind_direction_deg"] = w.WindDirectionDeg
			f.Properties["precipitation"] = w.Precipitation
			f.Properties["color"] = palette.TemperatureColor(w.Temperature).CSS()
		}
		fc.Append(f)
	}

	fc.BBox = geojson.NewBBox(o.Viewport)
	return fc.MarshalJSON()
}

func popup(p ride.Point) string {
	ts := html.EscapeString(p.Timestamp)
	if !p.HasWeather() {
		return fmt.Sprintf("<b>Time:</b> %s<br><b>Weather:</b> unavailable", ts)
	}
	w := p.Weather
	return fmt.Sprintf(
		"<b>Time:</b> %s<br><b>Temp:</b> %s °C<br><b>Wind:</b> %s km/h<br><b>Rain:</b> %s mm",
		ts, num(w.Temperature), num(w.WindSpeedKmh), num(w.Precipitation),
	)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
