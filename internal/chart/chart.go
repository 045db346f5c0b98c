// Package chart renders the elevation, precipitation and wind/temperature
// chart of a ride.
package chart

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"

	"github.com/i474232898/ride-weather-viewer/internal/ride"
)

// ErrNoChart is returned when there is no chart to write.
var ErrNoChart = errors.New("no chart has been drawn")

const rainAxisMaxMm = 10.0

var elevationColor = drawing.Color{R: 0, G: 128, B: 0, A: 255}

// Options sizes the chart and sets the block width.
type Options struct {
	Width  int
	Height int
	StepKm float64
}

// Chart is one fully built chart. It is never modified after Build.
type Chart struct {
	TotalKm      float64
	Elevation    []ride.ElevationSample
	ElevationMin float64
	ElevationMax float64
	Series       ride.Series

	opts Options
}

// Build bins the response and assembles the chart. It returns a nil chart
// without error when the response has no weather points, no elevation
// profile, or no distance.
func Build(resp *ride.Response, opts Options) (*Chart, error) {
	if resp == nil || len(resp.RideWeather) == 0 || len(resp.ElevationProfile) == 0 {
		return nil, nil
	}
	if opts.StepKm == 0 {
		opts.StepKm = ride.DefaultStepKm
	}

	points := ride.ClassifyWinds(ride.FillDistances(resp.RideWeather))
	series, err := ride.Bin(points, opts.StepKm)
	if err != nil {
		return nil, fmt.Errorf("bin ride: %w", err)
	}
	if series.TotalKm <= 0 {
		return nil, nil
	}

	low, high, _ := ride.ElevationBounds(resp.ElevationProfile)
	c := &Chart{
		TotalKm:      series.TotalKm,
		Elevation:    ride.ElevationSeries(resp.ElevationProfile, series.TotalKm),
		ElevationMin: low,
		ElevationMax: high,
		Series:       series,
		opts:         opts,
	}
	return c, nil
}

// newGraph lays the chart out. go-chart draws the primary y axis on the right
// and the secondary on the left, so rain is primary and elevation secondary.
// Rendering sets range domains in place, so every render gets fresh ranges.
func (c *Chart) newGraph() gochart.Chart {
	opts := c.opts
	xs := make([]float64, len(c.Elevation))
	ys := make([]float64, len(c.Elevation))
	for i, e := range c.Elevation {
		xs[i] = e.DistanceKm
		ys[i] = e.ElevationM
	}

	g := gochart.Chart{
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           "Distance (km)",
			Range: &gochart.ContinuousRange{Min: 0, Max: c.TotalKm},
			Ticks: distanceTicks(c.TotalKm),
		},
		YAxis: gochart.YAxis{
			Name:           "Rain (mm)",
			Range:          &gochart.ContinuousRange{Min: 0, Max: rainAxisMaxMm},
			ValueFormatter: formatWhole,
		},
		YAxisSecondary: gochart.YAxis{
			Name:           "Elevation (m)",
			Range:          &gochart.ContinuousRange{Min: c.ElevationMin, Max: c.ElevationMax},
			ValueFormatter: formatWhole,
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Elevation (m)",
				XValues: xs,
				YValues: ys,
				YAxis:   gochart.YAxisSecondary,
				Style: gochart.Style{
					StrokeColor: elevationColor,
					StrokeWidth: 2,
				},
			},
			precipitationBars{
				name:  "Precipitation (mm)",
				yAxis: gochart.YAxisPrimary,
				data:  c.Series.Precipitation,
			},
		},
	}
	return g
}

var tickStepsKm = []float64{1, 2, 5, 10, 20, 25, 50, 100, 200, 250, 500, 1000}

const maxDistanceTicks = 12

// distanceTicks labels the x axis on whole kilometres. Generated ticks fall
// on fractions that repeat once rounded.
func distanceTicks(totalKm float64) []gochart.Tick {
	if !(totalKm > 0) {
		return nil
	}
	step := tickStepsKm[len(tickStepsKm)-1]
	for _, s := range tickStepsKm {
		if totalKm/s <= maxDistanceTicks {
			step = s
			break
		}
	}
	for totalKm/step > maxDistanceTicks {
		step *= 10
	}

	var ticks []gochart.Tick
	for v := 0.0; v <= totalKm; v += step {
		ticks = append(ticks, gochart.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', 0, 64)})
	}
	return ticks
}

func formatWhole(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return fmt.Sprint(v)
}

func (c *Chart) render(rp gochart.RendererProvider, w io.Writer) error {
	g := c.newGraph()
	g.Elements = []gochart.Renderable{
		gochart.Legend(&g),
		overlayElement(c.Series.Overlay, c.TotalKm),
	}
	return g.Render(rp, w)
}

// Renderer owns the single live chart. Every redraw throws the previous
// chart away before building the next one.
type Renderer struct {
	mu      sync.Mutex
	opts    Options
	current *Chart
	log     *zap.SugaredLogger
}

// NewRenderer creates a Renderer with no chart.
func NewRenderer(opts Options, log *zap.SugaredLogger) *Renderer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Renderer{opts: opts, log: log}
}

// Redraw disposes the current chart and draws resp. An empty response leaves
// no chart.
func (r *Renderer) Redraw(resp *ride.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = nil

	c, err := Build(resp, r.opts)
	if err != nil {
		return err
	}
	if c == nil {
		r.log.Debug("chart: nothing to draw")
		return nil
	}

	r.current = c
	r.log.Debugw("chart drawn",
		"total_km", c.TotalKm,
		"blocks", len(c.Series.Blocks),
		"overlay", len(c.Series.Overlay),
	)
	return nil
}

// Dispose drops the current chart.
func (r *Renderer) Dispose() {
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
}

// Current returns the live chart, or nil.
func (r *Renderer) Current() *Chart {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// WriteSVG renders the live chart as SVG.
func (r *Renderer) WriteSVG(w io.Writer) error {
	return r.write(gochart.SVG, w)
}

// WritePNG renders the live chart as PNG.
func (r *Renderer) WritePNG(w io.Writer) error {
	return r.write(gochart.PNG, w)
}

func (r *Renderer) write(rp gochart.RendererProvider, w io.Writer) error {
	c := r.Current()
	if c == nil {
		return ErrNoChart
	}
	return c.render(rp, w)
}
