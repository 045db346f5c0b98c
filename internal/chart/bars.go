package chart

import (
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/i474232898/ride-weather-viewer/internal/palette"
	"github.com/i474232898/ride-weather-viewer/internal/ride"
)

var precipitationLegend = drawing.Color{R: 70, G: 140, B: 255, A: 153}

// precipitationBars is a go-chart series drawing one bar per distance block,
// edge to edge, filled by the amount of rain.
type precipitationBars struct {
	name  string
	yAxis gochart.YAxisType
	data  []ride.PrecipitationDatum
}

func (b precipitationBars) GetName() string { return b.name }

func (b precipitationBars) GetYAxis() gochart.YAxisType { return b.yAxis }

func (b precipitationBars) GetStyle() gochart.Style {
	return gochart.Style{
		StrokeColor: precipitationLegend,
		FillColor:   precipitationLegend,
		StrokeWidth: 4,
	}
}

func (b precipitationBars) Validate() error { return nil }

func (b precipitationBars) Render(r gochart.Renderer, canvas gochart.Box, xrange, yrange gochart.Range, _ gochart.Style) {
	for _, d := range b.data {
		fill := palette.PrecipitationColor(d.PrecipitationMm)
		if fill.Alpha == 0 {
			continue
		}

		mm := math.Min(math.Max(d.PrecipitationMm, yrange.GetMin()), yrange.GetMax())
		x0 := canvas.Left + xrange.Translate(d.StartKm)
		x1 := canvas.Left + xrange.Translate(d.EndKm)
		y0 := canvas.Bottom
		y1 := canvas.Bottom - yrange.Translate(mm)

		r.SetFillColor(fill.Drawing())
		r.SetStrokeColor(drawing.ColorTransparent)
		r.SetStrokeWidth(0)
		r.MoveTo(x0, y0)
		r.LineTo(x0, y1)
		r.LineTo(x1, y1)
		r.LineTo(x1, y0)
		r.Close()
		r.Fill()
	}
}
