package chart

import (
	"fmt"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/i474232898/ride-weather-viewer/internal/geo"
	"github.com/i474232898/ride-weather-viewer/internal/palette"
	"github.com/i474232898/ride-weather-viewer/internal/ride"
)

const (
	glyphTopOffsetPx = 6
	labelOffsetPx    = 26
	labelFontSize    = 13.0
)

var (
	headwindColor = drawing.Color{R: 0xc0, G: 0x39, B: 0x2b, A: 255}
	tailwindColor = drawing.Color{R: 0x27, G: 0xae, B: 0x60, A: 255}
)

// Glyph is one wind icon plus temperature label, in canvas pixels.
type Glyph struct {
	X         float64 // horizontal center
	Top       float64 // top of the icon
	Size      float64 // 0 when no icon is drawn
	WindClass geo.WindClass
	Label     string
	LabelTop  float64
	Color     palette.Color
}

// layoutOverlay places one glyph per overlay datum at its block center,
// just below the top of the elevation axis. Crosswinds get no icon.
func layoutOverlay(data []ride.OverlayDatum, canvas gochart.Box, totalKm float64) []Glyph {
	if totalKm <= 0 {
		return nil
	}

	top := float64(canvas.Top + glyphTopOffsetPx)
	width := float64(canvas.Width())

	glyphs := make([]Glyph, 0, len(data))
	for _, d := range data {
		g := Glyph{
			X:         float64(canvas.Left) + d.CenterKm/totalKm*width,
			Top:       top,
			WindClass: d.WindClass,
			Label:     temperatureLabel(d.TemperatureC),
			LabelTop:  top + labelOffsetPx,
			Color:     palette.TemperatureColor(d.TemperatureC),
		}
		if d.WindClass == geo.Headwind || d.WindClass == geo.Tailwind {
			g.Size = palette.WindGlyphSize(d.WindSpeedKmh)
		}
		glyphs = append(glyphs, g)
	}
	return glyphs
}

func temperatureLabel(celsius float64) string {
	t := palette.RoundTemperature(celsius)
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return "–°C"
	}
	return fmt.Sprintf("%d°C", int(t))
}

// overlayElement draws the glyphs after every series, on top of the bars
// and the elevation line.
func overlayElement(data []ride.OverlayDatum, totalKm float64) gochart.Renderable {
	return func(r gochart.Renderer, canvas gochart.Box, defaults gochart.Style) {
		glyphs := layoutOverlay(data, canvas, totalKm)
		if len(glyphs) == 0 {
			return
		}

		font := defaults.Font
		if font == nil {
			f, err := gochart.GetDefaultFont()
			if err != nil {
				return
			}
			font = f
		}
		r.SetFont(font)
		r.SetFontSize(labelFontSize)

		for _, g := range glyphs {
			if g.Size > 0 {
				drawArrow(r, g)
			}

			r.SetFontColor(g.Color.Drawing())
			box := r.MeasureText(g.Label)
			r.Text(g.Label, int(math.Round(g.X))-box.Width()/2, int(g.LabelTop)+box.Height())
		}
	}
}

// drawArrow draws a horizontal arrow filling the glyph's square: pointing
// back against the direction of travel for a headwind, forward for a
// tailwind.
func drawArrow(r gochart.Renderer, g Glyph) {
	s := g.Size
	left := g.X - s/2
	right := g.X + s/2
	mid := g.Top + s/2
	shaft := s / 8
	head := s * 0.45

	pts := [][2]float64{
		{left, mid - shaft},
		{right - head, mid - shaft},
		{right - head, g.Top + s*0.15},
		{right, mid},
		{right - head, g.Top + s*0.85},
		{right - head, mid + shaft},
		{left, mid + shaft},
	}

	col := tailwindColor
	if g.WindClass == geo.Headwind {
		col = headwindColor
		for i := range pts {
			pts[i][0] = 2*g.X - pts[i][0]
		}
	}

	r.SetFillColor(col)
	r.SetStrokeColor(col)
	r.SetStrokeWidth(1)
	r.MoveTo(int(math.Round(pts[0][0])), int(math.Round(pts[0][1])))
	for _, p := range pts[1:] {
		r.LineTo(int(math.Round(p[0])), int(math.Round(p[1])))
	}
	r.Close()
	r.FillStroke()
}
