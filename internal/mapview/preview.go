package mapview

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/i474232898/ride-weather-viewer/internal/palette"
)

const (
	previewPadding   = 24.0
	markerRadius     = 5.0
	routeWidth       = 3.0
	minSpanMeters    = 200.0
	previewFontPoint = 11
)

var (
	previewBackground = color.NRGBA{R: 0xf2, G: 0xef, B: 0xe9, A: 255}
	previewRoute      = color.NRGBA{R: 0, G: 0, B: 255, A: 200}
	noWeatherMarker   = color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 255}

	fontOnce   sync.Once
	parsedFont *truetype.Font
	fontErr    error
)

// previewFont returns a new face on the shared parsed font. Faces keep glyph
// buffers and must not be shared between concurrent renders.
func previewFont() (font.Face, error) {
	fontOnce.Do(func() {
		parsedFont, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return truetype.NewFace(parsedFont, &truetype.Options{Size: previewFontPoint}), nil
}

// viewportTransform maps mercator meters into a width x height image with
// padding, preserving aspect ratio and centering the route.
type viewportTransform struct {
	minX, maxY float64
	scale      float64
	offX, offY float64
}

func newViewportTransform(b orb.Bound, width, height int) viewportTransform {
	spanX := math.Max(b.Max[0]-b.Min[0], minSpanMeters)
	spanY := math.Max(b.Max[1]-b.Min[1], minSpanMeters)
	cx, cy := (b.Min[0]+b.Max[0])/2, (b.Min[1]+b.Max[1])/2

	availW := math.Max(float64(width)-2*previewPadding, 1)
	availH := math.Max(float64(height)-2*previewPadding, 1)
	scale := math.Min(availW/spanX, availH/spanY)

	return viewportTransform{
		minX:  cx - spanX/2,
		maxY:  cy + spanY/2,
		scale: scale,
		offX:  (float64(width) - spanX*scale) / 2,
		offY:  (float64(height) - spanY*scale) / 2,
	}
}

func (t viewportTransform) apply(p orb.Point) (float64, float64) {
	return t.offX + (p[0]-t.minX)*t.scale, t.offY + (t.maxY-p[1])*t.scale
}

// WritePNG draws a static preview of the overlay (no base tiles): the route
// and the markers colored by temperature, fitted to the viewport.
func (m *Map) WritePNG(w io.Writer, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid preview size %dx%d", width, height)
	}

	o := m.Snapshot()
	if o.Empty() {
		return ErrNoOverlay
	}

	route := project.LineString(o.Route.Clone(), project.WGS84.ToMercator)
	t := newViewportTransform(route.Bound(), width, height)

	dc := gg.NewContext(width, height)
	dc.SetColor(previewBackground)
	dc.Clear()

	dc.SetColor(previewRoute)
	dc.SetLineWidth(routeWidth)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for i, p := range route {
		x, y := t.apply(p)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	face, err := previewFont()
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	dc.SetFontFace(face)

	for _, mk := range o.Markers {
		x, y := t.apply(project.Point(mk.Position, project.WGS84.ToMercator))

		var fill color.Color = noWeatherMarker
		label := ""
		if mk.Weather != nil {
			c := palette.TemperatureColor(mk.Weather.Temperature)
			fill = c.RGBA()
			label = fmt.Sprintf("%d°", int(palette.RoundTemperature(mk.Weather.Temperature)))
		}

		dc.DrawCircle(x, y, markerRadius)
		dc.SetColor(fill)
		dc.FillPreserve()
		dc.SetColor(color.White)
		dc.SetLineWidth(1.5)
		dc.Stroke()

		if label != "" {
			dc.SetColor(color.Black)
			dc.DrawStringAnchored(label, x+markerRadius+2, y, 0, 0.5)
		}
	}

	return dc.EncodePNG(w)
}
