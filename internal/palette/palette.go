// Package palette maps weather values to display colors.
package palette

import (
	"fmt"
	"image/color"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Color is an sRGB color with a fractional alpha, as used in CSS rgba().
type Color struct {
	R, G, B uint8
	Alpha   float64
}

// Transparent is fully see-through; used for "no precipitation".
var Transparent = Color{}

func hex(r, g, b uint8) Color { return Color{R: r, G: g, B: b, Alpha: 1} }

func rgba(r, g, b uint8, a float64) Color { return Color{R: r, G: g, B: b, Alpha: a} }

// CSS renders the color as #rrggbb when opaque, rgba(...) otherwise.
func (c Color) CSS() string {
	if c.Alpha >= 1 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%g)", c.R, c.G, c.B, c.Alpha)
}

func (c Color) alpha8() uint8 {
	a := math.Max(0, math.Min(1, c.Alpha))
	return uint8(math.Round(a * 255))
}

// RGBA returns the non-premultiplied image/color value.
func (c Color) RGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.alpha8()}
}

// Drawing returns the color in go-chart's representation.
func (c Color) Drawing() drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.alpha8()}
}

var temperatureBands = []struct {
	below float64
	color Color
}{
	{0, hex(0x77, 0x97, 0xac)},
	{5, hex(0x34, 0x98, 0xdb)},
	{10, hex(0x5d, 0xad, 0xe2)},
	{18, hex(0x27, 0xae, 0x60)},
	{25, hex(0xf3, 0x9c, 0x12)},
}

var temperatureHot = hex(0xc0, 0x39, 0x2b)

// RoundTemperature rounds half up to a whole degree. Labels and colors both
// go through it so a "5°C" label is never painted in the "<5" color.
func RoundTemperature(celsius float64) float64 {
	return math.Floor(celsius + 0.5)
}

// TemperatureColor maps a temperature in °C to its band color. Bands are
// half-open, so a boundary value belongs to the warmer band.
func TemperatureColor(celsius float64) Color {
	t := RoundTemperature(celsius)
	if math.IsNaN(t) {
		return temperatureBands[0].color
	}
	for _, band := range temperatureBands {
		if t < band.below {
			return band.color
		}
	}
	return temperatureHot
}

var precipitationBands = []struct {
	below float64
	color Color
}{
	{0.1, rgba(180, 220, 255, 0.3)},
	{0.5, rgba(120, 180, 255, 0.45)},
	{1.0, rgba(70, 140, 255, 0.6)},
	{2.5, rgba(30, 90, 200, 0.75)},
}

var precipitationHeavy = rgba(0, 20, 100, 0.9)

// PrecipitationColor maps an amount in mm to a translucent blue; heavier rain
// is darker and more opaque. Zero means transparent.
func PrecipitationColor(mm float64) Color {
	if mm == 0 || math.IsNaN(mm) {
		return Transparent
	}
	for _, band := range precipitationBands {
		if mm < band.below {
			return band.color
		}
	}
	return precipitationHeavy
}

const (
	minGlyphPx      = 12.0
	maxGlyphExtraPx = 20.0
	glyphCapKmh     = 40.0
)

// WindGlyphSize scales a wind icon linearly with speed: 12px at calm, 32px
// at 40 km/h and above.
func WindGlyphSize(speedKmh float64) float64 {
	s := math.Max(0, math.Min(speedKmh, glyphCapKmh))
	if math.IsNaN(s) {
		s = 0
	}
	return minGlyphPx + s/glyphCapKmh*maxGlyphExtraPx
}
