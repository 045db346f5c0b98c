package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// WindClass is the wind direction relative to the direction of travel.
type WindClass string

const (
	Headwind  WindClass = "headwind"
	Tailwind  WindClass = "tailwind"
	Crosswind WindClass = "crosswind"
)

const (
	headwindBelowDeg = 60.0
	tailwindAboveDeg = 120.0
)

// Bearing returns the initial great-circle bearing from point 1 to point 2
// in degrees, normalized to [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRad(lat1)
	phi2 := toRad(lat2)
	dLambda := toRad(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	deg := math.Mod(toDeg(math.Atan2(y, x))+360, 360)
	// Mod can hand back 360 for tiny negative angles after the shift.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// PointBearing is Bearing for orb points (lon, lat order).
func PointBearing(from, to orb.Point) float64 {
	return Bearing(from.Lat(), from.Lon(), to.Lat(), to.Lon())
}

// ClassifyWind compares the ride bearing with the direction the wind blows
// from. The angular difference is folded into [0, 180]; below 60 degrees the
// wind opposes travel, above 120 it aids it, anything in between (both
// boundaries included) is a crosswind.
func ClassifyWind(rideBearingDeg, windFromDeg float64) WindClass {
	diff := math.Abs(windFromDeg - rideBearingDeg)
	diff = math.Mod(diff, 360)
	if diff > 180 {
		diff = 360 - diff
	}

	switch {
	case math.IsNaN(diff):
		return Crosswind
	case diff < headwindBelowDeg:
		return Headwind
	case diff > tailwindAboveDeg:
		return Tailwind
	default:
		return Crosswind
	}
}

// ClassifyLeg classifies the wind at cur for a rider arriving from prev.
// A point without a predecessor has no bearing and is always a crosswind.
func ClassifyLeg(prev *orb.Point, cur orb.Point, windFromDeg float64) WindClass {
	if prev == nil {
		return Crosswind
	}
	return ClassifyWind(PointBearing(*prev, cur), windFromDeg)
}

func toRad(d float64) float64 { return d * math.Pi / 180 }

func toDeg(r float64) float64 { return r * 180 / math.Pi }
