package ride

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/samber/lo"

	"github.com/i474232898/ride-weather-viewer/internal/geo"
)

// DefaultStepKm is the width of a distance block.
const DefaultStepKm = 6.0

// ElevationHeadroomM is added above the highest elevation on the chart axis.
const ElevationHeadroomM = 100.0

var (
	ErrNoPoints        = errors.New("ride has no weather points")
	ErrInvalidStep     = errors.New("block step must be a positive number of km")
	ErrInvalidDistance = errors.New("ride distance is not a finite number")
)

// Series is the binned view of a ride.
type Series struct {
	TotalKm       float64
	StepKm        float64
	Blocks        []DistanceBlock
	Precipitation []PrecipitationDatum
	Overlay       []OverlayDatum
}

// ClassifyWinds derives the wind class of every point once, from the bearing
// of the leg arriving at it and the direction its wind blows from. The first
// point, and any point without weather, is a crosswind.
func ClassifyWinds(points []Point) []RideWeatherPoint {
	out := make([]RideWeatherPoint, len(points))

	var prev *orb.Point
	for i, p := range points {
		pos := p.Position()

		class := geo.Crosswind
		if p.HasWeather() {
			class = geo.ClassifyLeg(prev, pos, p.Weather.WindDirectionDeg)
		}
		out[i] = RideWeatherPoint{Point: p, WindClass: class}

		prevPos := pos
		prev = &prevPos
	}
	return out
}

// FillDistances derives cumulative distances from consecutive haversine legs
// when the service left distance_km out (every point at 0 km). Points that
// already carry distances are returned unchanged.
func FillDistances(points []Point) []Point {
	if len(points) < 2 || !lo.EveryBy(points, func(p Point) bool { return p.DistanceKm == 0 }) {
		return points
	}

	out := make([]Point, len(points))
	copy(out, points)

	var km float64
	for i := 1; i < len(out); i++ {
		km += orbgeo.DistanceHaversine(out[i-1].Position(), out[i].Position()) / 1000
		out[i].DistanceKm = km
	}
	return out
}

// TotalDistanceKm is the last point's cumulative distance rounded up, so the
// final partial block is never truncated.
func TotalDistanceKm(points []RideWeatherPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return math.Ceil(points[len(points)-1].DistanceKm)
}

// Bin cuts the ride into blocks of stepKm and picks one representative point
// per block: the first point at or past the block center, or the last point
// when the center lies beyond every point. Samples are never interpolated or
// averaged, so sparse sampling can make neighbouring blocks share a point.
// Blocks whose representative has no weather produce no data.
func Bin(points []RideWeatherPoint, stepKm float64) (Series, error) {
	if len(points) == 0 {
		return Series{}, ErrNoPoints
	}
	if !(stepKm > 0) || math.IsInf(stepKm, 1) {
		return Series{}, fmt.Errorf("%w: %v", ErrInvalidStep, stepKm)
	}

	total := TotalDistanceKm(points)
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return Series{}, fmt.Errorf("%w: %v", ErrInvalidDistance, total)
	}

	s := Series{TotalKm: total, StepKm: stepKm}
	if total <= 0 {
		return s, nil
	}

	count := int(math.Ceil(total / stepKm))
	last := points[len(points)-1]

	s.Blocks = make([]DistanceBlock, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * stepKm
		if start >= total {
			// total/stepKm can overshoot an exact multiple by one ulp.
			break
		}
		end := math.Min(float64(i+1)*stepKm, total)
		center := start + (end-start)/2

		rep, ok := lo.Find(points, func(p RideWeatherPoint) bool { return p.DistanceKm >= center })
		if !ok {
			rep = last
		}

		s.Blocks = append(s.Blocks, DistanceBlock{
			StartKm:        start,
			EndKm:          end,
			CenterKm:       center,
			Representative: rep,
		})

		if !rep.HasWeather() {
			continue
		}
		s.Precipitation = append(s.Precipitation, PrecipitationDatum{
			CenterKm:        center,
			StartKm:         start,
			EndKm:           end,
			PrecipitationMm: rep.Weather.Precipitation,
		})
		s.Overlay = append(s.Overlay, OverlayDatum{
			CenterKm:     center,
			TemperatureC: rep.Weather.Temperature,
			WindSpeedKmh: rep.Weather.WindSpeedKmh,
			WindClass:    rep.WindClass,
		})
	}
	return s, nil
}

// ElevationSeries spreads the elevation readings evenly over [0, totalKm].
func ElevationSeries(profile []float64, totalKm float64) []ElevationSample {
	if len(profile) == 0 {
		return nil
	}
	if len(profile) == 1 {
		return []ElevationSample{{DistanceKm: 0, ElevationM: profile[0]}}
	}

	last := float64(len(profile) - 1)
	return lo.Map(profile, func(e float64, i int) ElevationSample {
		return ElevationSample{DistanceKm: float64(i) / last * totalKm, ElevationM: e}
	})
}

// ElevationBounds returns the elevation axis range: the lowest reading and
// the highest reading plus ElevationHeadroomM.
func ElevationBounds(profile []float64) (low, high float64, ok bool) {
	if len(profile) == 0 {
		return 0, 0, false
	}
	return lo.Min(profile), lo.Max(profile) + ElevationHeadroomM, true
}
