package ride

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/ride-weather-viewer/internal/geo"
)

func weatherAt(temp, precip float64) *Weather {
	return &Weather{Temperature: temp, WindSpeedKmh: 10, WindDirectionDeg: 0, Precipitation: precip}
}

func TestBinThreePointExample(t *testing.T) {
	points := ClassifyWinds([]Point{
		{Lat: 0, Lon: 0, DistanceKm: 0, Weather: weatherAt(10, 0)},
		{Lat: 0.045, Lon: 0, DistanceKm: 5, Weather: weatherAt(12, 0.2)},
		{Lat: 0.1, Lon: 0, DistanceKm: 11, Weather: weatherAt(14, 1.2)},
	})

	s, err := Bin(points, 6)
	require.NoError(t, err)

	assert.Equal(t, 11.0, s.TotalKm)
	require.Len(t, s.Blocks, 2)

	assert.Equal(t, 0.0, s.Blocks[0].StartKm)
	assert.Equal(t, 6.0, s.Blocks[0].EndKm)
	assert.Equal(t, 3.0, s.Blocks[0].CenterKm)
	assert.Equal(t, 5.0, s.Blocks[0].Representative.DistanceKm)

	assert.Equal(t, 6.0, s.Blocks[1].StartKm)
	assert.Equal(t, 11.0, s.Blocks[1].EndKm)
	assert.Equal(t, 8.5, s.Blocks[1].CenterKm)
	assert.Equal(t, 11.0, s.Blocks[1].Representative.DistanceKm)

	want := []PrecipitationDatum{
		{CenterKm: 3, StartKm: 0, EndKm: 6, PrecipitationMm: 0.2},
		{CenterKm: 8.5, StartKm: 6, EndKm: 11, PrecipitationMm: 1.2},
	}
	if diff := cmp.Diff(want, s.Precipitation); diff != "" {
		t.Fatalf("precipitation mismatch (-want +got):\n%s", diff)
	}

	// Northbound legs with wind from the north.
	wantOverlay := []OverlayDatum{
		{CenterKm: 3, TemperatureC: 12, WindSpeedKmh: 10, WindClass: geo.Headwind},
		{CenterKm: 8.5, TemperatureC: 14, WindSpeedKmh: 10, WindClass: geo.Headwind},
	}
	if diff := cmp.Diff(wantOverlay, s.Overlay); diff != "" {
		t.Fatalf("overlay mismatch (-want +got):\n%s", diff)
	}
}

func TestBinFallsBackToLastPoint(t *testing.T) {
	// The ride rounds up to 11 km; the last 1 km block is centered at 10.5,
	// beyond the last point at 10.2.
	points := ClassifyWinds([]Point{
		{DistanceKm: 0, Weather: weatherAt(1, 0)},
		{DistanceKm: 10.2, Weather: weatherAt(2, 0.4)},
	})

	s, err := Bin(points, 1)
	require.NoError(t, err)
	require.Len(t, s.Blocks, 11)

	lastBlock := s.Blocks[len(s.Blocks)-1]
	assert.Equal(t, 10.5, lastBlock.CenterKm)
	assert.Equal(t, 10.2, lastBlock.Representative.DistanceKm)
}

func TestBinSkipsBlocksWithoutWeather(t *testing.T) {
	points := ClassifyWinds([]Point{
		{DistanceKm: 0, Weather: weatherAt(5, 0)},
		{DistanceKm: 6, Weather: nil},
		{DistanceKm: 12, Weather: &Weather{Error: "API error: 500"}},
		{DistanceKm: 18, Weather: weatherAt(7, 3)},
	})

	s, err := Bin(points, 6)
	require.NoError(t, err)

	assert.Len(t, s.Blocks, 3)
	require.Len(t, s.Precipitation, 1)
	assert.Len(t, s.Overlay, 1)
	assert.Equal(t, 15.0, s.Precipitation[0].CenterKm)
}

func TestBinErrors(t *testing.T) {
	_, err := Bin(nil, 6)
	assert.ErrorIs(t, err, ErrNoPoints)

	points := ClassifyWinds([]Point{{DistanceKm: 3}})
	for _, step := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err = Bin(points, step)
		assert.ErrorIs(t, err, ErrInvalidStep, "step=%v", step)
	}

	_, err = Bin(ClassifyWinds([]Point{{DistanceKm: math.Inf(1)}}), 6)
	assert.ErrorIs(t, err, ErrInvalidDistance)
}

func TestBinZeroDistanceHasNoBlocks(t *testing.T) {
	s, err := Bin(ClassifyWinds([]Point{{DistanceKm: 0, Weather: weatherAt(3, 0)}}), 6)
	require.NoError(t, err)
	assert.Empty(t, s.Blocks)
	assert.Empty(t, s.Precipitation)
}

func TestBinTilingProperties(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for iter := 0; iter < 500; iter++ {
		n := 1 + r.Intn(40)
		pts := make([]Point, n)
		var km float64
		for i := range pts {
			if i > 0 {
				km += r.Float64() * 4
			}
			var w *Weather
			if r.Intn(5) > 0 {
				w = weatherAt(r.Float64()*30, r.Float64()*3)
			}
			pts[i] = Point{DistanceKm: km, Weather: w}
		}
		step := 0.1 + r.Float64()*10

		s, err := Bin(ClassifyWinds(pts), step)
		require.NoError(t, err)

		wantBlocks := 0
		for float64(wantBlocks)*step < s.TotalKm {
			wantBlocks++
		}
		require.Len(t, s.Blocks, wantBlocks)

		missing := 0
		for i, b := range s.Blocks {
			if !b.Representative.HasWeather() {
				missing++
			}
			assert.Less(t, b.StartKm, b.EndKm, "empty block %d", i)
			if i == 0 {
				assert.Equal(t, 0.0, b.StartKm)
			} else {
				assert.Equal(t, s.Blocks[i-1].EndKm, b.StartKm, "gap or overlap at block %d", i)
			}
		}
		if wantBlocks > 0 {
			assert.Equal(t, s.TotalKm, s.Blocks[len(s.Blocks)-1].EndKm)
		}
		assert.Len(t, s.Precipitation, wantBlocks-missing)
		assert.Len(t, s.Overlay, wantBlocks-missing)
	}
}

func TestBinNoEmptyTrailingBlock(t *testing.T) {
	pts := ClassifyWinds([]Point{
		{DistanceKm: 0, Weather: weatherAt(10, 0)},
		{DistanceKm: 20.5, Weather: weatherAt(12, 1)},
	})

	s, err := Bin(pts, 0.7)
	require.NoError(t, err)
	require.Equal(t, 21.0, s.TotalKm)
	require.Len(t, s.Blocks, 30)

	last := s.Blocks[len(s.Blocks)-1]
	assert.Equal(t, 21.0, last.EndKm)
	assert.Less(t, last.StartKm, last.EndKm)
}

func TestBinRepresentativeIsNeverInterpolated(t *testing.T) {
	pts := []Point{
		{DistanceKm: 0, Weather: weatherAt(0, 0)},
		{DistanceKm: 20, Weather: weatherAt(20, 2)},
	}
	s, err := Bin(ClassifyWinds(pts), 6)
	require.NoError(t, err)

	for _, o := range s.Overlay {
		assert.Contains(t, []float64{0, 20}, o.TemperatureC)
	}
}

func TestClassifyWindsFirstPointIsCrosswind(t *testing.T) {
	pts := ClassifyWinds([]Point{
		{Lat: 0, Lon: 0, Weather: &Weather{WindDirectionDeg: 0}},
		{Lat: 1, Lon: 0, Weather: &Weather{WindDirectionDeg: 0}},
		{Lat: 2, Lon: 0, Weather: &Weather{WindDirectionDeg: 180}},
		{Lat: 3, Lon: 0, Weather: &Weather{WindDirectionDeg: 90}},
		{Lat: 4, Lon: 0},
	})

	got := make([]geo.WindClass, len(pts))
	for i, p := range pts {
		got[i] = p.WindClass
	}
	assert.Equal(t, []geo.WindClass{geo.Crosswind, geo.Headwind, geo.Tailwind, geo.Crosswind, geo.Crosswind}, got)
}

func TestFillDistances(t *testing.T) {
	pts := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.1},
		{Lat: 0, Lon: 0.2},
	}
	filled := FillDistances(pts)

	assert.Equal(t, 0.0, filled[0].DistanceKm)
	assert.InDelta(t, 11.1, filled[1].DistanceKm, 0.1)
	assert.InDelta(t, 22.2, filled[2].DistanceKm, 0.2)
	assert.Equal(t, 0.0, pts[2].DistanceKm, "input must not be modified")

	withDistances := []Point{{DistanceKm: 0}, {DistanceKm: 4}}
	assert.Equal(t, withDistances, FillDistances(withDistances))
}

func TestElevationSeries(t *testing.T) {
	got := ElevationSeries([]float64{100, 150, 120}, 10)
	want := []ElevationSample{{0, 100}, {5, 150}, {10, 120}}
	assert.Equal(t, want, got)

	assert.Nil(t, ElevationSeries(nil, 10))
	assert.Equal(t, []ElevationSample{{0, 42}}, ElevationSeries([]float64{42}, 10))
}

func TestElevationBounds(t *testing.T) {
	low, high, ok := ElevationBounds([]float64{120, 80, 300})
	require.True(t, ok)
	assert.Equal(t, 80.0, low)
	assert.Equal(t, 400.0, high)

	_, _, ok = ElevationBounds(nil)
	assert.False(t, ok)
}
