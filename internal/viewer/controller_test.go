package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/ride-weather-viewer/internal/annotator"
	"github.com/i474232898/ride-weather-viewer/internal/ride"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg>
    <trkpt lat="52.0" lon="13.0"></trkpt>
    <trkpt lat="52.1" lon="13.0"></trkpt>
  </trkseg></trk>
</gpx>`

type fakeAnnotator struct {
	mu    sync.Mutex
	calls []annotator.Request
	fn    func(ctx context.Context, req annotator.Request) (*ride.Response, error)
}

func (f *fakeAnnotator) Annotate(ctx context.Context, req annotator.Request) (*ride.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.fn(ctx, req)
}

func (f *fakeAnnotator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRenderer struct {
	redraws  int
	disposed int
	last     *ride.Response
	err      error
	panicMsg string
}

func (f *fakeRenderer) Redraw(resp *ride.Response) error {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.redraws++
	f.last = resp
	return f.err
}

func (f *fakeRenderer) Dispose() { f.disposed++ }
func (f *fakeRenderer) Clear()   { f.disposed++ }

func sampleResponse() *ride.Response {
	w := &ride.Weather{Temperature: 10, WindSpeedKmh: 15, Precipitation: 0.2}
	return &ride.Response{
		FullPath: [][2]float64{{52.0, 13.0}, {52.05, 13.0}, {52.1, 13.0}},
		RideWeather: []ride.Point{
			{Lat: 52.0, Lon: 13.0, DistanceKm: 0, Weather: w},
			{Lat: 52.05, Lon: 13.0, DistanceKm: 5.5, Weather: w},
			{Lat: 52.1, Lon: 13.0, DistanceKm: 11.2, Weather: w},
		},
		ElevationProfile: []float64{40, 55, 60},
	}
}

func validForm() Form {
	return Form{
		Filename:  "morning.gpx",
		GPX:       []byte(sampleGPX),
		Date:      "2025-06-01",
		StartTime: "08:00",
		EndTime:   "10:30",
	}
}

func okAnnotator() *fakeAnnotator {
	return &fakeAnnotator{fn: func(context.Context, annotator.Request) (*ride.Response, error) {
		return sampleResponse(), nil
	}}
}

func TestSubmitSuccess(t *testing.T) {
	ann := okAnnotator()
	chart, mapv := &fakeRenderer{}, &fakeRenderer{}
	c := NewController(ann, chart, mapv, Options{Timeout: time.Second}, nil)

	res, err := c.Submit(context.Background(), validForm())
	require.NoError(t, err)

	require.Equal(t, 1, ann.callCount())
	req := ann.calls[0]
	assert.Equal(t, "morning.gpx", req.Filename)
	assert.Equal(t, "2025-06-01 08:00", req.Start.Format(annotator.TimeLayout))
	assert.Equal(t, "2025-06-01 10:30", req.End.Format(annotator.TimeLayout))

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 3, res.Points)
	assert.Equal(t, 3, res.PathPoints)
	assert.Equal(t, 3, res.ElevationSamples)
	assert.Equal(t, 2, res.Blocks)
	assert.Empty(t, res.MapErr)
	assert.Empty(t, res.ChartErr)

	assert.Equal(t, 1, chart.redraws)
	assert.Equal(t, 1, mapv.redraws)
	assert.Same(t, res, c.Last())
	assert.Equal(t, Idle, c.State())
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Form)
		message string
	}{
		{"missing file", func(f *Form) { f.GPX = nil }, "Missing form fields"},
		{"empty file", func(f *Form) { f.GPX = []byte{} }, "Missing form fields"},
		{"missing date", func(f *Form) { f.Date = "" }, "Missing form fields"},
		{"missing start", func(f *Form) { f.StartTime = "" }, "Missing form fields"},
		{"missing end", func(f *Form) { f.EndTime = "" }, "Missing form fields"},
		{"bad date", func(f *Form) { f.Date = "01/06/2025" }, "Invalid date or time"},
		{"bad time", func(f *Form) { f.StartTime = "8am" }, "Invalid date or time"},
		{"end before start", func(f *Form) { f.EndTime = "07:59" }, "End time must not be before start time"},
		{"not gpx", func(f *Form) { f.GPX = []byte("just some text") }, "The uploaded file is not a GPX track"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann := okAnnotator()
			c := NewController(ann, &fakeRenderer{}, &fakeRenderer{}, Options{}, nil)

			form := validForm()
			tt.mutate(&form)

			_, err := c.Submit(context.Background(), form)
			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, KindValidation, verr.Kind)
			assert.Equal(t, tt.message, verr.Message)
			assert.Zero(t, ann.callCount(), "no request may be sent for an invalid form")
			assert.Equal(t, Idle, c.State())
		})
	}
}

func TestSubmitEqualStartAndEndIsValid(t *testing.T) {
	c := NewController(okAnnotator(), &fakeRenderer{}, &fakeRenderer{}, Options{}, nil)
	form := validForm()
	form.EndTime = form.StartTime

	_, err := c.Submit(context.Background(), form)
	require.NoError(t, err)
}

func TestSubmitServiceError(t *testing.T) {
	ann := &fakeAnnotator{fn: func(context.Context, annotator.Request) (*ride.Response, error) {
		return nil, &annotator.StatusError{Code: 500, Message: "boom"}
	}}
	chart, mapv := &fakeRenderer{}, &fakeRenderer{}
	c := NewController(ann, chart, mapv, Options{}, nil)

	_, err := c.Submit(context.Background(), validForm())
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindService, verr.Kind)
	assert.ErrorIs(t, err, annotator.ErrServiceStatus)
	assert.Zero(t, chart.redraws)
	assert.Zero(t, mapv.redraws)
	assert.Nil(t, c.Last())
	assert.Equal(t, Idle, c.State())
}

func TestSubmitTimeout(t *testing.T) {
	ann := &fakeAnnotator{fn: func(ctx context.Context, _ annotator.Request) (*ride.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := NewController(ann, &fakeRenderer{}, &fakeRenderer{}, Options{Timeout: 20 * time.Millisecond}, nil)

	_, err := c.Submit(context.Background(), validForm())
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindTimeout, verr.Kind)
	assert.Equal(t, Idle, c.State())
}

func TestSubmitBusy(t *testing.T) {
	release := make(chan struct{})
	ann := &fakeAnnotator{fn: func(context.Context, annotator.Request) (*ride.Response, error) {
		<-release
		return sampleResponse(), nil
	}}
	c := NewController(ann, &fakeRenderer{}, &fakeRenderer{}, Options{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), validForm())
		done <- err
	}()

	require.Eventually(t, func() bool { return c.State() == Submitting }, time.Second, time.Millisecond)

	_, err := c.Submit(context.Background(), validForm())
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindBusy, verr.Kind)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 1, ann.callCount())
}

func TestSubmitRenderersAreIsolated(t *testing.T) {
	chart := &fakeRenderer{panicMsg: "chart exploded"}
	mapv := &fakeRenderer{err: errors.New("map failed")}
	c := NewController(okAnnotator(), chart, mapv, Options{}, nil)

	res, err := c.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, "map failed", res.MapErr)
	assert.Contains(t, res.ChartErr, "chart exploded")
	assert.Equal(t, 1, mapv.redraws)
}

func TestSubmitMalformedResponseStillRenders(t *testing.T) {
	ann := &fakeAnnotator{fn: func(context.Context, annotator.Request) (*ride.Response, error) {
		return &ride.Response{}, nil
	}}
	chart, mapv := &fakeRenderer{}, &fakeRenderer{}
	c := NewController(ann, chart, mapv, Options{}, nil)

	res, err := c.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Zero(t, res.Points)
	assert.Zero(t, res.Blocks)
	assert.Equal(t, 1, chart.redraws)
	assert.Equal(t, 1, mapv.redraws)
}

func TestReset(t *testing.T) {
	chart, mapv := &fakeRenderer{}, &fakeRenderer{}
	c := NewController(okAnnotator(), chart, mapv, Options{}, nil)
	_, err := c.Submit(context.Background(), validForm())
	require.NoError(t, err)

	c.Reset()
	assert.Equal(t, 1, chart.disposed)
	assert.Equal(t, 1, mapv.disposed)
	assert.Nil(t, c.Last())
}
