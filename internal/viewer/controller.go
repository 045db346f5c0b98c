// Package viewer drives one ride submission from the form to the renderers.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/ride-weather-viewer/internal/annotator"
	"github.com/i474232898/ride-weather-viewer/internal/ride"
)

var validate = validator.New()

// State is the controller's submission state.
type State int32

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// Form is what the page submits.
type Form struct {
	Filename  string
	GPX       []byte `validate:"required,min=1"`
	Date      string `validate:"required,datetime=2006-01-02"`
	StartTime string `validate:"required,datetime=15:04"`
	EndTime   string `validate:"required,datetime=15:04"`
}

// Annotator sends a ride to the annotation service.
type Annotator interface {
	Annotate(ctx context.Context, req annotator.Request) (*ride.Response, error)
}

// ChartRenderer owns the elevation chart.
type ChartRenderer interface {
	Redraw(resp *ride.Response) error
	Dispose()
}

// MapRenderer owns the route map.
type MapRenderer interface {
	Redraw(resp *ride.Response) error
	Clear()
}

// Options tunes a Controller.
type Options struct {
	Timeout time.Duration
	StepKm  float64
}

// Result summarises a completed submission.
type Result struct {
	ID               string    `json:"id"`
	ReceivedAt       time.Time `json:"received_at"`
	Points           int       `json:"points"`
	PathPoints       int       `json:"path_points"`
	ElevationSamples int       `json:"elevation_samples"`
	Blocks           int       `json:"blocks"`
	MapErr           string    `json:"map_error,omitempty"`
	ChartErr         string    `json:"chart_error,omitempty"`
}

// Controller runs submissions one at a time.
type Controller struct {
	state  atomic.Int32
	client Annotator
	chart  ChartRenderer
	mapv   MapRenderer
	opts   Options
	log    *zap.SugaredLogger

	mu   sync.RWMutex
	last *Result
}

// NewController wires the annotator and both renderers.
func NewController(client Annotator, chart ChartRenderer, mapv MapRenderer, opts Options, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.StepKm <= 0 {
		opts.StepKm = ride.DefaultStepKm
	}
	return &Controller{client: client, chart: chart, mapv: mapv, opts: opts, log: log}
}

// State reports whether a submission is in flight.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Last returns the most recent successful result, or nil.
func (c *Controller) Last() *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Submit validates the form, asks the service to annotate the ride and
// redraws both renderers with the answer. Only one submission runs at a time.
func (c *Controller) Submit(ctx context.Context, form Form) (*Result, error) {
	if !c.state.CompareAndSwap(int32(Idle), int32(Submitting)) {
		return nil, newError(KindBusy, "A ride is already being processed", nil)
	}
	defer c.state.Store(int32(Idle))

	req, err := buildRequest(form)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := c.log.With("submission", id)
	log.Infow("submitting ride", "file", req.Filename, "start", req.Start, "end", req.End, "bytes", len(req.GPX))

	callCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	resp, err := c.client.Annotate(callCtx, req)
	if err != nil {
		log.Errorw("annotation failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(KindTimeout, "The weather service did not answer in time", err)
		}
		return nil, newError(KindService, "Server error", err)
	}

	res := &Result{
		ID:               id,
		ReceivedAt:       time.Now().UTC(),
		PathPoints:       len(resp.FullPath),
		Points:           len(resp.RideWeather),
		ElevationSamples: len(resp.ElevationProfile),
		Blocks:           c.countBlocks(resp),
	}

	if err := guard("map", func() error { return c.mapv.Redraw(resp) }); err != nil {
		log.Errorw("map render failed", "error", err)
		res.MapErr = err.Error()
	}
	if err := guard("chart", func() error { return c.chart.Redraw(resp) }); err != nil {
		log.Errorw("chart render failed", "error", err)
		res.ChartErr = err.Error()
	}

	c.mu.Lock()
	c.last = res
	c.mu.Unlock()

	log.Infow("ride rendered", "points", res.Points, "blocks", res.Blocks)
	return res, nil
}

// Reset disposes both renderers and forgets the last result.
func (c *Controller) Reset() {
	c.mapv.Clear()
	c.chart.Dispose()

	c.mu.Lock()
	c.last = nil
	c.mu.Unlock()
}

func (c *Controller) countBlocks(resp *ride.Response) int {
	points := ride.ClassifyWinds(ride.FillDistances(resp.RideWeather))
	series, err := ride.Bin(points, c.opts.StepKm)
	if err != nil {
		return 0
	}
	return len(series.Blocks)
}

func buildRequest(form Form) (annotator.Request, error) {
	if err := validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "required" || fe.Tag() == "min" {
					return annotator.Request{}, newError(KindValidation, "Missing form fields", err)
				}
			}
		}
		return annotator.Request{}, newError(KindValidation, "Invalid date or time", err)
	}

	if !isGPX(form.GPX) {
		return annotator.Request{}, newError(KindValidation, "The uploaded file is not a GPX track", nil)
	}

	start, err := time.Parse(annotator.TimeLayout, form.Date+" "+form.StartTime)
	if err != nil {
		return annotator.Request{}, newError(KindValidation, "Invalid date or time", err)
	}
	end, err := time.Parse(annotator.TimeLayout, form.Date+" "+form.EndTime)
	if err != nil {
		return annotator.Request{}, newError(KindValidation, "Invalid date or time", err)
	}
	if end.Before(start) {
		return annotator.Request{}, newError(KindValidation, "End time must not be before start time", nil)
	}

	name := form.Filename
	if name == "" {
		name = "ride.gpx"
	}
	return annotator.Request{GPX: form.GPX, Filename: name, Start: start, End: end}, nil
}

// isGPX accepts GPX and any XML document; the service does the real parsing.
func isGPX(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/gpx+xml") || m.Is("text/xml") {
			return true
		}
	}
	return false
}

// guard runs one renderer so that its failure, panics included, cannot stop
// the other one.
func guard(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s renderer panicked: %v", name, r)
		}
	}()
	return fn()
}
