// Package annotator talks to the external ride-weather service: it uploads a
// GPX track with a time window and gets back the weather along the route.
package annotator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/i474232898/ride-weather-viewer/internal/ride"
)

// TimeLayout is the format of start_time_str and end_time_str.
const TimeLayout = "2006-01-02 15:04"

const (
	fieldGPX   = "gpx_file"
	fieldStart = "start_time_str"
	fieldEnd   = "end_time_str"

	maxResponseBody = 64 << 20
)

// ErrMalformedResponse is returned when the body is not the expected JSON.
var ErrMalformedResponse = errors.New("annotation service returned a malformed response")

// Config describes how to reach the service.
type Config struct {
	Endpoint  string // POST target
	HealthURL string // GET target for Ping

	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	RateLimit float64 // requests per second, 0 = unlimited
	RateBurst int
}

// Request is one ride to annotate.
type Request struct {
	GPX      []byte
	Filename string
	Start    time.Time
	End      time.Time
}

// Client is the annotation service client.
type Client struct {
	endpoint  string
	healthURL string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
	limiter   *rate.Limiter
	log       *zap.SugaredLogger

	// healthCircuit guards Ping so a sleeping service seen by the keep-alive
	// job does not trip the breaker used for submissions.
	healthCircuit *gobreaker.CircuitBreaker
}

// New creates a Client sharing the given HTTP client.
func New(client *http.Client, cfg Config, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cb := newBreaker("ride-weather", log)
	healthCB := newBreaker("ride-weather-health", log)

	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 5 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		endpoint:  cfg.Endpoint,
		healthURL: cfg.HealthURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: initial,
				MaxInterval:     maxBackoff,
			},
		},
		circuit:       cb,
		healthCircuit: healthCB,
		limiter:       limiter,
		log:           log,
	}
}

func newBreaker(name string, log *zap.SugaredLogger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         name,
		MaxRequests:  1,
		Interval:     1 * time.Minute,
		Timeout:      30 * time.Second,
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Annotate posts the ride and decodes the service's answer.
func (c *Client) Annotate(ctx context.Context, req Request) (*ride.Response, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		r, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", contentType)
		r.Header.Set("Accept", "application/json")
		return r, nil
	}

	started := time.Now()
	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, c.limiter, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out ride.Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	c.log.Debugw("weather data received",
		"points", len(out.RideWeather),
		"path", len(out.FullPath),
		"elevation", len(out.ElevationProfile),
		"took", time.Since(started),
	)
	return &out, nil
}

// Ping checks that the service is up. It also wakes services hosted on
// platforms that idle them.
func (c *Client) Ping(ctx context.Context) error {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.healthURL, nil)
	}

	cfg := c.httpCfg
	cfg.Backoff.MaxRetries = 0

	resp, err := doRequestWithResilience(ctx, cfg, c.healthCircuit, nil, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}

func encodeForm(req Request) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := req.Filename
	if name == "" {
		name = "ride.gpx"
	}
	fw, err := w.CreateFormFile(fieldGPX, name)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(req.GPX); err != nil {
		return nil, "", err
	}
	if err := w.WriteField(fieldStart, req.Start.Format(TimeLayout)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField(fieldEnd, req.End.Format(TimeLayout)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
