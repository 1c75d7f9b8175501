package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// Router error kinds. All of them are contained by the Enhancer; callers of
// the OSRM client directly can classify with errors.Is.
var (
	ErrRouterFailure    = errors.New("router failure")
	ErrRouterTimeout    = errors.New("router timeout")
	ErrRouterBadPayload = errors.New("router bad payload")
)

const (
	defaultOSRMBaseURL = "http://localhost:5000"
	defaultOSRMTimeout = 5 * time.Second

	// osrmEnvVar overrides the base URL from the environment.
	osrmEnvVar = "OSRM_BASE_URL"

	routerAttempts = 2
)

// RouterResult is the parsed primary route plus alternatives.
type RouterResult struct {
	DistanceKm   float64
	DurationMin  float64
	Geometry     string
	Alternatives []Alternative
}

// OSRMClient talks to an OSRM-compatible HTTP routing service. One bounded
// retry is attempted before the error propagates (and the Enhancer falls
// back).
type OSRMClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewOSRMClient builds a client. An empty baseURL falls back to the
// OSRM_BASE_URL environment variable, then the localhost default. A zero
// timeout uses the 5 s default.
func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	if baseURL == "" {
		baseURL = os.Getenv(osrmEnvVar)
	}
	if baseURL == "" {
		baseURL = defaultOSRMBaseURL
	}
	if timeout <= 0 {
		timeout = defaultOSRMTimeout
	}
	return &OSRMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
	}
}

// osrm wire format (subset).
type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"` // metres
	Duration float64 `json:"duration"` // seconds
	Geometry string  `json:"geometry"` // encoded polyline
}

// Route requests the driving route through waypoints in order, asking for
// full overview, alternatives, steps, and polyline geometry. Every call
// carries the client deadline; expiry classifies as ErrRouterTimeout.
func (c *OSRMClient) Route(ctx context.Context, waypoints []geo.Point) (*RouterResult, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 waypoints, got %d", ErrRouterBadPayload, len(waypoints))
	}

	coords := make([]string, len(waypoints))
	for i, p := range waypoints {
		// OSRM wants lng,lat order.
		coords[i] = fmt.Sprintf("%f,%f", p.Lng, p.Lat)
	}
	url := fmt.Sprintf("%s/route/v1/driving/%s?overview=full&alternatives=true&steps=true&geometries=polyline",
		c.baseURL, strings.Join(coords, ";"))

	started := time.Now()
	var result *RouterResult
	err := retry.Do(
		func() error {
			res, err := c.fetch(ctx, url)
			if err != nil {
				return err
			}
			result = res
			return nil
		},
		retry.Attempts(routerAttempts),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	routerRequestDuration.Observe(time.Since(started).Seconds())
	routerRequestsTotal.Inc()
	if err != nil {
		routerFailuresTotal.WithLabelValues(classify(err)).Inc()
		return nil, err
	}
	return result, nil
}

func (c *OSRMClient) fetch(ctx context.Context, url string) (*RouterResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouterFailure, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrRouterTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrRouterFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrRouterFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRouterBadPayload, err)
	}
	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouterBadPayload, err)
	}
	if parsed.Code != "Ok" {
		return nil, fmt.Errorf("%w: code %q", ErrRouterFailure, parsed.Code)
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes in response", ErrRouterBadPayload)
	}

	primary := parsed.Routes[0]
	result := &RouterResult{
		DistanceKm:  primary.Distance / 1000.0,
		DurationMin: primary.Duration / 60.0,
		Geometry:    primary.Geometry,
	}
	for _, alt := range parsed.Routes[1:] {
		result.Alternatives = append(result.Alternatives, Alternative{
			DistanceKm:  alt.Distance / 1000.0,
			DurationMin: alt.Duration / 60.0,
			Geometry:    alt.Geometry,
		})
	}
	return result, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrRouterTimeout):
		return "timeout"
	case errors.Is(err, ErrRouterBadPayload):
		return "bad_payload"
	default:
		return "failure"
	}
}
