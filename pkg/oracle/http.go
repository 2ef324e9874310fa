package oracle

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
	"github.com/gotidy/ptr"
	"github.com/valyala/fasthttp"

	"github.com/streetcover/routecore/pkg/geo"
)

// HTTPOracle talks to a Valhalla-shaped /route endpoint over fasthttp,
// modeled on angelodlfrtr/valhalla-http-client-go's request/response
// envelope and request-building helper.
type HTTPOracle struct {
	Endpoint   string
	httpClient *fasthttp.Client

	MaxRetries int
	Timeout    time.Duration

	limiters map[Profile]*tokenBucket
}

// HTTPOracleConfig configures an HTTPOracle. Zero values fall back to
// the documented defaults.
type HTTPOracleConfig struct {
	Endpoint           string
	MaxRetries         int
	Timeout            time.Duration
	RateLimitPerSecond float64
}

// NewHTTPOracle builds an HTTPOracle with one token bucket per profile.
func NewHTTPOracle(cfg HTTPOracleConfig) *HTTPOracle {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	rate := cfg.RateLimitPerSecond
	if rate <= 0 {
		rate = 5
	}

	limiters := make(map[Profile]*tokenBucket)
	for _, p := range []Profile{ProfileCar, ProfileHGV, ProfileBike, ProfileFoot} {
		limiters[p] = newTokenBucket(rate, rate)
	}

	return &HTTPOracle{
		Endpoint: cfg.Endpoint,
		httpClient: &fasthttp.Client{
			Name: "routecore-oracle-client",
		},
		MaxRetries: maxRetries,
		Timeout:    timeout,
		limiters:   limiters,
	}
}

// routeInputLocation mirrors RouteInputLocation's lon/lat fields from
// the Valhalla client's request contract.
type routeInputLocation struct {
	Lon *float64 `json:"lon"`
	Lat *float64 `json:"lat"`
}

type routeInput struct {
	Locations []routeInputLocation `json:"locations"`
	Costing   string               `json:"costing"`
}

type routeOutputLeg struct {
	Shape     string  `json:"shape"`
	Length    float64 `json:"length"`    // kilometers
	Time      float64 `json:"time"`      // seconds
}

type routeOutputTrip struct {
	Legs []routeOutputLeg `json:"legs"`
}

type routeOutput struct {
	Trip routeOutputTrip `json:"trip"`
}

// errorResponse mirrors the Valhalla client's ErrorResponse shape.
type errorResponse struct {
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error"`
	StatusCode   int    `json:"status_code"`
	Status       string `json:"status"`
}

func (e *errorResponse) Error() string { return e.Status + ": " + e.ErrorMessage }

// transientStatus reports whether an HTTP status code is worth retrying.
func transientStatus(code int) bool {
	return code == fasthttp.StatusTooManyRequests || code >= 500
}

// Route implements Oracle. It retries transient failures with exponential
// backoff and jitter, respecting a per-profile token bucket, and never
// returns an error — exhausted retries fall back to the straight line,
// matching the oracle contract's "never raises" failure mode.
func (o *HTTPOracle) Route(ctx context.Context, start, end geo.Point, profile Profile) (Result, error) {
	if geo.Equal(start, end) {
		return Result{Geometry: []geo.Point{start, end}}, nil
	}

	limiter := o.limiters[profile]
	if limiter == nil {
		limiter = o.limiters[ProfileCar]
	}

	var lastErr error
	for attempt := 0; attempt <= o.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return straightLine(start, end), nil
			}
		}
		if err := limiter.wait(ctx); err != nil {
			return straightLine(start, end), nil
		}

		result, retryable, err := o.doRequest(ctx, start, end, profile)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	_ = lastErr // exhausted retries or non-retryable failure: synthesize
	return straightLine(start, end), nil
}

func (o *HTTPOracle) doRequest(ctx context.Context, start, end geo.Point, profile Profile) (Result, bool, error) {
	body := routeInput{
		Locations: []routeInputLocation{
			{Lon: ptr.Float64(start.Lon), Lat: ptr.Float64(start.Lat)},
			{Lon: ptr.Float64(end.Lon), Lat: ptr.Float64(end.Lat)},
		},
		Costing: string(profile),
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return Result{}, false, fmt.Errorf("encode oracle request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(o.Endpoint + "/route")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(bodyBytes)

	timeout := o.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := o.httpClient.DoTimeout(req, resp, timeout); err != nil {
		return Result{}, true, fmt.Errorf("oracle request: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		errRes := &errorResponse{}
		if jsonErr := json.Unmarshal(resp.Body(), errRes); jsonErr != nil {
			errRes.StatusCode = resp.StatusCode()
			errRes.ErrorMessage = string(resp.Body())
		}
		return Result{}, transientStatus(resp.StatusCode()), errRes
	}

	var out routeOutput
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return Result{}, false, fmt.Errorf("decode oracle response: %w", err)
	}
	if len(out.Trip.Legs) == 0 {
		return Result{}, false, fmt.Errorf("oracle response had no legs")
	}

	var geometry []geo.Point
	var durationS float64
	var distanceM float64
	for _, leg := range out.Trip.Legs {
		pts, err := decodePolyline6(leg.Shape)
		if err != nil {
			return Result{}, false, fmt.Errorf("decode oracle shape: %w", err)
		}
		geometry = append(geometry, pts...)
		durationS += leg.Time
		distanceM += leg.Length * 1000
	}

	geometry[0] = start
	geometry[len(geometry)-1] = end

	return Result{Geometry: geometry, DistanceM: distanceM, DurationS: durationS}, false, nil
}

func sleepBackoff(ctx context.Context, attempt int) error {
	base := 200 * time.Millisecond
	backoff := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	jitter := time.Duration(rand.Int63n(int64(base)))
	select {
	case <-time.After(backoff + jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decodePolyline6 decodes a Google-style encoded polyline at 1e-6
// precision, the format Valhalla's /route response uses for leg shapes.
func decodePolyline6(encoded string) ([]geo.Point, error) {
	var pts []geo.Point
	index, lat, lon := 0, 0, 0

	for index < len(encoded) {
		dlat, n, err := decodePolylineValue(encoded, index)
		if err != nil {
			return nil, err
		}
		index += n
		lat += dlat

		dlon, n, err := decodePolylineValue(encoded, index)
		if err != nil {
			return nil, err
		}
		index += n
		lon += dlon

		pts = append(pts, geo.Point{Lat: float64(lat) / 1e6, Lon: float64(lon) / 1e6})
	}
	return pts, nil
}

func decodePolylineValue(encoded string, start int) (int, int, error) {
	var result, shift int
	index := start
	for {
		if index >= len(encoded) {
			return 0, 0, fmt.Errorf("truncated polyline at byte %d", start)
		}
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		result = ^(result >> 1)
	} else {
		result = result >> 1
	}
	return result, index - start, nil
}
