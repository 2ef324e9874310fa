package oracle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/streetcover/routecore/pkg/geo"
)

type stubOracle struct {
	calls   int32
	err     error
	result  Result
}

func (s *stubOracle) Route(ctx context.Context, start, end geo.Point, profile Profile) (Result, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return Result{}, s.err
	}
	return s.result, nil
}

func TestFallbackOracleOnNilNext(t *testing.T) {
	o := NewFallbackOracle(nil)
	start := geo.Point{Lon: 0, Lat: 0}
	end := geo.Point{Lon: 0.001, Lat: 0}

	result, err := o.Route(context.Background(), start, end, ProfileCar)
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if !result.Synthetic {
		t.Error("expected synthetic result with no upstream configured")
	}
	if result.DistanceM <= 0 {
		t.Error("expected nonzero straight-line distance")
	}
}

func TestFallbackOracleOnUpstreamError(t *testing.T) {
	stub := &stubOracle{err: errors.New("boom")}
	o := NewFallbackOracle(stub)

	result, err := o.Route(context.Background(), geo.Point{}, geo.Point{Lon: 0.001}, ProfileCar)
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if !result.Synthetic {
		t.Error("expected synthetic fallback on upstream error")
	}
}

func TestFallbackOraclePassesThroughSuccess(t *testing.T) {
	want := Result{Geometry: []geo.Point{{Lon: 0}, {Lon: 1}}, DistanceM: 42}
	stub := &stubOracle{result: want}
	o := NewFallbackOracle(stub)

	got, err := o.Route(context.Background(), geo.Point{}, geo.Point{Lon: 1}, ProfileCar)
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if got.DistanceM != want.DistanceM || got.Synthetic {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestCachingOracleCachesByQuantizedEndpoints(t *testing.T) {
	stub := &stubOracle{result: Result{DistanceM: 10}}
	c := NewCachingOracle(stub)

	start := geo.Point{Lon: 1.0000001, Lat: 2.0000001}
	end := geo.Point{Lon: 1.001, Lat: 2.001}

	for i := 0; i < 5; i++ {
		if _, err := c.Route(context.Background(), start, end, ProfileCar); err != nil {
			t.Fatalf("Route: %v", err)
		}
	}
	if stub.calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (cache should dedupe identical requests)", stub.calls)
	}
}

func TestCachingOracleDistinguishesProfiles(t *testing.T) {
	stub := &stubOracle{result: Result{DistanceM: 10}}
	c := NewCachingOracle(stub)

	start := geo.Point{Lon: 0, Lat: 0}
	end := geo.Point{Lon: 0.001, Lat: 0}

	c.Route(context.Background(), start, end, ProfileCar)
	c.Route(context.Background(), start, end, ProfileFoot)

	if stub.calls != 2 {
		t.Errorf("upstream calls = %d, want 2 (different profiles must not share a cache entry)", stub.calls)
	}
}

func TestCachingOracleDoesNotCacheErrors(t *testing.T) {
	stub := &stubOracle{err: errors.New("boom")}
	c := NewCachingOracle(stub)

	start := geo.Point{Lon: 0, Lat: 0}
	end := geo.Point{Lon: 0.001, Lat: 0}

	for i := 0; i < 3; i++ {
		if _, err := c.Route(context.Background(), start, end, ProfileCar); err == nil {
			t.Fatal("expected error to propagate")
		}
	}
	if stub.calls != 3 {
		t.Errorf("upstream calls = %d, want 3 (errors must not be cached)", stub.calls)
	}
}

func TestTokenBucketLimitsBurstAndRefills(t *testing.T) {
	b := newTokenBucket(1000, 1) // high rate, burst of 1 — second call waits briefly
	ctx := context.Background()

	if err := b.wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := b.wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
}

func TestDecodePolyline6DecodesKnownSample(t *testing.T) {
	// "_ibE_seK_seK_seK" encodes (lat 0.1, lon 0.2) then (lat 0.3,
	// lon 0.4) at 1e6 precision; we only assert it decodes without error
	// and yields a nonempty path.
	pts, err := decodePolyline6("_ibE_seK_seK_seK")
	if err != nil {
		t.Fatalf("decodePolyline6: %v", err)
	}
	if len(pts) == 0 {
		t.Fatal("expected at least one decoded point")
	}
}
