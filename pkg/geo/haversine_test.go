package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		lat1, lon1       float64
		lat2, lon2       float64
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name:             "opposite corners of a coverage polygon",
			lat1:             37.7749, lon1: -122.4194, // one corner of a survey block
			lat2:             37.7899, lon2: -122.4014, // diagonal corner
			wantMeters:       2_298, // ~2.3 km great-circle
			tolerancePercent: 1,
		},
		{
			name:       "same point",
			lat1:       37.7749, lon1: -122.4194,
			lat2:       37.7749, lon2: -122.4194,
			wantMeters:       0,
			tolerancePercent: 0,
		},
		{
			name:             "two cities apart (cross-region sanity check)",
			lat1:             40.7128, lon1: -74.0060,
			lat2:             42.3601, lon2: -71.0589,
			wantMeters:       306_200, // ~306.2 km
			tolerancePercent: 1,
		},
		{
			name:             "one city block (~100m)",
			lat1:             37.7749, lon1: -122.4194,
			lat2:             37.7758, lon2: -122.4194,
			wantMeters:       100,
			tolerancePercent: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("expected 0, got %f", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Haversine = %f m, want ~%f m (diff %.1f%%)", got, tt.wantMeters, diff)
			}
		})
	}
}

func TestEquirectangularDist(t *testing.T) {
	// At the scale of one street graph, equirectangular should be very
	// close to Haversine regardless of which latitude the polygon sits at.
	lat1, lon1 := 37.7749, -122.4194
	lat2, lon2 := 37.7828, -122.4094

	h := Haversine(lat1, lon1, lat2, lon2)
	e := EquirectangularDist(lat1, lon1, lat2, lon2)

	diffPercent := math.Abs(h-e) / h * 100
	if diffPercent > 0.5 {
		t.Errorf("EquirectangularDist differs from Haversine by %.2f%% (haversine=%f, equirect=%f)", diffPercent, h, e)
	}
}

func TestPointToSegmentDist(t *testing.T) {
	tests := []struct {
		name       string
		pLat, pLon float64
		aLat, aLon float64
		bLat, bLon float64
		wantRatio  float64
		maxDistM   float64 // max expected distance
	}{
		{
			name: "point at start of segment",
			pLat: 37.7749, pLon: -122.4194,
			aLat: 37.7749, aLon: -122.4194,
			bLat: 37.7838, bLon: -122.4194,
			wantRatio: 0.0,
			maxDistM:  1,
		},
		{
			name: "point at end of segment",
			pLat: 37.7838, pLon: -122.4194,
			aLat: 37.7749, aLon: -122.4194,
			bLat: 37.7838, bLon: -122.4194,
			wantRatio: 1.0,
			maxDistM:  1,
		},
		{
			name: "point at midpoint perpendicular, offset about 88m east",
			pLat: 37.7793, pLon: -122.4184,
			aLat: 37.7749, aLon: -122.4194,
			bLat: 37.7838, bLon: -122.4194,
			wantRatio: 0.5,
			maxDistM:  200, // roughly 88m perpendicular
		},
		{
			name: "degenerate segment (A == B), e.g. a zero-length way",
			pLat: 37.7749, pLon: -122.4184,
			aLat: 37.7749, aLon: -122.4194,
			bLat: 37.7749, bLon: -122.4194,
			wantRatio: 0.0,
			maxDistM:  200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ratio := PointToSegmentDist(tt.pLat, tt.pLon, tt.aLat, tt.aLon, tt.bLat, tt.bLon)
			if dist > tt.maxDistM {
				t.Errorf("dist = %f m, want <= %f m", dist, tt.maxDistM)
			}
			if math.Abs(ratio-tt.wantRatio) > 0.05 {
				t.Errorf("ratio = %f, want ~%f", ratio, tt.wantRatio)
			}
		})
	}
}

func BenchmarkHaversine(b *testing.B) {
	for b.Loop() {
		Haversine(37.7749, -122.4194, 37.7071, -122.4474)
	}
}

func BenchmarkEquirectangularDist(b *testing.B) {
	for b.Loop() {
		EquirectangularDist(37.7749, -122.4194, 37.7071, -122.4474)
	}
}
