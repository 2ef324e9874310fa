package assemble

import "github.com/streetcover/routecore/pkg/geo"

// buildChunks partitions route into contiguous point ranges whose
// estimated drive time stays at or below cfg.ChunkDurationS. Boundaries
// never split mid-edge-geometry — they only ever land on an existing
// route point — so each chunk's end point repeats as the next chunk's
// start point, giving callers a one-point overlap to stitch display
// segments back together.
func buildChunks(route *Route, cfg Config) []Chunk {
	n := len(route.Points)
	if n < 2 {
		if n == 1 {
			return []Chunk{{StartIdx: 0, EndIdx: 0}}
		}
		return nil
	}
	target := cfg.ChunkDurationS
	if target <= 0 {
		target = DefaultConfig().ChunkDurationS
	}

	var chunks []Chunk
	start := 0
	var lengthM, durationS float64
	for i := 0; i < n-1; i++ {
		segLen := geo.Haversine(route.Points[i].Point.Lat, route.Points[i].Point.Lon, route.Points[i+1].Point.Lat, route.Points[i+1].Point.Lon)
		segDur := route.segDuration[i]

		// Closing the chunk here would exceed target; cut at i (the
		// smallest enclosing boundary that keeps this chunk's time at
		// or below target) unless that makes a degenerate empty chunk.
		if durationS+segDur > target && i > start {
			chunks = append(chunks, Chunk{StartIdx: start, EndIdx: i, LengthM: lengthM, DurationS: durationS})
			start = i // one-point overlap: next chunk starts where this one ended
			lengthM, durationS = 0, 0
		}

		lengthM += segLen
		durationS += segDur
	}
	chunks = append(chunks, Chunk{StartIdx: start, EndIdx: n - 1, LengthM: lengthM, DurationS: durationS})
	return chunks
}
