package oracle

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/streetcover/routecore/pkg/geo"
)

// CachingOracle decorates an Oracle with a deterministic, concurrency-safe
// cache keyed on the quantized endpoints and profile. sync.Map is the
// right tool here over a mutex-guarded map: the access pattern is heavy
// read (many gap lookups hit the same handful of inter-SCC connectors)
// with disjoint-key writes, which is exactly sync.Map's favorable case.
type CachingOracle struct {
	next  Oracle
	cache sync.Map // cacheKey -> Result
}

func NewCachingOracle(next Oracle) *CachingOracle {
	return &CachingOracle{next: next}
}

func (c *CachingOracle) Route(ctx context.Context, start, end geo.Point, profile Profile) (Result, error) {
	key := cacheKey(start, end, profile)
	if v, ok := c.cache.Load(key); ok {
		return v.(Result), nil
	}

	result, err := c.next.Route(ctx, start, end, profile)
	if err != nil {
		return result, err
	}

	c.cache.Store(key, result)
	return result, nil
}

// cacheKey hashes the quantized endpoints and profile with fnv-1a, giving
// a deterministic key independent of floating point representation noise
// below the quantization grid.
func cacheKey(start, end geo.Point, profile Profile) uint64 {
	h := fnv.New64a()
	s := geo.NodeIDOf(start)
	e := geo.NodeIDOf(end)
	_, _ = h.Write([]byte(strconv.FormatInt(int64(s.LonMicros), 10)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatInt(int64(s.LatMicros), 10)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatInt(int64(e.LonMicros), 10)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatInt(int64(e.LatMicros), 10)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(profile))
	return h.Sum64()
}
