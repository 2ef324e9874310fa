package ingest

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/streetcover/routecore/pkg/geo"
)

// carHighways lists highway tag values accessible by car, reused from the
// classification rules of OSM-based car routers.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find(tagHighway)
	if !carHighways[hw] {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	access := tags.Find(tagAccess)
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}
	return true
}

// onewayDirection returns the feature's effective oneway-ness. A way tagged
// oneway=reversible (time-dependent direction) is dropped by the caller
// rather than represented, since neither direction
// can be statically balanced — matching the core's treatment of every
// surviving input feature as traversable (spec's access-restriction open
// question) while still refusing geometry with no stable direction.
func onewayDirection(tags osm.Tags) (oneway bool, reverse bool, keep bool) {
	hw := tags.Find(tagHighway)

	forward, backward := true, true
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		return false, false, false
	}

	if forward && backward {
		return false, false, true
	}
	if forward {
		return true, false, true
	}
	return true, true, true
}

// BBox filters ingested ways to a geographic bounding box. Zero value
// means "no filter".
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func (b BBox) isZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

func (b BBox) contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// OSMOptions configures FromOSMPBF.
type OSMOptions struct {
	BBox BBox
}

func tagsOf(t osm.Tags) Tags {
	out := make(Tags, len(t))
	for _, tag := range t {
		out[tag.Key] = tag.Value
	}
	return out
}

// FromOSMPBF reads an OSM PBF extract and returns one StreetFeature per
// drivable way, oriented forward (with Oneway set when the way only
// permits one direction of travel; the graph builder adds the reverse
// edge itself for two-way ways). The reader is consumed twice — once to
// collect way/node references, once to resolve node coordinates — so it
// must implement io.ReadSeeker.
func FromOSMPBF(ctx context.Context, rs io.ReadSeeker, opts OSMOptions) ([]StreetFeature, error) {
	type wayInfo struct {
		nodeIDs []osm.NodeID
		oneway  bool
		reverse bool
		tags    Tags
	}

	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isCarAccessible(w.Tags) || len(w.Nodes) < 2 {
			continue
		}
		oneway, reverse, keep := onewayDirection(w.Tags)
		if !keep {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{nodeIDs: nodeIDs, oneway: oneway, reverse: reverse, tags: tagsOf(w.Tags)})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("ingest: pass 1 complete: %d drivable ways, %d referenced nodes", len(ways), len(referencedNodes))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("ingest: pass 2 complete: %d node coordinates resolved", len(nodeLat))

	useBBox := !opts.BBox.isZero()
	var features []StreetFeature
	var skipped, filtered int

	for _, w := range ways {
		points := make([]geo.Point, 0, len(w.nodeIDs))
		ok := true
		for _, id := range w.nodeIDs {
			lat, latOK := nodeLat[id]
			lon := nodeLon[id]
			if !latOK {
				ok = false
				break
			}
			if useBBox && !opts.BBox.contains(lat, lon) {
				ok = false
				filtered++
				break
			}
			points = append(points, geo.Point{Lon: lon, Lat: lat})
		}
		if !ok {
			if _, partial := nodeLat[w.nodeIDs[0]]; !partial {
				skipped++
			}
			continue
		}

		if w.reverse {
			for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
				points[i], points[j] = points[j], points[i]
			}
		}

		features = append(features, StreetFeature{
			Points: points,
			Oneway: w.oneway,
			Tags:   w.tags,
		})
	}

	if skipped > 0 {
		log.Printf("ingest: skipped %d ways whose first node has no coordinates", skipped)
	}
	if filtered > 0 {
		log.Printf("ingest: filtered %d ways outside bounding box", filtered)
	}
	log.Printf("ingest: built %d street features", len(features))

	return features, nil
}
