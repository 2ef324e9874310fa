package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/streetcover/routecore/pkg/engine"
	"github.com/streetcover/routecore/pkg/ingest"
	"github.com/streetcover/routecore/pkg/oracle"
)

func main() {
	polygonPath := flag.String("polygon", "", "Path to a GeoJSON Polygon/MultiPolygon file describing the coverage area")
	featuresPath := flag.String("features", "", "Path to a GeoJSON FeatureCollection of street LineStrings")
	osmPath := flag.String("osm", "", "Path to an .osm.pbf extract, used instead of --features")
	output := flag.String("output", "route.geojson", "Output GeoJSON LineString path")
	chunkDurationS := flag.Int("chunk-duration-s", 3600, "Target duration per output chunk, in seconds")
	oracleEndpoint := flag.String("oracle-endpoint", "", "Valhalla-shaped routing oracle endpoint (empty = synthetic straight-line routing only)")
	profile := flag.String("profile", "car", "Routing profile (car, hgv, bike, foot)")
	flag.Parse()

	if *polygonPath == "" || (*featuresPath == "" && *osmPath == "") {
		fmt.Fprintln(os.Stderr, "Usage: generate --polygon area.geojson (--features streets.geojson | --osm extract.osm.pbf) [--output route.geojson]")
		os.Exit(1)
	}

	polygonData, err := os.ReadFile(*polygonPath)
	if err != nil {
		log.Fatalf("Failed to read polygon file: %v", err)
	}
	polygon, err := ingest.PolygonFromGeoJSON(polygonData)
	if err != nil {
		log.Fatalf("Failed to parse polygon: %v", err)
	}

	var features []ingest.StreetFeature
	if *osmPath != "" {
		f, err := os.Open(*osmPath)
		if err != nil {
			log.Fatalf("Failed to open OSM extract: %v", err)
		}
		defer f.Close()
		features, err = ingest.FromOSMPBF(context.Background(), f, ingest.OSMOptions{})
		if err != nil {
			log.Fatalf("Failed to parse OSM extract: %v", err)
		}
	} else {
		data, err := os.ReadFile(*featuresPath)
		if err != nil {
			log.Fatalf("Failed to read street features file: %v", err)
		}
		features, err = ingest.StreetFeaturesFromGeoJSON(data)
		if err != nil {
			log.Fatalf("Failed to parse street features: %v", err)
		}
	}
	log.Printf("Loaded %d street features", len(features))

	var o oracle.Oracle
	if *oracleEndpoint != "" {
		o = oracle.NewFallbackOracle(oracle.NewCachingOracle(oracle.NewHTTPOracle(oracle.HTTPOracleConfig{Endpoint: *oracleEndpoint})))
	} else {
		o = oracle.NewFallbackOracle(nil)
	}

	req := engine.GenerateRequest{
		Polygon:        polygon,
		StreetFeatures: features,
		Profile:        oracle.Profile(*profile),
		ChunkDurationS: chunkDurationS,
	}

	start := time.Now()
	log.Println("Generating coverage route...")
	result, err := engine.Generate(context.Background(), req, o)
	if err != nil {
		log.Fatalf("Generate failed: %v", err)
	}
	log.Printf("Done in %s: status=%s length=%.0fm duration=%.0fs chunks=%d",
		time.Since(start).Round(time.Millisecond), result.Status, result.LengthM, result.DurationS, len(result.Chunks))
	log.Printf("Diagnostics: scc_count=%d deadhead_ratio=%.3f oracle_calls_real=%d oracle_calls_synthetic=%d continuity_valid=%v",
		result.Diagnostics.SCCCount, result.Diagnostics.DeadheadRatio,
		result.Diagnostics.OracleCallsReal, result.Diagnostics.OracleCallsSynthetic, result.Diagnostics.ContinuityValid)

	if err := writeRouteGeoJSON(*output, result); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	log.Printf("Wrote %s", *output)
}

func writeRouteGeoJSON(path string, result *engine.GenerateResult) error {
	coords := make([][]float64, len(result.Geometry))
	for i, p := range result.Geometry {
		coords[i] = []float64{p.Lon, p.Lat}
	}

	feature := geojson.NewLineStringFeature(coords)
	feature.SetProperty("length_m", result.LengthM)
	feature.SetProperty("duration_s", result.DurationS)
	feature.SetProperty("status", string(result.Status))

	fc := geojson.NewFeatureCollection()
	fc.AddFeature(feature)

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal route geojson: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
