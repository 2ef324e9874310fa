package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/streetcover/routecore/pkg/api"
	"github.com/streetcover/routecore/pkg/oracle"
)

func main() {
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	oracleEndpoint := flag.String("oracle-endpoint", "", "Valhalla-shaped routing oracle endpoint (empty = synthetic straight-line routing only)")
	oracleRatePerSec := flag.Float64("oracle-rate", 5, "Oracle requests per second, per routing profile")
	oracleTimeout := flag.Duration("oracle-timeout", 20*time.Second, "Per-request oracle timeout")
	flag.Parse()

	var o oracle.Oracle
	if *oracleEndpoint != "" {
		httpOracle := oracle.NewHTTPOracle(oracle.HTTPOracleConfig{
			Endpoint:           *oracleEndpoint,
			Timeout:            *oracleTimeout,
			RateLimitPerSecond: *oracleRatePerSec,
		})
		o = oracle.NewFallbackOracle(oracle.NewCachingOracle(httpOracle))
		log.Printf("Routing oracle: %s (rate %.1f/s, timeout %s)", *oracleEndpoint, *oracleRatePerSec, *oracleTimeout)
	} else {
		o = oracle.NewFallbackOracle(nil)
		log.Println("No --oracle-endpoint given; all gaps will be bridged with synthetic straight lines")
	}

	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	handlers := api.NewHandlers(o)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
