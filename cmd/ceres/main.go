// Ceres is a persistent, multi-tier rate limiting engine and admission
// gateway.
//
// It fronts an upstream HTTP service, admitting or rejecting each request
// against durable per-identifier, per-endpoint, per-class fixed-window
// counters, and records every admission decision in an append-only event
// log.
//
// Usage:
//
//	# Start server with default configuration
//	ceres run
//
//	# Start with custom configuration file
//	ceres run --config /path/to/config.yaml
//
//	# Show version information
//	ceres version
//
//	# Validate a configuration file
//	ceres validate --config config.yaml
//
//	# List the effective limit classes
//	ceres classes
//
//	# Query the admission event log
//	ceres events query --time-range "2026-08-29T00:00:00Z/2026-08-30T00:00:00Z"
package main

func main() {
	Execute()
}
