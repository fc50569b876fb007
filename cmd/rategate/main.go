// Rategate is a client-side admission controller for exchange venue APIs.
//
// It tracks request, weight, and order usage against venue-published rate
// limits across sliding windows, blocks or rejects calls that would exceed
// them, and reconciles local counters against usage headers returned by
// the venue.
//
// Usage:
//
//	# Validate a venue rule file
//	rategate validate --config binance-spot.yaml
//
//	# Show the effective limits a rule file grants
//	rategate limits --config kucoin-futures.yaml --tier 2
//
//	# Show version information
//	rategate version
package main

func main() {
	Execute()
}
