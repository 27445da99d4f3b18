// Package main provides the entry point for the biosnap CLI.
//
// biosnap imports gut health reports from consumer lab portals, extracts
// test results from lab report PDFs and redacts identifying details from
// medical documents before they are shared.
//
// Usage:
//
//	BIOSNAP_PASSWORD=... biosnap import --email you@example.com
//	biosnap extract labs.pdf
//	biosnap redact --kind physician scan.pdf
//
// See --help for all available options.
package main

// main is the entry point for biosnap.
func main() {
	Execute()
}
