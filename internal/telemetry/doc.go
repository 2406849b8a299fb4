// Package telemetry holds per-agent flight logs: named fixed-width
// columns appended once per tick, with CSV and CBOR encodings.
package telemetry
