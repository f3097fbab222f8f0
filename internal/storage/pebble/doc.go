// Package pebblestore is the thin Pebble layer under internal/eventlog: it
// owns the WAL sync policy for incident appends, reports commit and read
// timings to internal/metrics and forwards Pebble's own logging to pkg/log
// at debug level.
package pebblestore
