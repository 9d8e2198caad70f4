// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Status values reported for beacon delivery attempts.
const (
	StatusSent   = "sent"   // collector answered, any status code
	StatusFailed = "failed" // transport error, nothing answered
)

// Recorder captures metric events for the beacon client.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Beacon delivery metrics
	IncBeaconSent(kind, status string)
	ObserveBeaconDuration(kind string, duration time.Duration)

	// Identity metrics
	IncIdentityCreated(scope string) // scope: "profile" or "session"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
