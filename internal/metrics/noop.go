package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncBeaconSent is a no-op.
func (n *NoopRecorder) IncBeaconSent(kind, status string) {}

// ObserveBeaconDuration is a no-op.
func (n *NoopRecorder) ObserveBeaconDuration(kind string, duration time.Duration) {}

// IncIdentityCreated is a no-op.
func (n *NoopRecorder) IncIdentityCreated(scope string) {}
