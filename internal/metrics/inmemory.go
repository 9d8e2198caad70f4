package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	BeaconsSent             map[string]uint64 // key: kind + "/" + status
	BeaconDurationCount     uint64
	BeaconDurationTotalNs   int64
	ProfileIdentitiesMinted uint64
	SessionIdentitiesMinted uint64
}

// Sent returns the number of beacons of kind recorded with status.
func (s Snapshot) Sent(kind, status string) uint64 {
	return s.BeaconsSent[kind+"/"+status]
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu          sync.Mutex
	beaconsSent map[string]uint64

	beaconDurationCount     uint64
	beaconDurationTotalNs   int64
	profileIdentitiesMinted uint64
	sessionIdentitiesMinted uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{beaconsSent: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	sent := make(map[string]uint64, len(m.beaconsSent))
	for k, v := range m.beaconsSent {
		sent[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		BeaconsSent:             sent,
		BeaconDurationCount:     atomic.LoadUint64(&m.beaconDurationCount),
		BeaconDurationTotalNs:   atomic.LoadInt64(&m.beaconDurationTotalNs),
		ProfileIdentitiesMinted: atomic.LoadUint64(&m.profileIdentitiesMinted),
		SessionIdentitiesMinted: atomic.LoadUint64(&m.sessionIdentitiesMinted),
	}
}

// IncBeaconSent increments the per kind/status counter.
func (m *InMemoryRecorder) IncBeaconSent(kind, status string) {
	m.mu.Lock()
	m.beaconsSent[kind+"/"+status]++
	m.mu.Unlock()
}

// ObserveBeaconDuration records beacon round-trip duration.
func (m *InMemoryRecorder) ObserveBeaconDuration(kind string, duration time.Duration) {
	atomic.AddUint64(&m.beaconDurationCount, 1)
	atomic.AddInt64(&m.beaconDurationTotalNs, duration.Nanoseconds())
}

// IncIdentityCreated increments the minted counter for scope.
func (m *InMemoryRecorder) IncIdentityCreated(scope string) {
	switch scope {
	case "profile":
		atomic.AddUint64(&m.profileIdentitiesMinted, 1)
	case "session":
		atomic.AddUint64(&m.sessionIdentitiesMinted, 1)
	}
}
