// Package beacon emits page-lifecycle analytics beacons to a collector.
//
// A beacon is an empty-body POST whose headers carry the signal kind, the
// device id, the session id and the content id. Delivery is fire-and-forget:
// outcomes are logged and counted, never retried.
package beacon

import (
	"fmt"
	"strings"
)

// Kind is the lifecycle event a signal reports.
type Kind int

const (
	KindLoad Kind = iota + 1
	KindTime
	KindUnload
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "LOAD"
	case KindTime:
		return "TIME"
	case KindUnload:
		return "UNLOAD"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k >= KindLoad && k <= KindUnload
}

// ParseKind converts a wire name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOAD":
		return KindLoad, nil
	case "TIME":
		return KindTime, nil
	case "UNLOAD":
		return KindUnload, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Signal is one outbound beacon.
type Signal struct {
	Kind      Kind
	DeviceID  uint32
	SessionID uint32
	ContentID uint32

	// Optional fields, sent only when the emitter has extended fields enabled.
	PageSeconds *uint32  // TIME: whole seconds since the page opened
	Scrolled    *float32 // UNLOAD: scroll depth in [0, 1]
}
