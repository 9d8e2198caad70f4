package beacon

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/lstn/beacon/internal/store"
)

// Storage keys for the two identifiers.
const (
	KeyDevice  = "usr"
	KeySession = "sess"
)

// ContentIDRange bounds content ids to [0, ContentIDRange).
const ContentIDRange = 10

// Rand is the randomness identifiers are drawn from.
// *math/rand/v2.Rand satisfies it; it need not be safe for concurrent use
// unless shared across goroutines.
type Rand interface {
	Uint32() uint32
	IntN(n int) int
}

// LockedRand makes a Rand safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	src Rand
}

// NewRand returns a concurrency-safe PCG source. A zero seed draws the seed
// from the runtime's random source.
func NewRand(seed uint64) *LockedRand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &LockedRand{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Uint32 returns a uniform value in [0, 2^32).
func (r *LockedRand) Uint32() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Uint32()
}

// IntN returns a uniform value in [0, n).
func (r *LockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.IntN(n)
}

// Identity is the device and session id pair carried by every signal.
type Identity struct {
	DeviceID  uint32
	SessionID uint32

	// Set when this call created the id rather than reading it back.
	DeviceCreated  bool
	SessionCreated bool
}

// EnsureIdentity reads the device id from profile and the session id from
// session, creating each one from rng when absent. Repeated calls within the
// same scopes return the same ids.
func EnsureIdentity(ctx context.Context, profile, session store.Store, rng Rand) (Identity, error) {
	device, deviceCreated, err := ensureID(ctx, profile, KeyDevice, rng)
	if err != nil {
		return Identity{}, fmt.Errorf("ensure device id: %w", err)
	}
	sess, sessionCreated, err := ensureID(ctx, session, KeySession, rng)
	if err != nil {
		return Identity{}, fmt.Errorf("ensure session id: %w", err)
	}
	return Identity{
		DeviceID:       device,
		SessionID:      sess,
		DeviceCreated:  deviceCreated,
		SessionCreated: sessionCreated,
	}, nil
}

// ensureID returns the id stored under key, minting one if the slot is
// empty or holds something that is not a uint32. An empty slot is claimed
// with SetNX so clients sharing the store agree on a single id.
func ensureID(ctx context.Context, s store.Store, key string, rng Rand) (uint32, bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if found {
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			return uint32(v), false, nil
		}
	}

	id := rng.Uint32()
	minted := strconv.FormatUint(uint64(id), 10)

	if !found {
		stored, err := s.SetNX(ctx, key, minted)
		if err != nil {
			return 0, false, err
		}
		if stored == minted {
			return id, true, nil
		}
		if v, err := strconv.ParseUint(stored, 10, 32); err == nil {
			return uint32(v), false, nil
		}
	}

	// Corrupt value: overwrite it.
	if err := s.Set(ctx, key, minted); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// ContentID returns a placeholder content id in [0, ContentIDRange).
// TODO: replace with the id of the article being viewed once pages expose it.
func ContentID(rng Rand) uint32 {
	return uint32(rng.IntN(ContentIDRange))
}
