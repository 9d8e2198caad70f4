package beacon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lstn/beacon/internal/metrics"
	"github.com/lstn/beacon/internal/store"
)

// DefaultHeartbeat is the TIME interval of the heartbeat variant.
const DefaultHeartbeat = 5 * time.Second

// UnloadMode decides what a page does when it closes.
type UnloadMode int

const (
	UnloadEmit  UnloadMode = iota // send an UNLOAD beacon
	UnloadInert                   // handler runs, nothing is sent
)

// ContentIDMode decides how often the content id is drawn.
type ContentIDMode int

const (
	ContentIDPerLoad   ContentIDMode = iota // drawn once in Open, reused after
	ContentIDPerSignal                      // drawn fresh for every signal
)

// Variant describes which beacons a page sends.
type Variant struct {
	Name       string
	Heartbeat  time.Duration // TIME interval; 0 disables the heartbeat
	Unload     UnloadMode
	ContentIDs ContentIDMode
}

// VariantPageLoad sends LOAD only; its unload handler is inert.
var VariantPageLoad = Variant{
	Name:       "pageload",
	Unload:     UnloadInert,
	ContentIDs: ContentIDPerSignal,
}

// VariantHeartbeat sends LOAD, a TIME every 5s, and UNLOAD, all with the
// content id drawn at load.
var VariantHeartbeat = Variant{
	Name:       "heartbeat",
	Heartbeat:  DefaultHeartbeat,
	Unload:     UnloadEmit,
	ContentIDs: ContentIDPerLoad,
}

// ParseVariant returns the preset named name.
func ParseVariant(name string) (Variant, error) {
	switch name {
	case VariantPageLoad.Name:
		return VariantPageLoad, nil
	case VariantHeartbeat.Name:
		return VariantHeartbeat, nil
	default:
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
}

// Ticker is the subset of *time.Ticker a page needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// PageOptions holds a page's collaborators.
type PageOptions struct {
	Profile store.Store // device id scope
	Session store.Store // session id scope
	Rand    Rand

	// Scroll reports scroll depth for UNLOAD; nil reports 0.
	Scroll func() float32

	Logger    *slog.Logger
	Metrics   metrics.Recorder
	Now       func() time.Time
	NewTicker func(time.Duration) Ticker
}

// Page is one page view: Open sends LOAD and starts the heartbeat, Close
// stops the heartbeat and sends UNLOAD.
type Page struct {
	id      string
	emitter *Emitter
	variant Variant
	opts    PageOptions
	logger  *slog.Logger

	mu        sync.Mutex
	opened    bool
	closed    bool
	openedAt  time.Time
	identity  Identity
	contentID uint32

	stop        chan struct{}
	heartbeatWG sync.WaitGroup
}

// NewPage creates a page that is not yet open.
func NewPage(emitter *Emitter, variant Variant, opts PageOptions) *Page {
	if opts.Profile == nil {
		opts.Profile = store.NewMemory()
	}
	if opts.Session == nil {
		opts.Session = store.NewMemory()
	}
	if opts.Rand == nil {
		opts.Rand = NewRand(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}

	id := ulid.Make().String()
	return &Page{
		id:      id,
		emitter: emitter,
		variant: variant,
		opts:    opts,
		logger:  opts.Logger.With("component", "beacon.page", "page_view_id", id, "variant", variant.Name),
	}
}

// ID returns the page view id used in logs.
func (p *Page) ID() string {
	return p.id
}

// Identity returns the identity resolved by Open.
func (p *Page) Identity() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity
}

// Open resolves the identity, sends LOAD and starts the heartbeat.
// The returned Pending tracks the LOAD beacon.
func (p *Page) Open(ctx context.Context) (*Pending, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPageClosed
	}
	if p.opened {
		return nil, ErrPageOpen
	}

	id, err := EnsureIdentity(ctx, p.opts.Profile, p.opts.Session, p.opts.Rand)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	p.recordMinted(id)

	p.opened = true
	p.openedAt = p.opts.Now()
	p.identity = id
	if p.variant.ContentIDs == ContentIDPerLoad {
		p.contentID = ContentID(p.opts.Rand)
	}

	attrs := []any{
		"usr", id.DeviceID,
		"sess", id.SessionID,
		"new_device", id.DeviceCreated,
		"new_session", id.SessionCreated,
	}
	if p.variant.ContentIDs == ContentIDPerLoad {
		attrs = append(attrs, "cid", p.contentID)
	}
	p.logger.Info("page opened", attrs...)

	pending := p.emitter.Emit(ctx, p.signalLocked(ctx, KindLoad))

	if p.variant.Heartbeat > 0 {
		p.stop = make(chan struct{})
		ticker := p.opts.NewTicker(p.variant.Heartbeat)
		p.heartbeatWG.Add(1)
		go p.heartbeat(context.WithoutCancel(ctx), ticker, p.stop)
	}

	return pending, nil
}

// Close stops the heartbeat and, unless the variant's unload is inert,
// sends UNLOAD. The returned Pending is nil when nothing was sent.
func (p *Page) Close(ctx context.Context) (*Pending, error) {
	p.mu.Lock()
	if !p.opened {
		p.mu.Unlock()
		return nil, ErrPageNotOpen
	}
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPageClosed
	}
	p.closed = true
	stop := p.stop
	p.mu.Unlock()

	// Stop ticks before UNLOAD so no TIME follows it.
	if stop != nil {
		close(stop)
		p.heartbeatWG.Wait()
	}

	if p.variant.Unload == UnloadInert {
		p.logger.Info("page closed", "unload", "inert")
		return nil, nil
	}

	p.mu.Lock()
	sig := p.signalLocked(ctx, KindUnload)
	p.mu.Unlock()

	p.logger.Info("page closed", "unload", "emit")
	return p.emitter.Emit(ctx, sig), nil
}

// Emit sends a signal of kind for this page outside the built-in triggers.
func (p *Page) Emit(ctx context.Context, kind Kind) (*Pending, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(kind))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened {
		return nil, ErrPageNotOpen
	}
	if p.closed {
		return nil, ErrPageClosed
	}
	return p.emitter.Emit(ctx, p.signalLocked(ctx, kind)), nil
}

func (p *Page) heartbeat(ctx context.Context, ticker Ticker, stop <-chan struct{}) {
	defer p.heartbeatWG.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			// A tick may race with Close; Close wins.
			select {
			case <-stop:
				return
			default:
			}
			p.mu.Lock()
			sig := p.signalLocked(ctx, KindTime)
			p.mu.Unlock()
			p.emitter.Emit(ctx, sig)
		}
	}
}

// signalLocked builds a signal of kind. It re-reads the stores so the ids are
// the ones stored at emission time; if that fails the ids from Open are used.
func (p *Page) signalLocked(ctx context.Context, kind Kind) Signal {
	if kind != KindLoad {
		id, err := EnsureIdentity(ctx, p.opts.Profile, p.opts.Session, p.opts.Rand)
		if err != nil {
			p.logger.Warn("identity refresh failed, using ids from load",
				"kind", kind.String(),
				"error", err,
			)
		} else {
			p.recordMinted(id)
			p.identity = id
		}
	}

	sig := Signal{
		Kind:      kind,
		DeviceID:  p.identity.DeviceID,
		SessionID: p.identity.SessionID,
		ContentID: p.contentID,
	}
	if p.variant.ContentIDs == ContentIDPerSignal {
		sig.ContentID = ContentID(p.opts.Rand)
	}

	switch kind {
	case KindTime:
		secs := uint32(p.opts.Now().Sub(p.openedAt) / time.Second)
		sig.PageSeconds = &secs
	case KindUnload:
		var scrolled float32
		if p.opts.Scroll != nil {
			scrolled = p.opts.Scroll()
		}
		sig.Scrolled = &scrolled
	}
	return sig
}

func (p *Page) recordMinted(id Identity) {
	if id.DeviceCreated {
		p.opts.Metrics.IncIdentityCreated(string(store.ScopeProfile))
	}
	if id.SessionCreated {
		p.opts.Metrics.IncIdentityCreated(string(store.ScopeSession))
	}
}
