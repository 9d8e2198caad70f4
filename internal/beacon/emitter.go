package beacon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lstn/beacon/internal/metrics"
)

// EmitterConfig configures an Emitter.
type EmitterConfig struct {
	CollectorURL string
	Scheme       HeaderScheme
	Extended     bool // send PAGE_SECONDS / SCROLLED
	Client       *http.Client
	Logger       *slog.Logger
	Metrics      metrics.Recorder
}

// Emitter delivers signals to the collector.
type Emitter struct {
	url      string
	scheme   HeaderScheme
	extended bool
	client   *http.Client
	logger   *slog.Logger
	metrics  metrics.Recorder

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewEmitter creates an Emitter. Client, Logger and Metrics default to
// http.DefaultClient, slog.Default() and a no-op recorder.
func NewEmitter(cfg EmitterConfig) (*Emitter, error) {
	if cfg.CollectorURL == "" {
		return nil, errors.New("collector url required")
	}
	if cfg.Scheme.Type == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnknownScheme)
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return &Emitter{
		url:      cfg.CollectorURL,
		scheme:   cfg.Scheme,
		extended: cfg.Extended,
		client:   cfg.Client,
		logger:   cfg.Logger.With("component", "beacon.emitter"),
		metrics:  cfg.Metrics,
	}, nil
}

// Result is the outcome of one delivery attempt.
type Result struct {
	StatusCode int // 0 when no response arrived
	Err        error
	Skipped    bool // no request was made
}

// Pending is an in-flight beacon. Callers may ignore it; tests Wait on it.
type Pending struct {
	done   chan struct{}
	result Result
}

// Wait blocks until the beacon completes or ctx ends.
// A nil Pending stands for a beacon that was never sent.
func (p *Pending) Wait(ctx context.Context) Result {
	if p == nil {
		return Result{Skipped: true}
	}
	select {
	case <-p.done:
		return p.result
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// Emit sends sig in the background and returns immediately. The request is
// detached from ctx cancellation; the client timeout bounds it instead.
// After Close, Emit sends nothing and returns nil.
func (e *Emitter) Emit(ctx context.Context, sig Signal) *Pending {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.logger.Warn("beacon skipped, emitter closed", "kind", sig.Kind.String())
		return nil
	}
	e.inflight.Add(1)
	e.mu.Unlock()

	p := &Pending{done: make(chan struct{})}
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer e.inflight.Done()
		defer close(p.done)

		status, err := e.Send(ctx, sig)
		p.result = Result{StatusCode: status, Err: err}
	}()
	return p
}

// Send delivers sig and waits for the response status. Only transport
// failures are errors; any status code counts as delivered.
func (e *Emitter) Send(ctx context.Context, sig Signal) (int, error) {
	if !sig.Kind.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidKind, int(sig.Kind))
	}
	kind := sig.Kind.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	e.scheme.Apply(req.Header, sig, e.extended)

	start := time.Now()
	resp, err := e.client.Do(req)
	duration := time.Since(start)
	e.metrics.ObserveBeaconDuration(kind, duration)

	if err != nil {
		e.metrics.IncBeaconSent(kind, metrics.StatusFailed)
		e.logger.Warn("beacon dropped",
			"kind", kind,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return 0, fmt.Errorf("send %s beacon: %w", kind, err)
	}
	defer resp.Body.Close()

	// Drain body to allow connection reuse
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	e.metrics.IncBeaconSent(kind, metrics.StatusSent)
	e.logger.Debug("beacon sent",
		"kind", kind,
		"usr", sig.DeviceID,
		"sess", sig.SessionID,
		"cid", sig.ContentID,
		"http_status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)
	return resp.StatusCode, nil
}

// Close stops Emit from starting new beacons, then waits for the ones in
// flight to finish or for ctx to end. Send is unaffected.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
