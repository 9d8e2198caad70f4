// Package loadgen drives a collector with LOAD beacons from many sessions of
// one device, the way a busy article page looks from the collector's side.
package loadgen

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lstn/beacon/internal/beacon"
)

const (
	// DefaultTotal is the number of beacons in a run.
	DefaultTotal = 1000

	// DefaultConcurrency is the number of sending workers.
	DefaultConcurrency = 32

	// progressEvery controls how often worker 0 logs progress.
	progressEvery = 100
)

// ErrNoContentIDs is returned when a content id file has no usable lines.
var ErrNoContentIDs = errors.New("no content ids")

// Sender delivers one beacon synchronously. *beacon.Emitter satisfies it.
type Sender interface {
	Send(ctx context.Context, sig beacon.Signal) (int, error)
}

// Options configures a run.
type Options struct {
	Total       int
	Concurrency int
	// Rate caps beacons per second across all workers; 0 means unlimited.
	Rate       float64
	ContentIDs []uint32 // nil draws from [0, ContentIDRange)
	Rand       beacon.Rand
	Logger     *slog.Logger
}

// Report summarizes a finished run.
type Report struct {
	RunID    string
	DeviceID uint32
	Sent     int64
	Failed   int64
	Elapsed  time.Duration
}

// Generator sends Total LOAD beacons with a fixed device id and a fresh
// session id per beacon.
type Generator struct {
	sender  Sender
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
	runID   string
}

// New creates a Generator. Zero options take their defaults.
func New(sender Sender, opts Options) *Generator {
	if opts.Total <= 0 {
		opts.Total = DefaultTotal
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Rand == nil {
		opts.Rand = beacon.NewRand(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.Rate > 0 {
		burst := int(opts.Rate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}

	runID := uuid.New().String()
	return &Generator{
		sender:  sender,
		opts:    opts,
		limiter: limiter,
		logger:  opts.Logger.With("component", "loadgen", "run_id", runID),
		runID:   runID,
	}
}

// RunID returns the id attached to this run's log lines.
func (g *Generator) RunID() string {
	return g.runID
}

// Run sends all beacons and blocks until every worker is done or ctx ends.
// Delivery failures are counted, not returned; the error is ctx's.
func (g *Generator) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	device := g.opts.Rand.Uint32()

	g.logger.Info("load run starting",
		"total", g.opts.Total,
		"concurrency", g.opts.Concurrency,
		"rate", g.opts.Rate,
		"usr", device,
	)

	jobs := make(chan beacon.Signal)
	var sent, failed atomic.Int64

	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < g.opts.Concurrency; i++ {
		worker := i
		eg.Go(func() error {
			count := 0
			for sig := range jobs {
				if err := g.limiter.Wait(egCtx); err != nil {
					return err
				}
				if _, err := g.sender.Send(egCtx, sig); err != nil {
					failed.Add(1)
				} else {
					sent.Add(1)
				}
				count++
				if worker == 0 && count%progressEvery == 0 {
					done := float64(sent.Load()+failed.Load()) / float64(g.opts.Total)
					g.logger.Info("load progress", "worker", worker, "count", count, "done", done)
				}
			}
			return nil
		})
	}

	eg.Go(func() error {
		defer close(jobs)
		for i := 0; i < g.opts.Total; i++ {
			sig := beacon.Signal{
				Kind:      beacon.KindLoad,
				DeviceID:  device,
				SessionID: g.opts.Rand.Uint32(),
				ContentID: g.contentID(),
			}
			select {
			case jobs <- sig:
			case <-egCtx.Done():
				return egCtx.Err()
			}
		}
		return nil
	})

	err := eg.Wait()

	report := Report{
		RunID:    g.runID,
		DeviceID: device,
		Sent:     sent.Load(),
		Failed:   failed.Load(),
		Elapsed:  time.Since(start),
	}
	g.logger.Info("load run finished",
		"sent", report.Sent,
		"failed", report.Failed,
		"elapsed", report.Elapsed,
	)
	if err != nil {
		return report, fmt.Errorf("load run: %w", err)
	}
	return report, nil
}

func (g *Generator) contentID() uint32 {
	if len(g.opts.ContentIDs) == 0 {
		return beacon.ContentID(g.opts.Rand)
	}
	return g.opts.ContentIDs[g.opts.Rand.IntN(len(g.opts.ContentIDs))]
}

// ReadContentIDs reads one decimal content id per line. Blank lines and lines
// starting with # are skipped.
func ReadContentIDs(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content ids: %w", err)
	}
	defer f.Close()

	var ids []uint32
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse content id on line %d: %w", line, err)
		}
		ids = append(ids, uint32(v))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read content ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoContentIDs)
	}
	return ids, nil
}
