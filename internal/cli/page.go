package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lstn/beacon/internal/beacon"
	"github.com/lstn/beacon/internal/runner"
)

// PageOptions holds flags for the page command.
type PageOptions struct {
	*RootOptions
	Variant  string
	Interval time.Duration
	Duration time.Duration
	Scroll   float64
}

// NewPageCommand creates the page command.
func NewPageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "page",
		Short: "Simulate one page view",
		Long: `Open a page view: send LOAD, then TIME on every heartbeat, and UNLOAD
when the view ends. The view ends after --duration, or on Ctrl-C when
--duration is 0.

Example:
  beacon page --collector https://lstn.example.com --duration 12s
  beacon page --variant pageload --scheme prefixed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPage(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Variant, "variant", "", "page variant: pageload|heartbeat (overrides BEACON_VARIANT)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "heartbeat interval (overrides BEACON_HEARTBEAT_INTERVAL)")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "how long the page stays open; 0 waits for a signal")
	cmd.Flags().Float64Var(&opts.Scroll, "scroll", 0, "scroll depth in [0, 1] reported on UNLOAD")

	return cmd
}

func runPage(cmd *cobra.Command, opts *PageOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger := opts.Config, opts.Logger

	name := cfg.Variant
	if opts.Variant != "" {
		name = opts.Variant
	}
	variant, err := beacon.ParseVariant(name)
	if err != nil {
		return err
	}
	if variant.Heartbeat > 0 {
		variant.Heartbeat = cfg.HeartbeatInterval
		if opts.Interval > 0 {
			variant.Heartbeat = opts.Interval
		}
	}

	emitter, err := newEmitter(cfg, logger, opts.Metrics)
	if err != nil {
		return err
	}

	profile, session, closeStores, err := identityStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	scrolled := float32(opts.Scroll)
	page := beacon.NewPage(emitter, variant, beacon.PageOptions{
		Profile: profile,
		Session: session,
		Rand:    beacon.NewRand(cfg.RandSeed),
		Scroll:  func() float32 { return scrolled },
		Logger:  logger,
		Metrics: opts.Metrics,
	})

	r := runner.New(cfg.ShutdownTimeout, logger)
	r.OnShutdown("emitter", emitter.Close)
	r.OnShutdown("page", func(ctx context.Context) error {
		_, err := page.Close(ctx)
		if errors.Is(err, beacon.ErrPageNotOpen) {
			return nil
		}
		return err
	})

	defer logTotals(logger, opts.Metrics)

	out := cmd.OutOrStdout()
	return r.Run(ctx, func(ctx context.Context) error {
		pending, err := page.Open(ctx)
		if err != nil {
			return err
		}
		res := pending.Wait(ctx)

		id := page.Identity()
		fmt.Fprintf(out, "page_view_id=%s usr=%d sess=%d load_status=%d\n",
			page.ID(), id.DeviceID, id.SessionID, res.StatusCode)

		if opts.Duration <= 0 {
			<-ctx.Done()
			return ctx.Err()
		}
		timer := time.NewTimer(opts.Duration)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
