package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lstn/beacon/internal/beacon"
	"github.com/lstn/beacon/internal/loadgen"
	"github.com/lstn/beacon/internal/runner"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Total       int
	Concurrency int
	Rate        float64
	ContentIDs  string
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive a collector with LOAD beacons",
		Long: `Send --total LOAD beacons from one device with a fresh session per beacon,
spread over --concurrency workers.

Content ids are drawn from --cids (one per line) or from [0, 10).

Example:
  beacon load --collector http://localhost:8080 --total 100000 --concurrency 256
  beacon load --cids .testdata/cids.txt --rate 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Total, "total", "n", loadgen.DefaultTotal, "number of beacons to send")
	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "c", loadgen.DefaultConcurrency, "number of workers")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 0, "max beacons per second; 0 is unlimited")
	cmd.Flags().StringVar(&opts.ContentIDs, "cids", "", "file with one content id per line")

	return cmd
}

func runLoad(cmd *cobra.Command, opts *LoadOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger := opts.Config, opts.Logger

	var cids []uint32
	if opts.ContentIDs != "" {
		var err error
		if cids, err = loadgen.ReadContentIDs(opts.ContentIDs); err != nil {
			return err
		}
	}

	emitter, err := newEmitter(cfg, logger, opts.Metrics)
	if err != nil {
		return err
	}

	gen := loadgen.New(emitter, loadgen.Options{
		Total:       opts.Total,
		Concurrency: opts.Concurrency,
		Rate:        opts.Rate,
		ContentIDs:  cids,
		Rand:        beacon.NewRand(cfg.RandSeed),
		Logger:      logger,
	})

	defer logTotals(logger, opts.Metrics)

	out := cmd.OutOrStdout()
	r := runner.New(cfg.ShutdownTimeout, logger)
	return r.Run(ctx, func(ctx context.Context) error {
		report, err := gen.Run(ctx)
		fmt.Fprintf(out, "run_id=%s usr=%d sent=%d failed=%d elapsed=%s\n",
			report.RunID, report.DeviceID, report.Sent, report.Failed, report.Elapsed)
		return err
	})
}
