package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	liftchart "github.com/aouyang1/go-liftchart"
	"github.com/aouyang1/go-liftchart/dataset"
)

var simulateFlags struct {
	series       int
	days         int
	backtests    int
	noHoldout    bool
	missingEvery int
	seed         uint64
	seriesID     string
	partition    string
	bins         int
	out          string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Render the dashboard of a simulated multiseries project",
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := dataset.NewDefaultSimOptions()
		opt.Series = simulateFlags.series
		opt.Days = simulateFlags.days
		opt.Backtests = simulateFlags.backtests
		opt.Holdout = !simulateFlags.noHoldout
		opt.MissingEvery = simulateFlags.missingEvery
		opt.Seed = simulateFlags.seed

		sim, err := dataset.NewSimulated(opt)
		if err != nil {
			return eris.Wrap(err, "simulate")
		}
		if err := cfg.Validate("simulate"); err != nil {
			return err
		}

		dash, closer, err := newDashboard(cfg, sim)
		if err != nil {
			return err
		}
		defer closer.Close()

		project, err := sim.Project(cmd.Context(), "")
		if err != nil {
			return eris.Wrap(err, "simulate")
		}
		req := liftchart.Request{
			ProjectID:   project.ID,
			ModelID:     "sim-model",
			SeriesID:    simulateFlags.seriesID,
			PartitionID: simulateFlags.partition,
			Bins:        simulateFlags.bins,
		}
		return writeReport(cmd.Context(), dash, req, simulateFlags.out)
	},
}

func init() {
	def := dataset.NewDefaultSimOptions()
	f := simulateCmd.Flags()
	f.IntVar(&simulateFlags.series, "series", def.Series, "number of series")
	f.IntVar(&simulateFlags.days, "days", def.Days, "days of daily training data")
	f.IntVar(&simulateFlags.backtests, "backtests", def.Backtests, "number of backtests")
	f.BoolVar(&simulateFlags.noHoldout, "no-holdout", false, "disable the holdout partition")
	f.IntVar(&simulateFlags.missingEvery, "missing-every", 0, "drop every n-th training row")
	f.Uint64Var(&simulateFlags.seed, "seed", def.Seed, "random seed")
	f.StringVar(&simulateFlags.seriesID, "series-id", "", "series to chart (default the first series)")
	f.StringVar(&simulateFlags.partition, "partition", "", "backtest index or Holdout (default the first backtest)")
	f.IntVar(&simulateFlags.bins, "bins", 0, "number of lift chart bins (default from config)")
	f.StringVar(&simulateFlags.out, "out", "liftchart.html", "output html file")
	rootCmd.AddCommand(simulateCmd)
}
