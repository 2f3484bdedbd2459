package main

import (
	"context"
	"os"

	"github.com/pkg/profile"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	liftchart "github.com/aouyang1/go-liftchart"
	"github.com/aouyang1/go-liftchart/datarobot"
)

var renderFlags struct {
	url       string
	project   string
	model     string
	dataset   string
	series    string
	partition string
	bins      int
	out       string
	profile   string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the dashboard of one model to an html file",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch renderFlags.profile {
		case "":
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
		default:
			return eris.Errorf("render: unknown profile %q, expected cpu or mem", renderFlags.profile)
		}

		req := liftchart.Request{
			ProjectID:   renderFlags.project,
			ModelID:     renderFlags.model,
			DatasetID:   renderFlags.dataset,
			SeriesID:    renderFlags.series,
			PartitionID: renderFlags.partition,
			Bins:        renderFlags.bins,
		}
		if renderFlags.url != "" {
			projectID, modelID, err := datarobot.ParseModelURL(renderFlags.url)
			if err != nil {
				return eris.Wrap(err, "render: parse url")
			}
			req.ProjectID, req.ModelID = projectID, modelID
		}
		if req.ProjectID == "" || req.ModelID == "" {
			return eris.New("render: --url or --project and --model are required")
		}
		if err := cfg.Validate("render"); err != nil {
			return err
		}

		dash, closer, err := newDashboard(cfg, newClient(cfg.DataRobot))
		if err != nil {
			return err
		}
		defer closer.Close()

		return writeReport(cmd.Context(), dash, req, renderFlags.out)
	},
}

// writeReport builds one report and plots it to path.
func writeReport(ctx context.Context, dash *liftchart.Dashboard, req liftchart.Request, path string) error {
	report, err := dash.Build(ctx, req)
	if err != nil {
		return eris.Wrap(err, "build report")
	}
	for _, w := range report.Warnings {
		zap.L().Warn("report warning", zap.String("warning", w))
	}

	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	if err := liftchart.Plot(file, report); err != nil {
		return eris.Wrap(err, "plot report")
	}
	zap.L().Info("wrote dashboard",
		zap.String("path", path),
		zap.String("series", report.Selection.SeriesID),
		zap.String("partition", report.Selection.PartitionID),
		zap.Int("bins", report.Selection.Bins),
	)
	return file.Close()
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.url, "url", "", "leaderboard model url")
	f.StringVar(&renderFlags.project, "project", "", "project id")
	f.StringVar(&renderFlags.model, "model", "", "model id")
	f.StringVar(&renderFlags.dataset, "dataset", "", "training dataset id (default the project catalog id)")
	f.StringVar(&renderFlags.series, "series", "", "series id (default the first series)")
	f.StringVar(&renderFlags.partition, "partition", "", "backtest index or Holdout (default the first backtest)")
	f.IntVar(&renderFlags.bins, "bins", 0, "number of lift chart bins (default from config)")
	f.StringVar(&renderFlags.out, "out", "liftchart.html", "output html file")
	f.StringVar(&renderFlags.profile, "profile", "", "write a cpu or mem profile to the working directory")
	rootCmd.AddCommand(renderCmd)
}
