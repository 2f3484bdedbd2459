// Package liftchart drives one dashboard interaction: fetch the out of sample predictions and
// training data of a time series model, merge them and derive the accuracy over time view and the
// binned lift charts.
package liftchart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aouyang1/go-liftchart/accuracy"
	"github.com/aouyang1/go-liftchart/cache"
	"github.com/aouyang1/go-liftchart/calendar"
	"github.com/aouyang1/go-liftchart/dataset"
	"github.com/aouyang1/go-liftchart/lift"
	"github.com/rickar/cal/v2"
	"go.uber.org/zap"
)

var (
	ErrDataUnavailable = errors.New("data unavailable")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Source provides the remote data of a project. It is implemented by the DataRobot client and by
// simulated datasets.
type Source interface {
	Project(ctx context.Context, projectID string) (dataset.Project, error)
	Partitioning(ctx context.Context, projectID string) (dataset.Partitioning, error)
	TrainingPredictions(ctx context.Context, projectID, modelID, subset string) ([]dataset.ForecastRecord, error)
	TrainingData(ctx context.Context, datasetID string, cols dataset.Columns) ([]dataset.ActualRecord, error)
}

// Request is a single dashboard interaction. Zero valued selections fall back to the first series,
// the first partition option and the default bin count.
type Request struct {
	ProjectID   string `json:"project_id"`
	ModelID     string `json:"model_id"`
	DatasetID   string `json:"dataset_id,omitempty"`
	SeriesID    string `json:"series_id,omitempty"`
	PartitionID string `json:"partition_id,omitempty"`
	Bins        int    `json:"bins,omitempty"`
}

func (r Request) validate() error {
	if r.ProjectID == "" || r.ModelID == "" {
		return fmt.Errorf("project and model ids are required, %w", ErrInvalidRequest)
	}
	return nil
}

// Dashboard computes reports from a Source, caching the merged table per project, model and
// dataset.
type Dashboard struct {
	src         Source
	cache       cache.Cache
	defaultBins int
	holidays    []*cal.Holiday
	outliers    *accuracy.OutlierOptions
	log         *zap.Logger
}

// New creates a dashboard over src. Without options the merged tables are cached in memory without
// expiry.
func New(src Source, opts ...Option) *Dashboard {
	d := &Dashboard{
		src:         src,
		cache:       cache.NewMemory(0),
		defaultBins: lift.DefaultBins,
		holidays:    calendar.Holidays(),
		outliers:    accuracy.NewOutlierOptions(),
		log:         zap.L(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type metadata struct {
	project      dataset.Project
	partitioning dataset.Partitioning
	datasetID    string
}

func unavailable(what string, err error) error {
	return fmt.Errorf("unable to fetch %s, %w: %w", what, ErrDataUnavailable, err)
}

func (d *Dashboard) metadata(ctx context.Context, req Request) (metadata, error) {
	project, err := d.src.Project(ctx, req.ProjectID)
	if err != nil {
		return metadata{}, unavailable("project "+req.ProjectID, err)
	}
	partitioning, err := d.src.Partitioning(ctx, req.ProjectID)
	if err != nil {
		return metadata{}, unavailable("partitioning of "+req.ProjectID, err)
	}

	datasetID := req.DatasetID
	if datasetID == "" {
		datasetID = project.CatalogID
	}
	if datasetID == "" {
		return metadata{}, fmt.Errorf("project %s has no training dataset, %w", req.ProjectID, ErrDataUnavailable)
	}
	return metadata{project: project, partitioning: partitioning, datasetID: datasetID}, nil
}

// Load returns the merged table of the request, reading through the cache.
func (d *Dashboard) Load(ctx context.Context, req Request) (*dataset.Joined, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	meta, err := d.metadata(ctx, req)
	if err != nil {
		return nil, err
	}
	return d.load(ctx, req, meta)
}

func (d *Dashboard) load(ctx context.Context, req Request, meta metadata) (*dataset.Joined, error) {
	key := cache.Key{ProjectID: req.ProjectID, ModelID: req.ModelID, DatasetID: meta.datasetID}
	joined, err := d.cache.Get(ctx, key)
	if err == nil {
		d.log.Debug("merge cache hit", zap.Stringer("key", key), zap.Int("rows", joined.Len()))
		return joined, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		d.log.Warn("merge cache get failed", zap.Stringer("key", key), zap.Error(err))
	}

	start := time.Now()
	backtest, err := d.src.TrainingPredictions(ctx, req.ProjectID, req.ModelID, dataset.SubsetAllBacktests)
	if err != nil {
		return nil, unavailable("backtest predictions", err)
	}
	var holdout []dataset.ForecastRecord
	if !meta.partitioning.DisableHoldout {
		holdout, err = d.src.TrainingPredictions(ctx, req.ProjectID, req.ModelID, dataset.SubsetHoldout)
		if err != nil {
			return nil, unavailable("holdout predictions", err)
		}
	}
	actuals, err := d.src.TrainingData(ctx, meta.datasetID, dataset.NewColumns(meta.partitioning, meta.project.Target))
	if err != nil {
		return nil, unavailable("training data "+meta.datasetID, err)
	}

	joined, err = dataset.Merge(backtest, holdout, actuals)
	if err != nil {
		return nil, fmt.Errorf("unable to merge predictions with training data, %w", err)
	}
	d.log.Info("merged predictions",
		zap.Stringer("key", key),
		zap.Int("backtest_rows", len(backtest)),
		zap.Int("holdout_rows", len(holdout)),
		zap.Int("training_rows", len(actuals)),
		zap.Int("matched", joined.Matched()),
		zap.Duration("took", time.Since(start)),
	)

	if err := d.cache.Set(ctx, key, joined); err != nil {
		d.log.Warn("merge cache set failed", zap.Stringer("key", key), zap.Error(err))
	}
	return joined, nil
}

// Invalidate drops the cached merge of the request so the next Load fetches fresh data.
func (d *Dashboard) Invalidate(ctx context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	datasetID := req.DatasetID
	if datasetID == "" {
		meta, err := d.metadata(ctx, req)
		if err != nil {
			return err
		}
		datasetID = meta.datasetID
	}
	key := cache.Key{ProjectID: req.ProjectID, ModelID: req.ModelID, DatasetID: datasetID}
	if err := d.cache.Invalidate(ctx, key); err != nil {
		return fmt.Errorf("unable to invalidate %s, %w", key, err)
	}
	d.log.Info("merge cache invalidated", zap.Stringer("key", key))
	return nil
}

// Selection resolves the series, partition and bin count of a request against the merged table.
type Selection struct {
	SeriesID    string `json:"series_id"`
	PartitionID string `json:"partition_id"`
	Bins        int    `json:"bins"`
}

func (d *Dashboard) selection(req Request, partitions, seriesIDs []string) (Selection, error) {
	sel := Selection{
		SeriesID:    req.SeriesID,
		PartitionID: dataset.NormalizePartitionID(req.PartitionID),
		Bins:        req.Bins,
	}
	if sel.Bins == 0 {
		sel.Bins = d.defaultBins
	}
	if err := lift.ValidateBins(sel.Bins); err != nil {
		return Selection{}, err
	}

	if len(seriesIDs) == 0 {
		return Selection{}, fmt.Errorf("no forecast rows, %w", ErrDataUnavailable)
	}
	if sel.SeriesID == "" {
		sel.SeriesID = seriesIDs[0]
	} else if !slices.Contains(seriesIDs, sel.SeriesID) {
		return Selection{}, fmt.Errorf("unknown series %q, %w", sel.SeriesID, ErrInvalidRequest)
	}

	if sel.PartitionID == "" && len(partitions) > 0 {
		sel.PartitionID = partitions[0]
	}
	return sel, nil
}

// Build runs one interaction and returns everything the dashboard page draws.
func (d *Dashboard) Build(ctx context.Context, req Request) (*Report, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	meta, err := d.metadata(ctx, req)
	if err != nil {
		return nil, err
	}
	joined, err := d.load(ctx, req, meta)
	if err != nil {
		return nil, err
	}

	partitions := meta.partitioning.PartitionOptions()
	if len(partitions) == 0 {
		partitions = joined.Partitions()
	}
	seriesIDs := joined.SeriesIDs()
	sel, err := d.selection(req, partitions, seriesIDs)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Project:    meta.project,
		DatasetID:  meta.datasetID,
		ModelID:    req.ModelID,
		Selection:  sel,
		Partitions: partitions,
		SeriesIDs:  seriesIDs,
	}

	report.Accuracy = accuracy.OverTime(joined, sel.SeriesID)
	report.Unbinned = accuracy.Unbinned(report.Accuracy)
	if len(d.holidays) > 0 {
		report.Holidays = calendar.Annotate(report.Accuracy.T(), d.holidays...)
	}
	if d.outliers != nil {
		report.Outliers = accuracy.Outliers(report.Accuracy, d.outliers)
	}
	if !report.Accuracy.Empty() {
		scores, err := accuracy.NewScores(report.Accuracy)
		switch {
		case errors.Is(err, accuracy.ErrNoScoredRows):
			report.warn(err)
		case err != nil:
			return nil, fmt.Errorf("unable to score accuracy, %w", err)
		default:
			report.Scores = scores
		}
	}

	// a selection too small to fill every bin leaves that chart empty, the other views still render
	seriesFilter := dataset.Filter{SeriesID: sel.SeriesID, PartitionID: sel.PartitionID}
	report.SeriesLift, report.SeriesLiftErr = lift.Aggregate(joined, seriesFilter, sel.Bins)
	report.warn(report.SeriesLiftErr)
	report.warn(joined.CheckMatches(seriesFilter))

	allFilter := dataset.Filter{PartitionID: sel.PartitionID}
	report.AllSeriesLift, report.AllSeriesLiftErr = lift.Aggregate(joined, allFilter, sel.Bins)
	report.warn(report.AllSeriesLiftErr)
	report.warn(joined.CheckMatches(allFilter))

	d.log.Debug("built report",
		zap.String("project", req.ProjectID),
		zap.String("model", req.ModelID),
		zap.String("series", sel.SeriesID),
		zap.String("partition", sel.PartitionID),
		zap.Int("bins", sel.Bins),
		zap.Strings("warnings", report.Warnings),
	)
	return report, nil
}

// Lift bins the merged rows matching the series and partition of the request. Unlike Build, empty
// selections are not defaulted and match every series or partition.
func (d *Dashboard) Lift(ctx context.Context, req Request) (*lift.Result, error) {
	bins := req.Bins
	if bins == 0 {
		bins = d.defaultBins
	}
	if err := lift.ValidateBins(bins); err != nil {
		return nil, err
	}
	joined, err := d.Load(ctx, req)
	if err != nil {
		return nil, err
	}
	f := dataset.Filter{SeriesID: req.SeriesID, PartitionID: dataset.NormalizePartitionID(req.PartitionID)}
	return lift.Aggregate(joined, f, bins)
}
