package datarobot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aouyang1/go-liftchart/dataset"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

var (
	ErrNotMultiseries = errors.New("project has no multiseries id column")
	ErrJobFailed      = errors.New("training prediction job failed")
	ErrJobTimeout     = errors.New("training prediction job did not finish in time")
	ErrNoJobLocation  = errors.New("training prediction job returned no status location")
)

const predictionPageSize = 10000

type predictionSet struct {
	ID         string `json:"id"`
	ModelID    string `json:"modelId"`
	DataSubset string `json:"dataSubset"`
}

type predictionSetList struct {
	Data []predictionSet `json:"data"`
	Next *string         `json:"next"`
}

type predictionRow struct {
	RowID            int      `json:"rowId"`
	PartitionID      string   `json:"partitionId"`
	Prediction       *float64 `json:"prediction"`
	Timestamp        string   `json:"timestamp"`
	ForecastPoint    string   `json:"forecastPoint"`
	ForecastDistance int      `json:"forecastDistance"`
	SeriesID         string   `json:"seriesId"`
}

type predictionPage struct {
	Data []predictionRow `json:"data"`
	Next *string         `json:"next"`
}

type jobStatus struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// TrainingPredictions returns the out of sample predictions of a model for the given subset. An
// existing prediction set is reused, otherwise one is requested and waited on.
func (c *Client) TrainingPredictions(ctx context.Context, projectID, modelID, subset string) ([]dataset.ForecastRecord, error) {
	set, err := c.findPredictionSet(ctx, projectID, modelID, subset)
	if err != nil {
		return nil, err
	}
	if set == nil {
		if err := c.requestPredictions(ctx, projectID, modelID, subset); err != nil {
			return nil, err
		}
		set, err = c.findPredictionSet(ctx, projectID, modelID, subset)
		if err != nil {
			return nil, err
		}
		if set == nil {
			return nil, eris.Wrapf(ErrJobFailed, "datarobot: no %s predictions for model %s after job", subset, modelID)
		}
	}
	return c.predictionRows(ctx, projectID, set.ID)
}

func (c *Client) findPredictionSet(ctx context.Context, projectID, modelID, subset string) (*predictionSet, error) {
	next := fmt.Sprintf("/projects/%s/trainingPredictions/", projectID)
	for next != "" {
		var page predictionSetList
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, eris.Wrap(err, "datarobot: list training predictions")
		}
		for _, set := range page.Data {
			if set.ModelID == modelID && set.DataSubset == subset {
				return &set, nil
			}
		}
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return nil, nil
}

func (c *Client) requestPredictions(ctx context.Context, projectID, modelID, subset string) error {
	body, err := json.Marshal(map[string]string{
		"modelId":    modelID,
		"dataSubset": subset,
	})
	if err != nil {
		return eris.Wrap(err, "datarobot: marshal prediction request")
	}

	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/trainingPredictions/", projectID), bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "datarobot: request training predictions")
	}
	location := resp.Header.Get("Location")
	_ = resp.Body.Close()
	if location == "" {
		return eris.Wrapf(ErrNoJobLocation, "datarobot: model %s subset %s", modelID, subset)
	}
	return c.waitForJob(ctx, location)
}

// waitForJob polls the status location until the job completes. A finished job redirects to the
// created resource, which carries no status field.
func (c *Client) waitForJob(ctx context.Context, location string) error {
	deadline := time.Now().Add(c.maxWait)
	for {
		var status jobStatus
		if err := c.getJSON(ctx, location, &status); err != nil {
			return eris.Wrap(err, "datarobot: poll job status")
		}

		switch strings.ToUpper(status.Status) {
		case "", "COMPLETED":
			return nil
		case "ERROR", "ABORTED":
			return eris.Wrapf(ErrJobFailed, "datarobot: job status %s", status.Status)
		}

		if time.Now().Add(c.pollInterval).After(deadline) {
			return eris.Wrapf(ErrJobTimeout, "datarobot: waited %s", c.maxWait)
		}
		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "datarobot: poll job status")
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) predictionRows(ctx context.Context, projectID, predictionID string) ([]dataset.ForecastRecord, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", predictionPageSize))
	next := fmt.Sprintf("/projects/%s/trainingPredictions/%s/?%s", projectID, predictionID, q.Encode())

	var records []dataset.ForecastRecord
	for next != "" {
		var page predictionPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, eris.Wrap(err, "datarobot: get training predictions")
		}
		for _, row := range page.Data {
			rec, err := row.record()
			if err != nil {
				return nil, eris.Wrapf(err, "datarobot: prediction row %d", row.RowID)
			}
			records = append(records, rec)
		}
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return records, nil
}

func (r predictionRow) record() (dataset.ForecastRecord, error) {
	ts, err := dataset.ParseDate(r.Timestamp)
	if err != nil {
		return dataset.ForecastRecord{}, err
	}
	fp, err := dataset.ParseDate(r.ForecastPoint)
	if err != nil {
		return dataset.ForecastRecord{}, err
	}
	return dataset.ForecastRecord{
		SeriesID:         r.SeriesID,
		Timestamp:        ts,
		ForecastPoint:    fp,
		ForecastDistance: r.ForecastDistance,
		PartitionID:      r.PartitionID,
		Prediction:       dataset.FromNullFloat(r.Prediction),
	}, nil
}
