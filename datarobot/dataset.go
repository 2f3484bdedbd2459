package datarobot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/aouyang1/go-liftchart/dataset"
	"github.com/rotisserie/eris"
)

var (
	ErrMissingColumn = errors.New("training data is missing a column")
	ErrInvalidTarget = errors.New("training data target is not numeric")
)

// TrainingData downloads the raw training dataset and extracts the series, timestamp and target
// columns. Empty and NA targets are NaN.
func (c *Client) TrainingData(ctx context.Context, datasetID string, cols dataset.Columns) ([]dataset.ActualRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/datasets/%s/file/", datasetID), nil)
	if err != nil {
		return nil, eris.Wrap(err, "datarobot: download dataset")
	}
	defer resp.Body.Close()

	records, err := ParseTrainingCSV(resp.Body, cols)
	if err != nil {
		return nil, eris.Wrapf(err, "datarobot: parse dataset %s", datasetID)
	}
	return records, nil
}

// ParseTrainingCSV reads a training table with a header row.
func ParseTrainingCSV(r io.Reader, cols dataset.Columns) ([]dataset.ActualRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	var idx [3]int
	for i, name := range []string{cols.Datetime, cols.Series, cols.Target} {
		pos, exists := index[name]
		if !exists {
			return nil, eris.Wrapf(ErrMissingColumn, "csv: column %q", name)
		}
		idx[i] = pos
	}

	var records []dataset.ActualRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "csv: read line %d", line)
		}
		if len(row) <= idx[0] || len(row) <= idx[1] || len(row) <= idx[2] {
			return nil, eris.Wrapf(ErrMissingColumn, "csv: short line %d", line)
		}

		ts, err := dataset.ParseDate(row[idx[0]])
		if err != nil {
			return nil, eris.Wrapf(err, "csv: line %d", line)
		}
		actual, err := parseTarget(row[idx[2]])
		if err != nil {
			return nil, eris.Wrapf(err, "csv: line %d", line)
		}
		records = append(records, dataset.ActualRecord{
			SeriesID:  row[idx[1]],
			Timestamp: ts,
			Actual:    actual,
		})
	}
	return records, nil
}

func parseTarget(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "none":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q, %w", s, ErrInvalidTarget)
	}
	return v, nil
}
