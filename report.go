package liftchart

import (
	"github.com/aouyang1/go-liftchart/accuracy"
	"github.com/aouyang1/go-liftchart/calendar"
	"github.com/aouyang1/go-liftchart/dataset"
	"github.com/aouyang1/go-liftchart/lift"
)

// Report holds the result of one dashboard interaction.
type Report struct {
	Project    dataset.Project `json:"project"`
	ModelID    string          `json:"model_id"`
	DatasetID  string          `json:"dataset_id"`
	Selection  Selection       `json:"selection"`
	Partitions []string        `json:"partitions"`
	SeriesIDs  []string        `json:"series_ids"`

	Accuracy *accuracy.View      `json:"accuracy"`
	Unbinned []dataset.JoinedRow `json:"unbinned"`
	Scores   *accuracy.Scores    `json:"scores,omitempty"`
	Holidays []calendar.Mark     `json:"holidays"`
	Outliers []accuracy.Outlier  `json:"outliers"`

	// SeriesLift and AllSeriesLift are nil when their selection could not be binned, the reason is
	// kept in SeriesLiftErr and AllSeriesLiftErr.
	SeriesLift       *lift.Result `json:"series_lift"`
	AllSeriesLift    *lift.Result `json:"all_series_lift"`
	SeriesLiftErr    error        `json:"-"`
	AllSeriesLiftErr error        `json:"-"`

	// Warnings carry non fatal conditions such as a merge that matched no actual values.
	Warnings []string `json:"warnings"`
}

func (r *Report) warn(err error) {
	if err == nil {
		return
	}
	r.Warnings = append(r.Warnings, err.Error())
}
