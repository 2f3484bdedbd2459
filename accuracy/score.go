package accuracy

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrResLenMismatch = errors.New("predicted and actual have different lengths")
	ErrNoScoredRows   = errors.New("no rows with both a prediction and an actual")
)

// Scores tracks the accuracy of a view over the rows that have an actual value.
type Scores struct {
	Rows int     `json:"rows"`
	MAE  float64 `json:"mean_absolute_error"`
	MSE  float64 `json:"mean_squared_error"`
	MAPE float64 `json:"mean_average_percent_error"`
	R2   float64 `json:"r_squared"`
}

// NewScores calculates the scores of the view.
func NewScores(v *View) (*Scores, error) {
	predicted, actual := pairs(v.Predictions(), v.Actuals())
	if len(actual) == 0 {
		return nil, fmt.Errorf("series %s, %w", v.SeriesID, ErrNoScoredRows)
	}

	mae, err := MAE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	mse, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, err := MAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean average percent error, %w", err)
	}
	rs, err := RSquared(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute r-squared, %w", err)
	}

	return &Scores{
		Rows: len(actual),
		MAE:  mae,
		MSE:  mse,
		MAPE: mape,
		R2:   rs,
	}, nil
}

// pairs drops positions where either side is NaN
func pairs(predicted, actual []float64) ([]float64, []float64) {
	p := make([]float64, 0, len(predicted))
	a := make([]float64, 0, len(actual))
	for i := 0; i < len(predicted) && i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		p = append(p, predicted[i])
		a = append(a, actual[i])
	}
	return p, a
}

// MAE computes the mean absolute error, sum(abs(y-yhat))/n.
func MAE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	predicted, actual = pairs(predicted, actual)
	if len(actual) == 0 {
		return 0, nil
	}

	return floats.Distance(actual, predicted, 1) / float64(len(actual)), nil
}

// MSE computes the mean squared error. This is the same as sum((y-yhat)^2)/n.
// A score of 0 means a perfect match with no errors.
func MSE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	predicted, actual = pairs(predicted, actual)
	if len(actual) == 0 {
		return 0, nil
	}

	d := floats.Distance(actual, predicted, 2)
	return d * d / float64(len(actual)), nil
}

// MAPE calculates the mean average percent error. This is the same as sum(abs((y-yhat)/y))/n,
// skipping zero actuals. A score of 0 means a perfect match with no errors.
func MAPE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	predicted, actual = pairs(predicted, actual)

	var n int
	mape := 0.0
	for i := 0; i < len(actual); i++ {
		if actual[i] == 0 {
			continue
		}
		mape += math.Abs((actual[i] - predicted[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return mape / float64(n), nil
}

// RSquared computes the r squared value between the predicted and actual where 1.0 means perfect
// fit and 0 represents no relationship
func RSquared(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	predictCopy, actualCopy := pairs(predicted, actual)
	if len(actualCopy) == 0 {
		return 1.0, nil
	}
	r2 := stat.RSquaredFrom(predictCopy, actualCopy, nil)
	if math.IsNaN(r2) {
		return 1.0, nil
	}
	return r2, nil
}
