package liftchart

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-liftchart/accuracy"
	"github.com/aouyang1/go-liftchart/calendar"
	"github.com/aouyang1/go-liftchart/dataset"
	"github.com/aouyang1/go-liftchart/lift"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// missing is how echarts expects a gap in a line series.
const missing = "-"

func lineValue(v float64) opts.LineData {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.LineData{Value: missing}
	}
	return opts.LineData{Value: v}
}

func newLine(title, subtitle, xName, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title:    title,
				Subtitle: subtitle,
			},
		),
		charts.WithTooltipOpts(
			opts.Tooltip{
				Trigger: "axis",
			},
		),
		charts.WithXAxisOpts(
			opts.XAxis{
				Name: xName,
			},
		),
		charts.WithYAxisOpts(
			opts.YAxis{
				Name: yName,
			},
		),
	)
	return line
}

// LineAccuracy generates an echart line chart of the actual and one step ahead predicted values of a
// series over time. Holidays inside the view are drawn as vertical mark lines and outliers as mark
// points on the actual line.
func LineAccuracy(v *accuracy.View, holidays []calendar.Mark, outliers []accuracy.Outlier, target string) *charts.Line {
	subtitle := "series " + v.SeriesID
	if v.Empty() {
		subtitle += ", no forecast distance 1 rows"
	}
	line := newLine("Accuracy Over Time", subtitle, "date", target)

	x := make([]string, 0, len(v.Rows))
	lineDataActual := make([]opts.LineData, 0, len(v.Rows))
	lineDataPredicted := make([]opts.LineData, 0, len(v.Rows))
	for _, r := range v.Rows {
		x = append(x, r.Timestamp.Format(time.DateOnly))
		lineDataActual = append(lineDataActual, lineValue(r.Actual))
		lineDataPredicted = append(lineDataPredicted, lineValue(r.Prediction))
	}

	marks := make([]opts.MarkLineNameXAxisItem, 0, len(holidays))
	for _, h := range holidays {
		marks = append(marks, opts.MarkLineNameXAxisItem{
			Name:  h.Name,
			XAxis: h.Date.Format(time.DateOnly),
		})
	}

	points := make([]opts.MarkPointNameCoordItem, 0, len(outliers))
	for _, o := range outliers {
		date := o.Timestamp.Format(time.DateOnly)
		points = append(points, opts.MarkPointNameCoordItem{
			Name:       "outlier " + date,
			Coordinate: []interface{}{date, o.Actual},
		})
	}

	line.SetXAxis(x).
		AddSeries("Actual", lineDataActual,
			charts.WithMarkLineNameXAxisItemOpts(marks...),
			charts.WithMarkPointNameCoordItemOpts(points...),
		).
		AddSeries("Predicted", lineDataPredicted)
	return line
}

// LineUnbinned generates an echart line chart of every point of the view ordered by prediction.
func LineUnbinned(rows []dataset.JoinedRow, seriesID, target string) *charts.Line {
	line := newLine("Unbinned Lift Chart", "series "+seriesID, "prediction rank", target)

	x := make([]int, 0, len(rows))
	lineDataActual := make([]opts.LineData, 0, len(rows))
	lineDataPredicted := make([]opts.LineData, 0, len(rows))
	for i, r := range rows {
		x = append(x, i)
		lineDataActual = append(lineDataActual, lineValue(r.Actual))
		lineDataPredicted = append(lineDataPredicted, lineValue(r.Prediction))
	}

	line.SetXAxis(x).
		AddSeries("Actual", lineDataActual).
		AddSeries("Predicted", lineDataPredicted)
	return line
}

// LineLift generates an echart line chart of the mean prediction and mean actual per bin. Each
// partition in the result gets its own pair of lines. A nil result draws an empty chart.
func LineLift(title, subtitle string, res *lift.Result, target string) *charts.Line {
	if res == nil {
		line := newLine(title, subtitle+", not enough rows to bin", "bin", target)
		line.SetXAxis([]int{})
		return line
	}
	line := newLine(title, fmt.Sprintf("%s, %d bins", subtitle, res.Bins), "bin", target)

	x := make([]int, res.Bins)
	for i := range x {
		x[i] = i
	}
	line.SetXAxis(x)

	var partitions []string
	byPartition := make(map[string][]lift.BinSummary)
	for _, s := range res.Summaries {
		if _, exists := byPartition[s.PartitionID]; !exists {
			partitions = append(partitions, s.PartitionID)
		}
		byPartition[s.PartitionID] = append(byPartition[s.PartitionID], s)
	}

	for _, p := range partitions {
		lineDataActual := make([]opts.LineData, res.Bins)
		lineDataPredicted := make([]opts.LineData, res.Bins)
		for i := range lineDataActual {
			lineDataActual[i] = opts.LineData{Value: missing}
			lineDataPredicted[i] = opts.LineData{Value: missing}
		}
		for _, s := range byPartition[p] {
			if s.Bin < 0 || s.Bin >= res.Bins {
				continue
			}
			lineDataActual[s.Bin] = lineValue(s.ActualMean)
			lineDataPredicted[s.Bin] = lineValue(s.PredictionMean)
		}

		actualName, predictedName := "Actual", "Predicted"
		if len(partitions) > 1 {
			actualName += " " + p
			predictedName += " " + p
		}
		line.AddSeries(actualName, lineDataActual).
			AddSeries(predictedName, lineDataPredicted)
	}
	return line
}

// Page lays out the four dashboard charts of a report.
func Page(r *Report) *components.Page {
	target := r.Project.TargetColumn()
	partition := "partition " + r.Selection.PartitionID

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s lift chart", r.Project.Name)
	page.AddCharts(
		LineAccuracy(r.Accuracy, r.Holidays, r.Outliers, target),
		LineUnbinned(r.Unbinned, r.Selection.SeriesID, target),
		LineLift("Binned Lift Chart", "series "+r.Selection.SeriesID+", "+partition, r.SeriesLift, target),
		LineLift("Binned Lift Chart, All Series", partition, r.AllSeriesLift, target),
	)
	return page
}

// Plot uses the Apache Echarts library to render the report as an html page.
func Plot(w io.Writer, r *Report) error {
	if err := Page(r).Render(w); err != nil {
		return fmt.Errorf("unable to render dashboard, %w", err)
	}
	return nil
}
