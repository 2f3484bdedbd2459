package dataset

// Training prediction subsets requested from the platform.
const (
	SubsetHoldout      = "holdout"
	SubsetAllBacktests = "allBacktests"
)

// Project is the metadata of a time series project.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Target    string `json:"target"`
	CatalogID string `json:"catalog_id"`
}

// TargetColumn is the target name as it appears in the raw training data.
func (p Project) TargetColumn() string {
	return StripActual(p.Target)
}

// Columns names the training data columns holding the join keys and the target.
type Columns struct {
	Datetime string
	Series   string
	Target   string
}

// NewColumns derives the training data columns from the project partitioning and target.
func NewColumns(p Partitioning, target string) Columns {
	return Columns{
		Datetime: StripActual(p.DatetimeColumn),
		Series:   StripActual(p.SeriesColumn),
		Target:   StripActual(target),
	}
}
