package models

import "github.com/tablescope-inc/tablescope-engine/pkg/jsonutil"

// Sequence pattern kinds.
const (
	SequenceArithmetic = "arithmetic"
	SequenceGeometric  = "geometric"
)

// Correlation strength labels.
const (
	CorrelationStrong     = "strong"
	CorrelationVeryStrong = "very_strong"
)

// OutlierDetection is the result of one outlier detector on one column.
// Values is capped at 10 examples; Bounds are set only by the IQR method.
type OutlierDetection struct {
	Count      int             `json:"count"`
	Percentage jsonutil.Float  `json:"percentage"`
	Values     []Value         `json:"values"`
	LowerBound *jsonutil.Float `json:"lower_bound,omitempty"`
	UpperBound *jsonutil.Float `json:"upper_bound,omitempty"`
}

// ColumnOutliers bundles the three independent detections for a column.
type ColumnOutliers struct {
	ZScore    OutlierDetection `json:"z_score"`
	IQR       OutlierDetection `json:"iqr"`
	ModifiedZ OutlierDetection `json:"modified_z"`
}

// SequencePattern describes an arithmetic or geometric progression found in a
// numeric column.
type SequencePattern struct {
	Type             string          `json:"type"`
	CommonDifference *jsonutil.Float `json:"common_difference,omitempty"`
	CommonRatio      *jsonutil.Float `json:"common_ratio,omitempty"`
	Consistency      jsonutil.Float  `json:"consistency"`
}

// ValueCount is one entry of a value-frequency ranking.
type ValueCount struct {
	Value Value `json:"value"`
	Count int   `json:"count"`
}

// RepeatingPattern summarizes value repetition in a text column.
// RepetitionScore is a Herfindahl concentration index (1.0 = one value
// dominates). Autocorrelation is a lag-1 autocorrelation over categorical
// codes, present only for columns with more than 10 values.
type RepeatingPattern struct {
	TotalValues     int             `json:"total_values"`
	UniqueValues    int             `json:"unique_values"`
	UniquenessRatio jsonutil.Float  `json:"uniqueness_ratio"`
	MostCommon      []ValueCount    `json:"most_common"`
	RepetitionScore jsonutil.Float  `json:"repetition_score"`
	Autocorrelation *jsonutil.Float `json:"autocorrelation,omitempty"`
}

// CountPercentage pairs an absolute count with its share of the total.
type CountPercentage struct {
	Count      int            `json:"count"`
	Percentage jsonutil.Float `json:"percentage"`
}

// MissingCorrelation records two columns whose nullness is correlated.
type MissingCorrelation struct {
	Column1     string         `json:"column1"`
	Column2     string         `json:"column2"`
	Correlation jsonutil.Float `json:"correlation"`
}

// MissingDataPatterns describes where and how values are missing.
type MissingDataPatterns struct {
	ByColumn                map[string]CountPercentage `json:"by_column"`
	CorrelatedMissing       []MissingCorrelation       `json:"correlated_missing,omitempty"`
	RowsWithMultipleMissing CountPercentage            `json:"rows_with_multiple_missing"`
}

// ClusterPattern is the density-based clustering result for one numeric
// column pair. Pairs where at most one cluster was found are not reported.
type ClusterPattern struct {
	NClusters       int             `json:"n_clusters"`
	NNoisePoints    int             `json:"n_noise_points"`
	NoisePercentage jsonutil.Float  `json:"noise_percentage"`
	SilhouetteScore *jsonutil.Float `json:"silhouette_score"`
}

// TablePatterns groups the pattern detections for a table.
type TablePatterns struct {
	Sequences       map[string]SequencePattern  `json:"sequences"`
	RepeatingValues map[string]RepeatingPattern `json:"repeating_values"`
	MissingData     MissingDataPatterns         `json:"missing_data"`
	Clusters        map[string]ClusterPattern   `json:"clusters"`
}

// CorrelationPair records a strong Pearson correlation between two numeric columns.
type CorrelationPair struct {
	Column1     string         `json:"column1"`
	Column2     string         `json:"column2"`
	Correlation jsonutil.Float `json:"correlation"`
	Strength    string         `json:"strength"`
}

// Correlations holds strong pairs plus the full matrix.
type Correlations struct {
	StrongCorrelations []CorrelationPair                    `json:"strong_correlations"`
	CorrelationMatrix  map[string]map[string]jsonutil.Float `json:"correlation_matrix"`
}

// Completeness is the table-level missing-cell summary; Score is a percentage.
type Completeness struct {
	Score        jsonutil.Float `json:"score"`
	MissingCells int            `json:"missing_cells"`
	TotalCells   int            `json:"total_cells"`
}

// Consistency holds structural quality checks.
type Consistency struct {
	DuplicateRows       CountPercentage `json:"duplicate_rows"`
	ZeroVarianceColumns []string        `json:"zero_variance_columns"`
	MixedTypeColumns    []string        `json:"mixed_type_columns"`
}

// DataQuality is the per-table quality assessment.
type DataQuality struct {
	Completeness Completeness `json:"completeness"`
	Consistency  Consistency  `json:"consistency"`
}

// Quartiles of a numeric distribution.
type Quartiles struct {
	Q1 jsonutil.Float `json:"q1"`
	Q2 jsonutil.Float `json:"q2"`
	Q3 jsonutil.Float `json:"q3"`
}

// NormalityTest is a Shapiro–Wilk result. A failed test carries an Error
// marker instead of aborting the distribution report.
type NormalityTest struct {
	PValue   *jsonutil.Float `json:"p_value,omitempty"`
	IsNormal *bool           `json:"is_normal,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Distribution holds descriptive statistics for a numeric column.
type Distribution struct {
	Mean          jsonutil.Float `json:"mean"`
	Median        jsonutil.Float `json:"median"`
	Std           jsonutil.Float `json:"std"`
	Skewness      jsonutil.Float `json:"skewness"`
	Kurtosis      jsonutil.Float `json:"kurtosis"`
	Min           jsonutil.Float `json:"min"`
	Max           jsonutil.Float `json:"max"`
	Quartiles     Quartiles      `json:"quartiles"`
	NormalityTest *NormalityTest `json:"normality_test,omitempty"`
}

// PatternReport is the full per-table output of the pattern/quality analyzer.
type PatternReport struct {
	Outliers      map[string]ColumnOutliers `json:"outliers"`
	Patterns      TablePatterns             `json:"patterns"`
	Correlations  Correlations              `json:"correlations"`
	DataQuality   DataQuality               `json:"data_quality"`
	Distributions map[string]Distribution   `json:"distributions"`
}
