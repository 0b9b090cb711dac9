package models

import "github.com/tablescope-inc/tablescope-engine/pkg/jsonutil"

// InsightSummary holds basic shape facts for one table.
type InsightSummary struct {
	Rows                  int            `json:"rows"`
	Columns               int            `json:"columns"`
	MissingDataPercentage jsonutil.Float `json:"missing_data_percentage"`
}

// TableInsights carries derived narrative facts for one table.
type TableInsights struct {
	Summary           InsightSummary `json:"summary"`
	KeyInsights       []string       `json:"key_insights"`
	Recommendations   []string       `json:"recommendations"`
	DataQualityIssues []string       `json:"data_quality_issues"`
}

// AnalysisSummary aggregates the whole run. DataQualityScore is 0–100,
// 100 × (1 − mean per-table missing-cell ratio), clamped at zero.
type AnalysisSummary struct {
	TotalTables      int            `json:"total_tables"`
	TotalRows        int            `json:"total_rows"`
	TotalColumns     int            `json:"total_columns"`
	DataQualityScore jsonutil.Float `json:"data_quality_score"`
}

// AnalysisResult is the complete nested output of one analysis run.
// Relationships is empty (not nil) when fewer than two tables were analyzed.
type AnalysisResult struct {
	DataTypes     map[string]map[string]*ColumnProfile `json:"data_types"`
	Patterns      map[string]*PatternReport            `json:"patterns"`
	Relationships *RelationshipReport                  `json:"relationships"`
	Insights      map[string]*TableInsights            `json:"insights"`
	Summary       *AnalysisSummary                     `json:"summary"`
}
