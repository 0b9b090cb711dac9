package models

import "github.com/tablescope-inc/tablescope-engine/pkg/jsonutil"

// Key candidate types.
const (
	KeyTypeIdentifier       = "identifier"
	KeyTypeUniqueIdentifier = "unique_identifier"
	KeyTypeAutoIncrement    = "auto_increment"
	KeyTypeUnknown          = "unknown"
)

// Relationship types between two columns' value sets.
const (
	RelStrongOverlap  = "strong_overlap"
	RelTable1Subset   = "table1_subset_of_table2"
	RelTable2Subset   = "table2_subset_of_table1"
	RelPartialOverlap = "partial_overlap"
	RelWeakOverlap    = "weak_overlap"
	RelNoOverlap      = "no_overlap"
	RelNoData         = "no_data"
)

// Recommended join types.
const (
	JoinInner           = "INNER JOIN"
	JoinLeftTable1      = "LEFT JOIN (table1 LEFT JOIN table2)"
	JoinLeftTable2      = "LEFT JOIN (table2 LEFT JOIN table1)"
	JoinFullOuter       = "FULL OUTER JOIN"
	JoinCrossWithCaveat = "CROSS JOIN (with caution)"
)

// Expected result size hints attached to join suggestions.
const (
	ResultSizeSimilarToSmaller = "similar_to_smaller_table"
	ResultSizeSameAsTable1     = "same_as_table1"
	ResultSizeSameAsTable2     = "same_as_table2"
	ResultSizeBetween          = "between_table_sizes"
	ResultSizeLargerThanBoth   = "larger_than_both_tables"
	ResultSizeVeryLarge        = "very_large"
)

// KeyCandidate scores how likely a column is to serve as a table key.
// A column qualifies only if Score > 50, Uniqueness > 0.8 and Completeness > 0.8.
type KeyCandidate struct {
	Column       string         `json:"column"`
	KeyType      string         `json:"key_type"`
	Uniqueness   jsonutil.Float `json:"uniqueness"`
	Completeness jsonutil.Float `json:"completeness"`
	Score        jsonutil.Float `json:"score"`
}

// Relationship describes the value overlap between one column in each of two
// tables. Column is "colA↔colB" when the pairing came from name similarity
// rather than an exact shared name; IsRenamed marks those pairings.
type Relationship struct {
	Column           string         `json:"column"`
	Table1           string         `json:"table1"`
	Table2           string         `json:"table2"`
	Strength         jsonutil.Float `json:"strength"`
	RelationshipType string         `json:"relationship_type"`
	JaccardSim       jsonutil.Float `json:"jaccard_similarity"`
	ValuesInCommon   int            `json:"values_in_common"`
	UniqueToTable1   int            `json:"unique_to_table1"`
	UniqueToTable2   int            `json:"unique_to_table2"`
	Containment1In2  jsonutil.Float `json:"containment_1_in_2"`
	Containment2In1  jsonutil.Float `json:"containment_2_in_1"`
	IsRenamed        bool           `json:"is_renamed,omitempty"`
}

// ForeignKeyCandidate scores a source column against a target table's best
// key. Valid only if Score > 60 and ReferentialIntegrity > 0.7.
type ForeignKeyCandidate struct {
	SourceTable          string         `json:"source_table"`
	SourceColumn         string         `json:"source_column"`
	TargetTable          string         `json:"target_table"`
	TargetColumn         string         `json:"target_column"`
	Score                jsonutil.Float `json:"score"`
	ReferentialIntegrity jsonutil.Float `json:"referential_integrity"`
	ValueOverlap         jsonutil.Float `json:"value_overlap"`
}

// JoinSuggestion is a join recommendation derived from a relationship.
type JoinSuggestion struct {
	Table1               string         `json:"table1"`
	Table2               string         `json:"table2"`
	JoinColumn           string         `json:"join_column"`
	RecommendedJoinType  string         `json:"recommended_join_type"`
	Confidence           jsonutil.Float `json:"confidence"`
	Reasoning            string         `json:"reasoning"`
	RelationshipStrength jsonutil.Float `json:"relationship_strength"`
	ExpectedResultSize   string         `json:"expected_result_size"`
}

// RelationshipReport is the cross-table analysis output.
type RelationshipReport struct {
	PotentialKeys        map[string][]KeyCandidate `json:"potential_keys"`
	Relationships        []Relationship            `json:"relationships"`
	JoinSuggestions      []JoinSuggestion          `json:"join_suggestions"`
	ForeignKeyCandidates []ForeignKeyCandidate     `json:"foreign_key_candidates"`
}
