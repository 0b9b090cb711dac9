package models

import "github.com/tablescope-inc/tablescope-engine/pkg/jsonutil"

// Inferred column types, in rough order of specificity. The type-inference
// engine scores a column against many of these hypotheses at once and keeps
// the highest-scoring one.
const (
	TypeInteger                = "integer"
	TypePositiveInteger        = "positive_integer"
	TypeSequentialID           = "sequential_id"
	TypeFloat                  = "float"
	TypePercentage             = "percentage"
	TypeMonetary               = "monetary"
	TypeDate                   = "date"
	TypeDatetime               = "datetime"
	TypeRecentDate             = "recent_date"
	TypeHistoricalDate         = "historical_date"
	TypeBirthDate              = "birth_date"
	TypeCategorical            = "categorical"
	TypeLimitedCategorical     = "limited_categorical"
	TypeDescriptiveName        = "descriptive_name"
	TypeCode                   = "code"
	TypeShortText              = "short_text"
	TypeLongText               = "long_text"
	TypeEmail                  = "email"
	TypeURL                    = "url"
	TypeIdentifier             = "identifier"
	TypeUniqueIdentifier       = "unique_identifier"
	TypeMostlyUniqueIdentifier = "mostly_unique_identifier"
	TypeFormattedID            = "formatted_id"
	TypeMostlyNull             = "mostly_null"
	TypeAllNull                = "all_null"
	TypeUnknown                = "unknown"
)

// Declared (storage-level) column types, derived from how cells arrived from
// the parser rather than from their meaning.
const (
	DeclaredInteger = "integer"
	DeclaredFloat   = "float"
	DeclaredText    = "text"
	DeclaredEmpty   = "empty"
)

// ColumnProfile is the type-inference result for one column.
type ColumnProfile struct {
	ColumnName      string         `json:"column_name"`
	DeclaredType    string         `json:"declared_type"`
	InferredType    string         `json:"inferred_type"`
	Confidence      jsonutil.Float `json:"confidence"`
	Characteristics []string       `json:"characteristics"`
	SampleValues    []Value        `json:"sample_values"`
	NullCount       int            `json:"null_count"`
	UniqueCount     int            `json:"unique_count"`
	TotalCount      int            `json:"total_count"`
}

// DeclaredType derives the storage-level type of a column.
func (c *Column) DeclaredType() string {
	if len(c.NonNull()) == 0 {
		return DeclaredEmpty
	}
	if c.IsInteger() {
		return DeclaredInteger
	}
	if c.IsNumeric() {
		return DeclaredFloat
	}
	return DeclaredText
}
