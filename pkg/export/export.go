// Package export renders analysis results as downloadable documents.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

// Exporter renders an AnalysisResult in one of the supported formats.
// Map sections are iterated in sorted order, so output is deterministic.
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates an Exporter.
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export"), now: time.Now}
}

// Export renders the result in the given format (json, csv, txt) and returns
// the document plus its content type.
func (e *Exporter) Export(result *models.AnalysisResult, format, sessionName string) ([]byte, string, error) {
	switch strings.ToLower(format) {
	case "json":
		data, err := e.exportJSON(result)
		return data, "application/json", err
	case "csv":
		data, err := e.exportCSV(result)
		return data, "text/csv", err
	case "txt":
		return e.exportText(result, sessionName), "text/plain; charset=utf-8", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}
}

func (e *Exporter) exportJSON(result *models.AnalysisResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}

// csvHeader is the fixed flattened schema; rows fill the fields relevant to
// their analysis type and leave the rest empty.
var csvHeader = []string{
	"file_name", "analysis_type", "column_name",
	"inferred_type", "confidence", "unique_count", "null_count", "sample_values",
	"method", "outlier_count", "outlier_percentage",
	"table1", "table2", "relationship_type", "strength", "values_in_common",
}

func (e *Exporter) exportCSV(result *models.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	row := func(fields map[string]string) error {
		record := make([]string, len(csvHeader))
		for i, h := range csvHeader {
			record[i] = fields[h]
		}
		return w.Write(record)
	}

	for _, table := range sortedKeys(result.DataTypes) {
		profiles := result.DataTypes[table]
		for _, column := range sortedKeys(profiles) {
			p := profiles[column]
			samples := make([]string, 0, 3)
			for i, v := range p.SampleValues {
				if i == 3 {
					break
				}
				samples = append(samples, models.StringValue(v))
			}
			if err := row(map[string]string{
				"file_name":     table,
				"analysis_type": "data_type",
				"column_name":   column,
				"inferred_type": p.InferredType,
				"confidence":    formatFloat(float64(p.Confidence)),
				"unique_count":  strconv.Itoa(p.UniqueCount),
				"null_count":    strconv.Itoa(p.NullCount),
				"sample_values": strings.Join(samples, ", "),
			}); err != nil {
				return nil, err
			}
		}
	}

	for _, table := range sortedKeys(result.Patterns) {
		outliers := result.Patterns[table].Outliers
		for _, column := range sortedKeys(outliers) {
			co := outliers[column]
			for _, m := range []struct {
				name      string
				detection models.OutlierDetection
			}{
				{"z_score", co.ZScore},
				{"iqr", co.IQR},
				{"modified_z", co.ModifiedZ},
			} {
				if err := row(map[string]string{
					"file_name":          table,
					"analysis_type":      "outlier",
					"column_name":        column,
					"method":             m.name,
					"outlier_count":      strconv.Itoa(m.detection.Count),
					"outlier_percentage": formatFloat(float64(m.detection.Percentage)),
				}); err != nil {
					return nil, err
				}
			}
		}
	}

	if result.Relationships != nil {
		for _, rel := range result.Relationships.Relationships {
			if err := row(map[string]string{
				"analysis_type":     "relationship",
				"column_name":       rel.Column,
				"table1":            rel.Table1,
				"table2":            rel.Table2,
				"relationship_type": rel.RelationshipType,
				"strength":          formatFloat(float64(rel.Strength)),
				"values_in_common":  strconv.Itoa(rel.ValuesInCommon),
			}); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) exportText(result *models.AnalysisResult, sessionName string) []byte {
	var sb strings.Builder

	sb.WriteString("DATA ANALYSIS REPORT\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&sb, "Session: %s\n", sessionName)
	fmt.Fprintf(&sb, "Generated: %s\n\n", e.now().Format("2006-01-02 15:04:05"))

	if s := result.Summary; s != nil {
		sb.WriteString("SUMMARY\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		fmt.Fprintf(&sb, "Total Tables: %d\n", s.TotalTables)
		fmt.Fprintf(&sb, "Total Rows: %d\n", s.TotalRows)
		fmt.Fprintf(&sb, "Total Columns: %d\n", s.TotalColumns)
		fmt.Fprintf(&sb, "Data Quality Score: %.1f%%\n\n", float64(s.DataQualityScore))
	}

	if len(result.DataTypes) > 0 {
		sb.WriteString("DATA TYPE ANALYSIS\n")
		sb.WriteString(strings.Repeat("-", 30) + "\n")
		for _, table := range sortedKeys(result.DataTypes) {
			profiles := result.DataTypes[table]
			fmt.Fprintf(&sb, "\nTable: %s\n", table)
			fmt.Fprintf(&sb, "%-20s %-20s %-12s %-8s %-8s\n", "Column", "Type", "Confidence", "Unique", "Missing")
			sb.WriteString(strings.Repeat("-", 70) + "\n")
			for _, column := range sortedKeys(profiles) {
				p := profiles[column]
				fmt.Fprintf(&sb, "%-20s %-20s %-12.2f %-8d %-8d\n",
					column, p.InferredType, float64(p.Confidence), p.UniqueCount, p.NullCount)
			}
		}
		sb.WriteString("\n")
	}

	if result.Relationships != nil && len(result.Relationships.Relationships) > 0 {
		sb.WriteString("TABLE RELATIONSHIPS\n")
		sb.WriteString(strings.Repeat("-", 30) + "\n")
		for _, rel := range result.Relationships.Relationships {
			fmt.Fprintf(&sb, "Tables: %s ↔ %s\n", rel.Table1, rel.Table2)
			fmt.Fprintf(&sb, "Column: %s\n", rel.Column)
			fmt.Fprintf(&sb, "Type: %s\n", rel.RelationshipType)
			fmt.Fprintf(&sb, "Strength: %.2f\n", float64(rel.Strength))
			sb.WriteString(strings.Repeat("-", 40) + "\n")
		}
	}

	return []byte(sb.String())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
