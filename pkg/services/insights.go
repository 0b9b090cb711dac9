package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tablescope-inc/tablescope-engine/pkg/jsonutil"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

// GenerateTableInsights derives narrative facts, recommendations and quality
// warnings for one table. Facts are appended in a fixed order so repeated runs
// produce identical output.
func GenerateTableInsights(t *models.Table) *models.TableInsights {
	rows := t.RowCount()
	cols := len(t.Columns)
	totalCells := t.TotalCells()
	missingPct := 0.0
	if totalCells > 0 {
		missingPct = float64(t.MissingCells()) / float64(totalCells) * 100
	}

	insights := &models.TableInsights{
		Summary: models.InsightSummary{
			Rows:                  rows,
			Columns:               cols,
			MissingDataPercentage: jsonutil.Float(missingPct),
		},
		KeyInsights:       []string{},
		Recommendations:   []string{},
		DataQualityIssues: []string{},
	}

	if rows > 0 {
		insights.KeyInsights = append(insights.KeyInsights,
			fmt.Sprintf("Dataset contains %s rows across %d columns", groupDigits(rows), cols))

		if n := countColumns(t, (*models.Column).IsNumeric); n > 0 {
			insights.KeyInsights = append(insights.KeyInsights,
				fmt.Sprintf("Found %d numeric columns for statistical analysis", n))
		}
		if n := countColumns(t, isTextColumn); n > 0 {
			insights.KeyInsights = append(insights.KeyInsights,
				fmt.Sprintf("Identified %d text columns for pattern analysis", n))
		}
		if n := countColumns(t, isDatetimeColumn); n > 0 {
			insights.KeyInsights = append(insights.KeyInsights,
				fmt.Sprintf("Detected %d date/time columns for temporal analysis", n))
		}
	}

	if missingPct > 10 {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("Consider addressing missing data (%.1f%% of cells are empty)", missingPct))
	}

	duplicates := duplicateRowCount(t)
	if duplicates > 0 {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("Found %d duplicate rows that could be removed", duplicates))
	}

	for i := range t.Columns {
		col := &t.Columns[i]
		if col.UniqueCount() == rows && strings.Contains(strings.ToLower(col.Name), "id") {
			insights.KeyInsights = append(insights.KeyInsights,
				fmt.Sprintf("Column '%s' appears to be a unique identifier", col.Name))
		}
	}

	if missingPct > 20 {
		insights.DataQualityIssues = append(insights.DataQualityIssues,
			fmt.Sprintf("High missing data rate: %.1f%% of cells are empty", missingPct))
	}
	if rows > 0 && float64(duplicates) > float64(rows)*0.1 {
		insights.DataQualityIssues = append(insights.DataQualityIssues,
			fmt.Sprintf("High duplicate rate: %d duplicate rows (%.1f%%)",
				duplicates, float64(duplicates)/float64(rows)*100))
	}

	return insights
}

func countColumns(t *models.Table, pred func(*models.Column) bool) int {
	n := 0
	for i := range t.Columns {
		if pred(&t.Columns[i]) {
			n++
		}
	}
	return n
}

// isDatetimeColumn reports whether all non-null cells are native timestamps.
func isDatetimeColumn(c *models.Column) bool {
	found := false
	for _, v := range c.Values {
		switch v.(type) {
		case nil:
		case time.Time:
			found = true
		default:
			return false
		}
	}
	return found
}

// isTextColumn excludes native timestamp columns from the text count.
func isTextColumn(c *models.Column) bool {
	return c.IsText() && !isDatetimeColumn(c)
}

// groupDigits renders an integer with thousands separators (12345 → "12,345").
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + groupDigits(-n)
	}
	if len(s) <= 3 {
		return s
	}
	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}
