package parsers

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

// Parser turns one uploaded file into a normalized table. The caller supplies
// the table name (usually the upload filename without extension).
type Parser interface {
	Parse(name string, r io.Reader) (*models.Table, error)
}

// Factory selects a parser by format identifier.
type Factory struct {
	parsers map[string]Parser
}

// NewFactory wires the supported formats.
func NewFactory(logger *zap.Logger) *Factory {
	csv := NewCSVParser(logger)
	excel := NewExcelParser(logger)
	return &Factory{parsers: map[string]Parser{
		"csv":  csv,
		"sql":  NewSQLParser(logger),
		"xls":  excel,
		"xlsx": excel,
		"xml":  NewXMLParser(logger),
	}}
}

// Get returns the parser for a format identifier (case-insensitive).
func (f *Factory) Get(format string) (Parser, error) {
	p, ok := f.parsers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}
	return p, nil
}

// Supported lists the registered format identifiers.
func (f *Factory) Supported() []string {
	return []string{"csv", "sql", "xls", "xlsx", "xml"}
}

// nullMarkers are raw cell values normalized to null.
var nullMarkers = map[string]struct{}{
	"":     {},
	"null": {},
	"NULL": {},
	"nan":  {},
	"NaN":  {},
	"N/A":  {},
	"n/a":  {},
}

// typedCell converts a raw string cell to its natural scalar: null marker,
// int64, float64, or trimmed string.
func typedCell(raw string) models.Value {
	s := strings.TrimSpace(raw)
	if _, isNull := nullMarkers[s]; isNull {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// tableFromRecords assembles a table from a header row plus data rows,
// dropping all-null rows and all-null columns. Blank header cells get
// positional names.
func tableFromRecords(name string, header []string, rows [][]string) *models.Table {
	columns := make([]models.Column, len(header))
	for i, h := range header {
		colName := strings.TrimSpace(h)
		if colName == "" {
			colName = fmt.Sprintf("Column_%d", i)
		}
		columns[i] = models.Column{Name: colName}
	}

	for _, row := range rows {
		cells := make([]models.Value, len(columns))
		empty := true
		for i := range columns {
			if i < len(row) {
				cells[i] = typedCell(row[i])
			}
			if cells[i] != nil {
				empty = false
			}
		}
		if empty {
			continue
		}
		for i := range columns {
			columns[i].Values = append(columns[i].Values, cells[i])
		}
	}

	kept := columns[:0]
	for _, c := range columns {
		// All-null columns are dropped; zero-row tables keep their header.
		if len(c.Values) == 0 || c.NullCount() < len(c.Values) {
			kept = append(kept, c)
		}
	}
	return models.NewTable(name, kept)
}
