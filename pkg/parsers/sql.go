package parsers

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

var (
	createTablePattern = regexp.MustCompile(`(?is)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?[\x60"]?(\w+)[\x60"]?\s*\((.*?)\)\s*;`)
	insertPattern      = regexp.MustCompile(`(?is)INSERT\s+INTO\s+[\x60"]?(\w+)[\x60"]?[^;]*?VALUES\s*(.+?);`)
	columnDefPattern   = regexp.MustCompile(`^[\x60"]?(\w+)[\x60"]?\s+\w+`)
	valueTuplePattern  = regexp.MustCompile(`\(([^)]+)\)`)
)

// constraintKeywords start lines of a CREATE TABLE body that are not column
// definitions.
var constraintKeywords = []string{"primary", "foreign", "unique", "constraint", "key", "index", "check"}

// SQLParser extracts one table from a SQL dump: column names from the first
// CREATE TABLE that also has INSERT data, cell values from its INSERT tuples.
type SQLParser struct {
	logger *zap.Logger
}

func NewSQLParser(logger *zap.Logger) *SQLParser {
	return &SQLParser{logger: logger.Named("sql-parser")}
}

func (p *SQLParser) Parse(name string, r io.Reader) (*models.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read sql: %w", err)
	}
	content := string(raw)

	type tableDef struct {
		name    string
		columns []string
		rows    [][]string
	}
	var order []string
	defs := make(map[string]*tableDef)

	for _, m := range createTablePattern.FindAllStringSubmatch(content, -1) {
		def := &tableDef{name: m[1], columns: parseColumnDefs(m[2])}
		if len(def.columns) == 0 {
			continue
		}
		if _, seen := defs[def.name]; !seen {
			defs[def.name] = def
			order = append(order, def.name)
		}
	}

	for _, m := range insertPattern.FindAllStringSubmatch(content, -1) {
		def, ok := defs[m[1]]
		if !ok {
			continue
		}
		for _, tuple := range valueTuplePattern.FindAllStringSubmatch(m[2], -1) {
			def.rows = append(def.rows, splitValueTuple(tuple[1]))
		}
	}

	// First table with sample data wins; fall back to the first schema-only
	// table so headers still get profiled.
	var chosen *tableDef
	for _, tn := range order {
		if len(defs[tn].rows) > 0 {
			chosen = defs[tn]
			break
		}
	}
	if chosen == nil && len(order) > 0 {
		chosen = defs[order[0]]
	}
	if chosen == nil {
		return nil, apperrors.ErrNoData
	}

	p.logger.Info("Parsed SQL dump",
		zap.String("name", name),
		zap.String("table", chosen.name),
		zap.Int("columns", len(chosen.columns)),
		zap.Int("rows", len(chosen.rows)))

	return tableFromRecords(name, chosen.columns, chosen.rows), nil
}

// parseColumnDefs pulls column names out of a CREATE TABLE body, skipping
// constraint lines.
func parseColumnDefs(body string) []string {
	var columns []string
	for _, line := range strings.Split(body, ",") {
		line = strings.TrimSpace(line)
		if line == "" || isConstraintLine(line) {
			continue
		}
		if m := columnDefPattern.FindStringSubmatch(line); m != nil {
			columns = append(columns, m[1])
		}
	}
	return columns
}

func isConstraintLine(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range constraintKeywords {
		if strings.HasPrefix(lower, kw+" ") || strings.HasPrefix(lower, kw+"(") {
			return true
		}
	}
	return false
}

// splitValueTuple splits "1, 'Ada', NULL" into raw cell strings with quotes
// stripped.
func splitValueTuple(tuple string) []string {
	parts := strings.Split(tuple, ",")
	out := make([]string, len(parts))
	for i, part := range parts {
		v := strings.TrimSpace(part)
		v = strings.Trim(v, `'"`)
		out[i] = v
	}
	return out
}
