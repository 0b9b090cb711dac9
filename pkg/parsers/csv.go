package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

// candidateDelimiters in preference order for ties.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// CSVParser parses delimiter-separated text files. It sniffs the delimiter,
// falls back from UTF-8 to Windows-1252 for legacy exports, and normalizes
// common null markers.
type CSVParser struct {
	logger *zap.Logger
}

func NewCSVParser(logger *zap.Logger) *CSVParser {
	return &CSVParser{logger: logger.Named("csv-parser")}
}

func (p *CSVParser) Parse(name string, r io.Reader) (*models.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperrors.ErrNoData
	}

	text, encoding, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	delimiter := sniffDelimiter(text)
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, apperrors.ErrNoData
	}

	p.logger.Info("Parsed CSV file",
		zap.String("name", name),
		zap.String("encoding", encoding),
		zap.String("delimiter", string(delimiter)),
		zap.Int("rows", len(records)-1))

	return tableFromRecords(name, records[0], records[1:]), nil
}

// decodeText returns UTF-8 text, decoding from Windows-1252 when the input is
// not valid UTF-8 (that codepage also covers Latin-1's printable range).
func decodeText(raw []byte) (text, encoding string, err error) {
	if utf8.Valid(raw) {
		return string(raw), "utf-8", nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", "", err
	}
	return string(decoded), "windows-1252", nil
}

// sniffDelimiter picks the candidate whose per-line count is consistent and
// highest across the first lines of the file.
func sniffDelimiter(text string) rune {
	lines := strings.Split(text, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}

	best := candidateDelimiters[0]
	bestScore := -1
	for _, d := range candidateDelimiters {
		counts := make(map[int]int)
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			counts[strings.Count(line, string(d))]++
		}
		// Score: the most common per-line count, provided it is nonzero.
		for count, lineCount := range counts {
			if count > 0 && lineCount > bestScore {
				bestScore = lineCount
				best = d
			}
		}
	}
	return best
}
