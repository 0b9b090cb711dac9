package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/jsonutil"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
	"github.com/tablescope-inc/tablescope-engine/pkg/stats"
)

// TypeInferenceEngine classifies every column of a table against competing
// semantic-type hypotheses. Four independent scorers (numeric, date, text,
// identifier) each contribute zero or more (hypothesis → score) pairs; the
// winning hypothesis is the highest score, with ties broken in favor of the
// earliest-registered hypothesis. Scorer failures contribute no score and
// never abort a column.
type TypeInferenceEngine struct {
	logger *zap.Logger
}

// NewTypeInferenceEngine creates a TypeInferenceEngine.
func NewTypeInferenceEngine(logger *zap.Logger) *TypeInferenceEngine {
	return &TypeInferenceEngine{logger: logger.Named("type-inference")}
}

// datePatterns are literal date shapes matched against the start of each
// stringified value: YYYY-MM-DD, MM/DD/YYYY, MM-DD-YYYY, YYYY/MM/DD, DD.MM.YYYY.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`^\d{2}/\d{2}/\d{4}`),
	regexp.MustCompile(`^\d{2}-\d{2}-\d{4}`),
	regexp.MustCompile(`^\d{4}/\d{2}/\d{2}`),
	regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}`),
}

// idPatterns are literal ID shapes: prefix+digits (ABC123), long digit runs,
// and alphanumeric runs of at least 8 characters.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{2,3}\d{3,}$`),
	regexp.MustCompile(`^\d{6,}$`),
	regexp.MustCompile(`^[A-Za-z0-9]{8,}$`),
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	urlPattern   = regexp.MustCompile(`^https?://`)
)

// nameIndicators are column-name substrings that suggest human-readable
// descriptive values.
var nameIndicators = []string{
	"name", "first", "last", "full", "fname", "lname", "firstname", "lastname",
	"title", "label", "description", "city", "country", "state", "product",
	"company", "organization", "department",
}

// idIndicators are column-name substrings that suggest identifier columns.
var idIndicators = []string{"id", "key", "pk", "primary", "foreign", "fk", "code", "ref"}

// dateLayouts are tried in order for generic date/time parsing of string cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	"02.01.2006",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Analyze infers a type profile for every column of the table.
func (e *TypeInferenceEngine) Analyze(t *models.Table) map[string]*models.ColumnProfile {
	profiles := make(map[string]*models.ColumnProfile, len(t.Columns))
	for i := range t.Columns {
		col := &t.Columns[i]
		p := e.profileColumn(col)
		profiles[col.Name] = p
		e.logger.Debug("Column classified",
			zap.String("table", t.Name),
			zap.String("column", col.Name),
			zap.String("inferred_type", p.InferredType),
			zap.Float64("confidence", float64(p.Confidence)))
	}
	return profiles
}

func (e *TypeInferenceEngine) profileColumn(col *models.Column) *models.ColumnProfile {
	nonNull := col.NonNull()
	total := len(col.Values)

	profile := &models.ColumnProfile{
		ColumnName:      col.Name,
		DeclaredType:    col.DeclaredType(),
		InferredType:    models.TypeUnknown,
		Characteristics: []string{},
		SampleValues:    sampleValues(nonNull, 5),
		NullCount:       col.NullCount(),
		UniqueCount:     col.UniqueCount(),
		TotalCount:      total,
	}

	// The >90% null short-circuit runs first, so any non-empty column of only
	// nulls is mostly_null; all_null is reserved for zero-row columns.
	if total > 0 && float64(profile.NullCount)/float64(total) > 0.9 {
		profile.InferredType = models.TypeMostlyNull
		profile.Confidence = 0.9
		return profile
	}
	if len(nonNull) == 0 {
		profile.InferredType = models.TypeAllNull
		profile.Confidence = 1.0
		return profile
	}

	board := newScoreBoard()
	e.runScorer(col.Name, "numeric", func() { scoreNumeric(nonNull, board) })
	e.runScorer(col.Name, "date", func() { scoreDates(nonNull, board) })
	e.runScorer(col.Name, "text", func() { scoreText(nonNull, col.Name, board) })
	e.runScorer(col.Name, "identifier", func() { scoreIdentifiers(nonNull, col.Name, board) })

	if best, score, ok := board.best(); ok {
		profile.InferredType = best
		profile.Confidence = jsonutil.Float(score)
	}

	profile.Characteristics = characteristics(col, nonNull, profile.InferredType)
	return profile
}

// runScorer isolates one hypothesis scorer: a failing scorer contributes no
// score instead of aborting the column.
func (e *TypeInferenceEngine) runScorer(column, scorer string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Type scorer failed",
				zap.String("column", column),
				zap.String("scorer", scorer),
				zap.Any("panic", r))
		}
	}()
	fn()
}

// scoreBoard collects hypothesis scores and remembers registration order so
// ties resolve to the first-registered hypothesis, not map iteration order.
type scoreBoard struct {
	scores map[string]float64
	order  []string
}

func newScoreBoard() *scoreBoard {
	return &scoreBoard{scores: make(map[string]float64)}
}

func (b *scoreBoard) set(hypothesis string, score float64) {
	if _, seen := b.scores[hypothesis]; !seen {
		b.order = append(b.order, hypothesis)
	}
	b.scores[hypothesis] = score
}

func (b *scoreBoard) best() (string, float64, bool) {
	bestName, bestScore, found := "", 0.0, false
	for _, h := range b.order {
		if s := b.scores[h]; !found || s > bestScore {
			bestName, bestScore, found = h, s, true
		}
	}
	return bestName, bestScore, found
}

// scoreNumeric scores the numeric family. It deliberately contributes nothing
// when fewer than 80% of values coerce: a column that is only partly numeric
// is not guessed at.
func scoreNumeric(values []models.Value, b *scoreBoard) {
	coerced := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := models.CoerceFloat(v); ok {
			coerced = append(coerced, f)
		}
	}
	if len(coerced) == 0 {
		return
	}
	rate := float64(len(coerced)) / float64(len(values))
	if rate <= 0.8 {
		return
	}

	allIntegral := true
	allNonNeg := true
	anyOver10 := false
	allInPercentRange := true
	for _, f := range coerced {
		if f != float64(int64(f)) {
			allIntegral = false
		}
		if f < 0 {
			allNonNeg = false
		}
		if f > 10 {
			anyOver10 = true
		}
		if f < 0 || f > 100 {
			allInPercentRange = false
		}
	}

	if allIntegral {
		b.set(models.TypeInteger, rate)
		if allNonNeg {
			b.set(models.TypePositiveInteger, rate*0.9)
		}
		if uniqueCount(values) == len(values) && len(values) > 1 {
			b.set(models.TypeSequentialID, rate*0.8)
		}
	} else {
		b.set(models.TypeFloat, rate)
		if allInPercentRange {
			b.set(models.TypePercentage, rate*0.8)
		}
		if allNonNeg && anyOver10 {
			b.set(models.TypeMonetary, rate*0.7)
		}
	}
}

// scoreDates scores literal date shapes and generic date/time parseability.
func scoreDates(values []models.Value, b *scoreBoard) {
	strs := stringified(values)

	for _, pattern := range datePatterns {
		matches := 0
		for _, s := range strs {
			if pattern.MatchString(s) {
				matches++
			}
		}
		if rate := float64(matches) / float64(len(strs)); rate > 0.5 {
			b.set(models.TypeDate, rate)
		}
	}

	parsed := parseTimes(values)
	if len(parsed) == 0 {
		return
	}
	rate := float64(len(parsed)) / float64(len(values))
	if rate <= 0.5 {
		return
	}
	b.set(models.TypeDatetime, rate)

	minT, maxT := parsed[0], parsed[0]
	for _, t := range parsed[1:] {
		if t.Before(minT) {
			minT = t
		}
		if t.After(maxT) {
			maxT = t
		}
	}
	spanDays := maxT.Sub(minT).Hours() / 24
	if spanDays < 365 {
		b.set(models.TypeRecentDate, rate*0.9)
	} else if spanDays > 10000 {
		b.set(models.TypeHistoricalDate, rate*0.8)
	}

	currentYear := time.Now().Year()
	allBirthYears := true
	for _, t := range parsed {
		if y := t.Year(); y < 1900 || y > currentYear-10 {
			allBirthYears = false
			break
		}
	}
	if allBirthYears {
		b.set(models.TypeBirthDate, rate*0.8)
	}
}

// scoreText scores categorical shape, name hints, length classes, emails and URLs.
func scoreText(values []models.Value, columnName string, b *scoreBoard) {
	strs := stringified(values)
	uniqueness := float64(uniqueCount(values)) / float64(len(values))

	if uniqueness < 0.1 {
		b.set(models.TypeCategorical, 0.9)
	} else if uniqueness < 0.5 {
		b.set(models.TypeLimitedCategorical, 0.7)
	}

	lower := strings.ToLower(columnName)
	for _, indicator := range nameIndicators {
		if strings.Contains(lower, indicator) {
			b.set(models.TypeDescriptiveName, 0.8)
			break
		}
	}

	var totalLen int
	for _, s := range strs {
		totalLen += len(s)
	}
	avgLen := float64(totalLen) / float64(len(strs))
	switch {
	case avgLen < 3:
		b.set(models.TypeCode, 0.6)
	case avgLen > 50:
		b.set(models.TypeLongText, 0.8)
	case avgLen >= 3 && avgLen <= 20:
		b.set(models.TypeShortText, 0.7)
	}

	if rate := matchRate(strs, emailPattern); rate > 0.8 {
		b.set(models.TypeEmail, rate)
	}
	if rate := matchRate(strs, urlPattern); rate > 0.8 {
		b.set(models.TypeURL, rate)
	}
}

// scoreIdentifiers scores key-like name hints, uniqueness, and literal ID shapes.
func scoreIdentifiers(values []models.Value, columnName string, b *scoreBoard) {
	lower := strings.ToLower(columnName)
	for _, indicator := range idIndicators {
		if strings.Contains(lower, indicator) {
			b.set(models.TypeIdentifier, 0.8)
			break
		}
	}

	uniqueness := float64(uniqueCount(values)) / float64(len(values))
	if uniqueness > 0.95 {
		b.set(models.TypeUniqueIdentifier, 0.9)
	} else if uniqueness > 0.8 {
		b.set(models.TypeMostlyUniqueIdentifier, 0.7)
	}

	strs := stringified(values)
	for _, pattern := range idPatterns {
		if rate := matchRate(strs, pattern); rate > 0.7 {
			b.set(models.TypeFormattedID, rate)
		}
	}
}

// characteristics derives human-readable facts appropriate to the winning type.
func characteristics(col *models.Column, nonNull []models.Value, inferredType string) []string {
	out := []string{}

	if uniqueCount(nonNull) == len(nonNull) && len(nonNull) > 0 {
		out = append(out, "unique_values")
	}
	if col.NullCount() == 0 {
		out = append(out, "no_missing_values")
	}

	switch inferredType {
	case models.TypeInteger, models.TypeFloat, models.TypePositiveInteger:
		var nums []float64
		for _, v := range nonNull {
			if f, ok := models.CoerceFloat(v); ok {
				nums = append(nums, f)
			}
		}
		if len(nums) > 0 {
			out = append(out, fmt.Sprintf("range: %.2f to %.2f", stats.Min(nums), stats.Max(nums)))
			out = append(out, fmt.Sprintf("mean: %.2f", stats.Mean(nums)))
		}
	case models.TypeDate, models.TypeDatetime:
		parsed := parseTimes(nonNull)
		if len(parsed) > 0 {
			minT, maxT := parsed[0], parsed[0]
			for _, t := range parsed[1:] {
				if t.Before(minT) {
					minT = t
				}
				if t.After(maxT) {
					maxT = t
				}
			}
			out = append(out, fmt.Sprintf("date_range: %s to %s",
				minT.Format("2006-01-02"), maxT.Format("2006-01-02")))
		}
	case models.TypeCategorical, models.TypeLimitedCategorical:
		if value, count, ok := mostCommon(nonNull); ok {
			out = append(out, fmt.Sprintf("most_common: %s (%d occurrences)", models.StringValue(value), count))
		}
	}

	return out
}

// sampleValues returns the first n non-null values.
func sampleValues(nonNull []models.Value, n int) []models.Value {
	if len(nonNull) < n {
		n = len(nonNull)
	}
	out := make([]models.Value, n)
	copy(out, nonNull[:n])
	return out
}

func stringified(values []models.Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = models.StringValue(v)
	}
	return out
}

func matchRate(strs []string, pattern *regexp.Regexp) float64 {
	if len(strs) == 0 {
		return 0
	}
	matches := 0
	for _, s := range strs {
		if pattern.MatchString(s) {
			matches++
		}
	}
	return float64(matches) / float64(len(strs))
}

func uniqueCount(values []models.Value) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[models.ValueKey(v)] = struct{}{}
	}
	return len(seen)
}

// mostCommon returns the most frequent value; ties resolve to the value seen first.
func mostCommon(values []models.Value) (models.Value, int, bool) {
	if len(values) == 0 {
		return nil, 0, false
	}
	counts := make(map[string]int, len(values))
	first := make(map[string]int, len(values))
	rep := make(map[string]models.Value, len(values))
	for i, v := range values {
		k := models.ValueKey(v)
		if _, ok := counts[k]; !ok {
			first[k] = i
			rep[k] = v
		}
		counts[k]++
	}
	bestKey, bestCount := "", -1
	for k, c := range counts {
		if c > bestCount || (c == bestCount && first[k] < first[bestKey]) {
			bestKey, bestCount = k, c
		}
	}
	return rep[bestKey], bestCount, true
}

// parseTimes parses string and time cells with the known layouts; numbers are
// never treated as epoch timestamps here.
func parseTimes(values []models.Value) []time.Time {
	var out []time.Time
	for _, v := range values {
		switch x := v.(type) {
		case time.Time:
			out = append(out, x)
		case string:
			if t, ok := parseTime(strings.TrimSpace(x)); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
