package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/jsonutil"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
	"github.com/tablescope-inc/tablescope-engine/pkg/stats"
)

// Detection thresholds and resource caps for pattern analysis. The caps bound
// output size independent of input size and must not be raised casually.
const (
	minOutlierValues    = 4
	maxOutlierExamples  = 10
	zScoreCutoff        = 3.0
	modifiedZCutoff     = 3.5
	madScaleConstant    = 0.6745
	minSequenceValues   = 3
	minClusterRows      = 10
	clusterEps          = 0.5
	clusterMinPts       = 5
	minDistributionSize = 10
	normalitySampleCap  = 5000
	missingCorrCutoff   = 0.5
	strongCorrCutoff    = 0.7
	veryStrongCutoff    = 0.9
	mixedTypeSampleSize = 100
)

// PatternQualityAnalyzer detects outliers, sequences, repetition, missing-data
// structure, clusters, correlations and distribution statistics for a single
// table. It runs independently of type inference: column roles are decided by
// the storage type of the cells, not the inferred semantic type.
type PatternQualityAnalyzer struct {
	logger *zap.Logger
}

// NewPatternQualityAnalyzer creates a PatternQualityAnalyzer.
func NewPatternQualityAnalyzer(logger *zap.Logger) *PatternQualityAnalyzer {
	return &PatternQualityAnalyzer{logger: logger.Named("pattern-analysis")}
}

// Analyze computes the full pattern report for one table.
func (a *PatternQualityAnalyzer) Analyze(t *models.Table) *models.PatternReport {
	report := &models.PatternReport{
		Outliers: a.detectOutliers(t),
		Patterns: models.TablePatterns{
			Sequences:       a.detectSequences(t),
			RepeatingValues: a.detectRepeatingPatterns(t),
			MissingData:     a.analyzeMissingPatterns(t),
			Clusters:        a.detectClusters(t),
		},
		Correlations:  a.analyzeCorrelations(t),
		DataQuality:   a.assessDataQuality(t),
		Distributions: a.analyzeDistributions(t),
	}
	a.logger.Debug("Pattern analysis complete",
		zap.String("table", t.Name),
		zap.Int("outlier_columns", len(report.Outliers)),
		zap.Int("cluster_pairs", len(report.Patterns.Clusters)))
	return report
}

func numericColumns(t *models.Table) []*models.Column {
	var out []*models.Column
	for i := range t.Columns {
		if t.Columns[i].IsNumeric() {
			out = append(out, &t.Columns[i])
		}
	}
	return out
}

func textColumns(t *models.Table) []*models.Column {
	var out []*models.Column
	for i := range t.Columns {
		if t.Columns[i].IsText() {
			out = append(out, &t.Columns[i])
		}
	}
	return out
}

// detectOutliers runs three independent detectors per numeric column:
// standard z-score, IQR fences, and the MAD-based modified z-score.
func (a *PatternQualityAnalyzer) detectOutliers(t *models.Table) map[string]models.ColumnOutliers {
	outliers := make(map[string]models.ColumnOutliers)

	for _, col := range numericColumns(t) {
		data := col.Floats()
		if len(data) < minOutlierValues {
			continue
		}

		// Z-score method.
		var zValues []float64
		for i, z := range stats.ZScores(data) {
			if math.Abs(z) > zScoreCutoff {
				zValues = append(zValues, data[i])
			}
		}

		// IQR method.
		q1 := stats.Quantile(data, 0.25)
		q3 := stats.Quantile(data, 0.75)
		iqr := q3 - q1
		lower := q1 - 1.5*iqr
		upper := q3 + 1.5*iqr
		var iqrValues []float64
		for _, v := range data {
			if v < lower || v > upper {
				iqrValues = append(iqrValues, v)
			}
		}

		// Modified z-score method; MAD of zero means no outliers by definition.
		median := stats.Median(data)
		mad := stats.MedianAbsDeviation(data)
		var modZValues []float64
		if mad != 0 {
			for _, v := range data {
				mz := madScaleConstant * (v - median) / mad
				if math.Abs(mz) > modifiedZCutoff {
					modZValues = append(modZValues, v)
				}
			}
		}

		n := len(data)
		outliers[col.Name] = models.ColumnOutliers{
			ZScore:    outlierDetection(zValues, n, nil, nil),
			IQR:       outlierDetection(iqrValues, n, jsonutil.FloatPtr(lower), jsonutil.FloatPtr(upper)),
			ModifiedZ: outlierDetection(modZValues, n, nil, nil),
		}
	}
	return outliers
}

func outlierDetection(values []float64, total int, lower, upper *jsonutil.Float) models.OutlierDetection {
	examples := make([]models.Value, 0, maxOutlierExamples)
	for i, v := range values {
		if i >= maxOutlierExamples {
			break
		}
		examples = append(examples, v)
	}
	return models.OutlierDetection{
		Count:      len(values),
		Percentage: jsonutil.Float(float64(len(values)) / float64(total) * 100),
		Values:     examples,
		LowerBound: lower,
		UpperBound: upper,
	}
}

// detectSequences classifies numeric columns as arithmetic or geometric
// progressions when successive differences (or ratios) take at most three
// distinct values.
func (a *PatternQualityAnalyzer) detectSequences(t *models.Table) map[string]models.SequencePattern {
	sequences := make(map[string]models.SequencePattern)

	for _, col := range numericColumns(t) {
		data := col.Floats()
		if len(data) < minSequenceValues {
			continue
		}

		diffs := successive(data, func(a, b float64) float64 { return b - a })
		if distinctCount(diffs) <= 3 && len(diffs) > 2 {
			modal := modalValue(diffs)
			sequences[col.Name] = models.SequencePattern{
				Type:             models.SequenceArithmetic,
				CommonDifference: jsonutil.FloatPtr(modal),
				Consistency:      jsonutil.Float(fractionEqual(diffs, modal)),
			}
			continue
		}

		allPositive := true
		for _, v := range data {
			if v <= 0 {
				allPositive = false
				break
			}
		}
		if !allPositive {
			continue
		}
		ratios := successive(data, func(a, b float64) float64 { return b / a })
		if distinctCount(ratios) <= 3 && len(ratios) > 2 {
			modal := modalValue(ratios)
			sequences[col.Name] = models.SequencePattern{
				Type:        models.SequenceGeometric,
				CommonRatio: jsonutil.FloatPtr(modal),
				Consistency: jsonutil.Float(fractionEqual(ratios, modal)),
			}
		}
	}
	return sequences
}

func successive(data []float64, f func(a, b float64) float64) []float64 {
	out := make([]float64, 0, len(data)-1)
	for i := 1; i < len(data); i++ {
		out = append(out, f(data[i-1], data[i]))
	}
	return out
}

func distinctCount(data []float64) int {
	seen := make(map[float64]struct{}, len(data))
	for _, v := range data {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// modalValue returns the most frequent value; ties resolve to the smallest.
func modalValue(data []float64) float64 {
	counts := make(map[float64]int, len(data))
	for _, v := range data {
		counts[v]++
	}
	best, bestCount := math.Inf(1), -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

func fractionEqual(data []float64, target float64) float64 {
	if len(data) == 0 {
		return 0
	}
	n := 0
	for _, v := range data {
		if v == target {
			n++
		}
	}
	return float64(n) / float64(len(data))
}

// detectRepeatingPatterns summarizes value repetition in text columns:
// frequency ranking, a Herfindahl concentration index, and (for longer
// columns) a lag-1 autocorrelation over categorical codes.
func (a *PatternQualityAnalyzer) detectRepeatingPatterns(t *models.Table) map[string]models.RepeatingPattern {
	patterns := make(map[string]models.RepeatingPattern)

	for _, col := range textColumns(t) {
		data := col.NonNull()
		if len(data) == 0 {
			continue
		}

		type freq struct {
			value models.Value
			count int
			first int
		}
		byKey := make(map[string]*freq, len(data))
		var order []string
		for i, v := range data {
			k := models.ValueKey(v)
			if f, ok := byKey[k]; ok {
				f.count++
			} else {
				byKey[k] = &freq{value: v, count: 1, first: i}
				order = append(order, k)
			}
		}

		freqs := make([]*freq, 0, len(order))
		for _, k := range order {
			freqs = append(freqs, byKey[k])
		}
		sort.SliceStable(freqs, func(i, j int) bool {
			if freqs[i].count != freqs[j].count {
				return freqs[i].count > freqs[j].count
			}
			return freqs[i].first < freqs[j].first
		})

		topN := 5
		if len(freqs) < topN {
			topN = len(freqs)
		}
		mostCommon := make([]models.ValueCount, 0, topN)
		for _, f := range freqs[:topN] {
			mostCommon = append(mostCommon, models.ValueCount{Value: f.value, Count: f.count})
		}

		total := len(data)
		var herfindahl float64
		for _, f := range freqs {
			share := float64(f.count)
			herfindahl += share * share
		}
		herfindahl /= float64(total) * float64(total)

		pattern := models.RepeatingPattern{
			TotalValues:     total,
			UniqueValues:    len(freqs),
			UniquenessRatio: jsonutil.Float(float64(len(freqs)) / float64(total)),
			MostCommon:      mostCommon,
			RepetitionScore: jsonutil.Float(herfindahl),
		}

		if total > 10 && len(freqs) > 1 {
			codes := categoricalCodes(data)
			ac := stats.Pearson(codes[:len(codes)-1], codes[1:])
			pattern.Autocorrelation = jsonutil.FloatPtr(ac)
		}
		patterns[col.Name] = pattern
	}
	return patterns
}

// categoricalCodes maps each value to the rank of its key in sorted-key order,
// mirroring categorical integer encoding.
func categoricalCodes(data []models.Value) []float64 {
	keys := make([]string, 0, len(data))
	seen := make(map[string]struct{}, len(data))
	for _, v := range data {
		k := models.ValueKey(v)
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	rank := make(map[string]float64, len(keys))
	for i, k := range keys {
		rank[k] = float64(i)
	}
	codes := make([]float64, len(data))
	for i, v := range data {
		codes[i] = rank[models.ValueKey(v)]
	}
	return codes
}

// analyzeMissingPatterns reports per-column missingness, pairs of columns
// whose nullness correlates, and rows with more than one null.
func (a *PatternQualityAnalyzer) analyzeMissingPatterns(t *models.Table) models.MissingDataPatterns {
	rows := t.RowCount()
	result := models.MissingDataPatterns{ByColumn: make(map[string]models.CountPercentage)}
	if rows == 0 {
		return result
	}

	totalMissing := 0
	for i := range t.Columns {
		col := &t.Columns[i]
		if n := col.NullCount(); n > 0 {
			result.ByColumn[col.Name] = models.CountPercentage{
				Count:      n,
				Percentage: jsonutil.Float(float64(n) / float64(rows) * 100),
			}
			totalMissing += n
		}
	}

	if totalMissing > 0 {
		indicators := make([][]float64, len(t.Columns))
		for i := range t.Columns {
			ind := make([]float64, rows)
			for r, v := range t.Columns[i].Values {
				if models.IsNull(v) {
					ind[r] = 1
				}
			}
			indicators[i] = ind
		}
		for i := 0; i < len(t.Columns); i++ {
			for j := i + 1; j < len(t.Columns); j++ {
				corr := stats.Pearson(indicators[i], indicators[j])
				if !math.IsNaN(corr) && math.Abs(corr) > missingCorrCutoff {
					result.CorrelatedMissing = append(result.CorrelatedMissing, models.MissingCorrelation{
						Column1:     t.Columns[i].Name,
						Column2:     t.Columns[j].Name,
						Correlation: jsonutil.Float(corr),
					})
				}
			}
		}
	}

	multi := 0
	for r := 0; r < rows; r++ {
		nulls := 0
		for i := range t.Columns {
			if models.IsNull(t.Columns[i].Values[r]) {
				nulls++
			}
		}
		if nulls > 1 {
			multi++
		}
	}
	result.RowsWithMultipleMissing = models.CountPercentage{
		Count:      multi,
		Percentage: jsonutil.Float(float64(multi) / float64(rows) * 100),
	}
	return result
}

// detectClusters runs DBSCAN over every standardized numeric column pair.
// Pairs where at most one cluster emerges are treated as "no pattern" and
// omitted; a per-pair failure skips only that pair.
func (a *PatternQualityAnalyzer) detectClusters(t *models.Table) map[string]models.ClusterPattern {
	clusters := make(map[string]models.ClusterPattern)
	numeric := numericColumns(t)
	if len(numeric) < 2 {
		return clusters
	}

	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			a.clusterPair(t, numeric[i], numeric[j], clusters)
		}
	}
	return clusters
}

func (a *PatternQualityAnalyzer) clusterPair(t *models.Table, col1, col2 *models.Column, out map[string]models.ClusterPattern) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("Clustering failed for column pair",
				zap.String("table", t.Name),
				zap.String("column1", col1.Name),
				zap.String("column2", col2.Name),
				zap.Any("panic", r))
		}
	}()

	// Pairwise-complete rows only.
	var xs, ys []float64
	for r := 0; r < t.RowCount(); r++ {
		x, okX := models.NumericValue(col1.Values[r])
		y, okY := models.NumericValue(col2.Values[r])
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < minClusterRows {
		return
	}

	sx := stats.Standardize(xs)
	sy := stats.Standardize(ys)
	points := make([]stats.Point, len(sx))
	for i := range sx {
		points[i] = stats.Point{X: sx[i], Y: sy[i]}
	}

	labels := stats.DBSCAN(points, clusterEps, clusterMinPts)
	clusterIDs := make(map[int]struct{})
	noise := 0
	for _, l := range labels {
		if l == stats.NoiseLabel {
			noise++
			continue
		}
		clusterIDs[l] = struct{}{}
	}
	if len(clusterIDs) <= 1 {
		return // a single blob is no pattern worth reporting
	}

	pattern := models.ClusterPattern{
		NClusters:       len(clusterIDs),
		NNoisePoints:    noise,
		NoisePercentage: jsonutil.Float(float64(noise) / float64(len(points)) * 100),
	}
	if score := stats.Silhouette(points, labels); !math.IsNaN(score) {
		pattern.SilhouetteScore = jsonutil.FloatPtr(score)
	}
	out[fmt.Sprintf("%s_vs_%s", col1.Name, col2.Name)] = pattern
}

// analyzeCorrelations computes the pairwise Pearson matrix over numeric
// columns (pairwise-complete observations) and extracts the strong pairs.
func (a *PatternQualityAnalyzer) analyzeCorrelations(t *models.Table) models.Correlations {
	result := models.Correlations{
		StrongCorrelations: []models.CorrelationPair{},
		CorrelationMatrix:  make(map[string]map[string]jsonutil.Float),
	}
	numeric := numericColumns(t)
	if len(numeric) < 2 {
		return result
	}

	corr := func(c1, c2 *models.Column) float64 {
		var xs, ys []float64
		for r := 0; r < t.RowCount(); r++ {
			x, okX := models.NumericValue(c1.Values[r])
			y, okY := models.NumericValue(c2.Values[r])
			if okX && okY {
				xs = append(xs, x)
				ys = append(ys, y)
			}
		}
		if len(xs) == 0 {
			return math.NaN()
		}
		return stats.Pearson(xs, ys)
	}

	for i, c1 := range numeric {
		row := make(map[string]jsonutil.Float, len(numeric))
		for j, c2 := range numeric {
			if i == j {
				row[c2.Name] = 1.0
				continue
			}
			row[c2.Name] = jsonutil.Float(corr(c1, c2))
		}
		result.CorrelationMatrix[c1.Name] = row
	}

	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			v := float64(result.CorrelationMatrix[numeric[i].Name][numeric[j].Name])
			if math.IsNaN(v) || math.Abs(v) <= strongCorrCutoff {
				continue
			}
			strength := models.CorrelationStrong
			if math.Abs(v) > veryStrongCutoff {
				strength = models.CorrelationVeryStrong
			}
			result.StrongCorrelations = append(result.StrongCorrelations, models.CorrelationPair{
				Column1:     numeric[i].Name,
				Column2:     numeric[j].Name,
				Correlation: jsonutil.Float(v),
				Strength:    strength,
			})
		}
	}
	return result
}

// assessDataQuality computes completeness, duplicate rows, zero-variance
// columns and mixed-type text columns.
func (a *PatternQualityAnalyzer) assessDataQuality(t *models.Table) models.DataQuality {
	totalCells := t.TotalCells()
	missingCells := t.MissingCells()
	score := 100.0
	if totalCells > 0 {
		score = float64(totalCells-missingCells) / float64(totalCells) * 100
	}

	quality := models.DataQuality{
		Completeness: models.Completeness{
			Score:        jsonutil.Float(score),
			MissingCells: missingCells,
			TotalCells:   totalCells,
		},
		Consistency: models.Consistency{
			ZeroVarianceColumns: []string{},
			MixedTypeColumns:    []string{},
		},
	}

	rows := t.RowCount()
	if rows > 0 {
		duplicates := duplicateRowCount(t)
		quality.Consistency.DuplicateRows = models.CountPercentage{
			Count:      duplicates,
			Percentage: jsonutil.Float(float64(duplicates) / float64(rows) * 100),
		}
	}

	for i := range t.Columns {
		if t.Columns[i].UniqueCount() <= 1 {
			quality.Consistency.ZeroVarianceColumns = append(quality.Consistency.ZeroVarianceColumns, t.Columns[i].Name)
		}
	}

	for _, col := range textColumns(t) {
		kinds := make(map[string]struct{}, 3)
		checked := 0
		for _, v := range col.Values {
			if models.IsNull(v) {
				continue
			}
			switch v.(type) {
			case int64, float64:
				kinds["numeric"] = struct{}{}
			case string:
				kinds["string"] = struct{}{}
			default:
				kinds["other"] = struct{}{}
			}
			checked++
			if checked >= mixedTypeSampleSize {
				break
			}
		}
		if len(kinds) > 1 {
			quality.Consistency.MixedTypeColumns = append(quality.Consistency.MixedTypeColumns, col.Name)
		}
	}
	return quality
}

// duplicateRowCount counts rows identical to an earlier row, nulls included.
func duplicateRowCount(t *models.Table) int {
	rows := t.RowCount()
	seen := make(map[string]struct{}, rows)
	duplicates := 0
	var sb strings.Builder
	for r := 0; r < rows; r++ {
		sb.Reset()
		for i := range t.Columns {
			sb.WriteString(models.ValueKey(t.Columns[i].Values[r]))
			sb.WriteByte('\x1f')
		}
		key := sb.String()
		if _, ok := seen[key]; ok {
			duplicates++
		} else {
			seen[key] = struct{}{}
		}
	}
	return duplicates
}

// analyzeDistributions computes descriptive statistics and a Shapiro–Wilk
// normality test per numeric column. A failing test is recorded as an
// explicit error marker, never an aborted column.
func (a *PatternQualityAnalyzer) analyzeDistributions(t *models.Table) map[string]models.Distribution {
	distributions := make(map[string]models.Distribution)

	for _, col := range numericColumns(t) {
		data := col.Floats()
		if len(data) < minDistributionSize {
			continue
		}

		dist := models.Distribution{
			Mean:     jsonutil.Float(stats.Mean(data)),
			Median:   jsonutil.Float(stats.Median(data)),
			Std:      jsonutil.Float(stats.StdDev(data)),
			Skewness: jsonutil.Float(stats.Skewness(data)),
			Kurtosis: jsonutil.Float(stats.Kurtosis(data)),
			Min:      jsonutil.Float(stats.Min(data)),
			Max:      jsonutil.Float(stats.Max(data)),
			Quartiles: models.Quartiles{
				Q1: jsonutil.Float(stats.Quantile(data, 0.25)),
				Q2: jsonutil.Float(stats.Quantile(data, 0.5)),
				Q3: jsonutil.Float(stats.Quantile(data, 0.75)),
			},
		}

		sample := data
		if len(sample) > normalitySampleCap {
			sample = sample[:normalitySampleCap]
		}
		if _, p, err := stats.ShapiroWilk(sample); err != nil {
			dist.NormalityTest = &models.NormalityTest{Error: "Test failed"}
		} else {
			isNormal := p > 0.05
			dist.NormalityTest = &models.NormalityTest{
				PValue:   jsonutil.FloatPtr(p),
				IsNormal: &isNormal,
			}
		}
		distributions[col.Name] = dist
	}
	return distributions
}
