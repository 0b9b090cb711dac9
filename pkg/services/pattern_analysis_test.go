package services

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

func floatColumn(name string, values ...float64) models.Column {
	cells := make([]models.Value, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return models.Column{Name: name, Values: cells}
}

func TestDetectOutliersIQR(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	table := models.NewTable("t", []models.Column{
		floatColumn("amount", 1, 2, 3, 4, 100),
	})

	outliers := analyzer.detectOutliers(table)
	require.Contains(t, outliers, "amount")
	iqr := outliers["amount"].IQR

	assert.Equal(t, 1, iqr.Count)
	assert.Equal(t, []models.Value{100.0}, iqr.Values)
	require.NotNil(t, iqr.LowerBound)
	require.NotNil(t, iqr.UpperBound)
	// Q1=2, Q3=4, IQR=2 under linear quantile interpolation.
	assert.InDelta(t, -1.0, float64(*iqr.LowerBound), 1e-9)
	assert.InDelta(t, 7.0, float64(*iqr.UpperBound), 1e-9)

	// The modified z-score method flags the same point; plain z-scores cannot
	// exceed 3 on five values.
	assert.Equal(t, 1, outliers["amount"].ModifiedZ.Count)
	assert.Equal(t, 0, outliers["amount"].ZScore.Count)
}

func TestDetectOutliersSkipsShortAndConstantColumns(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	table := models.NewTable("t", []models.Column{
		floatColumn("short", 1, 2, 3),
		floatColumn("constant", 7, 7, 7, 7, 7, 7),
	})

	outliers := analyzer.detectOutliers(table)
	assert.NotContains(t, outliers, "short")
	// Constant column: MAD is zero, so the modified z method reports nothing.
	require.Contains(t, outliers, "constant")
	assert.Equal(t, 0, outliers["constant"].ModifiedZ.Count)
	assert.Equal(t, 0, outliers["constant"].IQR.Count)
}

func TestDetectOutliersCapsExamples(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	values := make([]float64, 0, 120)
	for i := 0; i < 100; i++ {
		values = append(values, 10)
	}
	for i := 0; i < 20; i++ {
		values = append(values, 1000+float64(i))
	}
	table := models.NewTable("t", []models.Column{floatColumn("v", values...)})

	iqr := analyzer.detectOutliers(table)["v"].IQR
	assert.Equal(t, 20, iqr.Count)
	assert.Len(t, iqr.Values, 10)
}

func TestDetectSequences(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	table := models.NewTable("t", []models.Column{
		floatColumn("arith", 3, 5, 7, 9, 11, 13),
		floatColumn("geo", 2, 4, 8, 16, 32, 64),
		floatColumn("noisy", 1, 17, 4, 99, 2, 63),
	})

	sequences := analyzer.detectSequences(table)

	require.Contains(t, sequences, "arith")
	arith := sequences["arith"]
	assert.Equal(t, models.SequenceArithmetic, arith.Type)
	require.NotNil(t, arith.CommonDifference)
	assert.Equal(t, 2.0, float64(*arith.CommonDifference))
	assert.Equal(t, 1.0, float64(arith.Consistency))

	require.Contains(t, sequences, "geo")
	geo := sequences["geo"]
	assert.Equal(t, models.SequenceGeometric, geo.Type)
	require.NotNil(t, geo.CommonRatio)
	assert.Equal(t, 2.0, float64(*geo.CommonRatio))

	assert.NotContains(t, sequences, "noisy")
}

func TestDetectSequencesModalTieResolvesToSmallest(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	// Differences are {1,2,1,2}: a tie between 1 and 2.
	table := models.NewTable("t", []models.Column{
		floatColumn("v", 0, 1, 3, 4, 6),
	})

	seq := analyzer.detectSequences(table)["v"]
	require.NotNil(t, seq.CommonDifference)
	assert.Equal(t, 1.0, float64(*seq.CommonDifference))
	assert.Equal(t, 0.5, float64(seq.Consistency))
}

func TestDetectRepeatingPatterns(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	values := []models.Value{
		"a", "a", "a", "a", "a", "a", "a",
		"b", "b", "b",
		"c",
		nil,
	}
	table := models.NewTable("t", []models.Column{{Name: "cat", Values: values}})

	patterns := analyzer.detectRepeatingPatterns(table)
	require.Contains(t, patterns, "cat")
	p := patterns["cat"]

	assert.Equal(t, 11, p.TotalValues)
	assert.Equal(t, 3, p.UniqueValues)
	assert.InDelta(t, 3.0/11, float64(p.UniquenessRatio), 1e-9)
	require.NotEmpty(t, p.MostCommon)
	assert.Equal(t, models.ValueCount{Value: "a", Count: 7}, p.MostCommon[0])
	// Herfindahl: (49+9+1)/121.
	assert.InDelta(t, 59.0/121, float64(p.RepetitionScore), 1e-9)
	// Runs of identical values give a positive lag-1 autocorrelation.
	require.NotNil(t, p.Autocorrelation)
	assert.Greater(t, float64(*p.Autocorrelation), 0.0)
}

func TestDetectRepeatingPatternsShortColumnHasNoAutocorrelation(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	table := models.NewTable("t", []models.Column{
		{Name: "cat", Values: []models.Value{"x", "y", "x"}},
	})
	p := analyzer.detectRepeatingPatterns(table)["cat"]
	assert.Nil(t, p.Autocorrelation)
}

func TestAnalyzeMissingPatterns(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	// a and b are null on exactly the same rows; c is complete.
	table := models.NewTable("t", []models.Column{
		{Name: "a", Values: []models.Value{"x", nil, "x", nil, "x", "x"}},
		{Name: "b", Values: []models.Value{"y", nil, "y", nil, "y", "y"}},
		{Name: "c", Values: []models.Value{"z", "z", "z", "z", "z", "z"}},
	})

	missing := analyzer.analyzeMissingPatterns(table)

	require.Contains(t, missing.ByColumn, "a")
	require.Contains(t, missing.ByColumn, "b")
	assert.NotContains(t, missing.ByColumn, "c")
	assert.Equal(t, 2, missing.ByColumn["a"].Count)
	assert.InDelta(t, 100.0/3, float64(missing.ByColumn["a"].Percentage), 1e-9)

	require.Len(t, missing.CorrelatedMissing, 1)
	pair := missing.CorrelatedMissing[0]
	assert.Equal(t, "a", pair.Column1)
	assert.Equal(t, "b", pair.Column2)
	assert.InDelta(t, 1.0, float64(pair.Correlation), 1e-9)

	assert.Equal(t, 2, missing.RowsWithMultipleMissing.Count)
}

func TestDetectClustersTwoBlobs(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())

	var xs, ys []float64
	for i := 0; i < 12; i++ {
		xs = append(xs, float64(i)*0.01)
		ys = append(ys, float64(i)*0.01)
	}
	for i := 0; i < 12; i++ {
		xs = append(xs, 100+float64(i)*0.01)
		ys = append(ys, 100+float64(i)*0.01)
	}
	table := models.NewTable("t", []models.Column{
		floatColumn("x", xs...),
		floatColumn("y", ys...),
	})

	clusters := analyzer.detectClusters(table)
	require.Contains(t, clusters, "x_vs_y")
	c := clusters["x_vs_y"]
	assert.Equal(t, 2, c.NClusters)
	assert.Equal(t, 0, c.NNoisePoints)
	require.NotNil(t, c.SilhouetteScore)
	assert.Greater(t, float64(*c.SilhouetteScore), 0.5)
}

func TestDetectClustersOmitsSingleBlob(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	var xs, ys []float64
	for i := 0; i < 30; i++ {
		xs = append(xs, float64(i)*0.01)
		ys = append(ys, float64(i)*0.01)
	}
	table := models.NewTable("t", []models.Column{
		floatColumn("x", xs...),
		floatColumn("y", ys...),
	})

	assert.Empty(t, analyzer.detectClusters(table))
}

func TestAnalyzeCorrelations(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	rng := rand.New(rand.NewSource(1))

	var a, b, c []float64
	for i := 0; i < 50; i++ {
		v := float64(i)
		a = append(a, v)
		b = append(b, 2*v+1) // perfectly correlated with a
		c = append(c, rng.NormFloat64())
	}
	table := models.NewTable("t", []models.Column{
		floatColumn("a", a...),
		floatColumn("b", b...),
		floatColumn("c", c...),
	})

	result := analyzer.analyzeCorrelations(table)

	require.Len(t, result.StrongCorrelations, 1)
	pair := result.StrongCorrelations[0]
	assert.Equal(t, "a", pair.Column1)
	assert.Equal(t, "b", pair.Column2)
	assert.Equal(t, models.CorrelationVeryStrong, pair.Strength)
	assert.InDelta(t, 1.0, float64(pair.Correlation), 1e-9)

	assert.Equal(t, 1.0, float64(result.CorrelationMatrix["a"]["a"]))
	assert.InDelta(t, 1.0, float64(result.CorrelationMatrix["b"]["a"]), 1e-9)
}

func TestAssessDataQuality(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	table := models.NewTable("t", []models.Column{
		{Name: "id", Values: []models.Value{int64(1), int64(2), int64(1), nil}},
		{Name: "flag", Values: []models.Value{"on", "on", "on", "on"}},
		{Name: "mix", Values: []models.Value{"a", int64(9), "c", "b"}},
	})

	quality := analyzer.assessDataQuality(table)

	assert.Equal(t, 12, quality.Completeness.TotalCells)
	assert.Equal(t, 1, quality.Completeness.MissingCells)
	assert.InDelta(t, 100.0*11/12, float64(quality.Completeness.Score), 1e-9)

	assert.Equal(t, []string{"flag"}, quality.Consistency.ZeroVarianceColumns)
	assert.Equal(t, []string{"mix"}, quality.Consistency.MixedTypeColumns)
	assert.Equal(t, 0, quality.Consistency.DuplicateRows.Count)
}

func TestAssessDataQualityDuplicateRows(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	table := models.NewTable("t", []models.Column{
		{Name: "a", Values: []models.Value{"x", "x", "x", "y"}},
		{Name: "b", Values: []models.Value{int64(1), int64(1), int64(2), int64(1)}},
	})

	quality := analyzer.assessDataQuality(table)
	// Row ("x",1) appears twice: one duplicate beyond the first occurrence.
	assert.Equal(t, 1, quality.Consistency.DuplicateRows.Count)
	assert.InDelta(t, 25.0, float64(quality.Consistency.DuplicateRows.Percentage), 1e-9)
}

func TestAnalyzeDistributions(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	rng := rand.New(rand.NewSource(99))
	values := make([]float64, 200)
	for i := range values {
		values[i] = 50 + 5*rng.NormFloat64()
	}
	table := models.NewTable("t", []models.Column{
		floatColumn("metric", values...),
		floatColumn("tiny", 1, 2, 3),
	})

	distributions := analyzer.analyzeDistributions(table)
	assert.NotContains(t, distributions, "tiny")
	require.Contains(t, distributions, "metric")
	d := distributions["metric"]

	assert.InDelta(t, 50, float64(d.Mean), 2)
	assert.InDelta(t, 5, float64(d.Std), 1.5)
	assert.True(t, float64(d.Quartiles.Q1) < float64(d.Quartiles.Q2))
	assert.True(t, float64(d.Quartiles.Q2) < float64(d.Quartiles.Q3))
	require.NotNil(t, d.NormalityTest)
	require.NotNil(t, d.NormalityTest.IsNormal)
	assert.True(t, *d.NormalityTest.IsNormal)
}

func TestAnalyzeDistributionsConstantColumnReportsTestFailure(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	values := make([]float64, 20)
	for i := range values {
		values[i] = 42
	}
	table := models.NewTable("t", []models.Column{floatColumn("const", values...)})

	d := analyzer.analyzeDistributions(table)["const"]
	require.NotNil(t, d.NormalityTest)
	assert.Equal(t, "Test failed", d.NormalityTest.Error)
	assert.Nil(t, d.NormalityTest.PValue)
}

func TestAnalyzeFullReportShape(t *testing.T) {
	analyzer := NewPatternQualityAnalyzer(zap.NewNop())
	table := models.NewTable("orders", []models.Column{
		floatColumn("amount", 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120),
		{Name: "status", Values: []models.Value{
			"open", "open", "closed", "open", "closed", "open",
			"open", "closed", "open", "open", "closed", "open",
		}},
	})

	report := analyzer.Analyze(table)
	require.NotNil(t, report)
	assert.NotNil(t, report.Patterns.Sequences)
	assert.Contains(t, report.Patterns.Sequences, "amount")
	assert.Contains(t, report.Patterns.RepeatingValues, "status")
	assert.Contains(t, report.Distributions, "amount")
	assert.False(t, math.IsNaN(float64(report.DataQuality.Completeness.Score)))
}
