package export

import (
	"encoding/csv"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
	"github.com/tablescope-inc/tablescope-engine/pkg/jsonutil"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
	"github.com/tablescope-inc/tablescope-engine/pkg/services"
)

func fixtureResult(t *testing.T) *models.AnalysisResult {
	t.Helper()
	orchestrator := services.NewAnalysisOrchestrator(zap.NewNop(), 2)
	customers := models.NewTable("customers", []models.Column{
		{Name: "customer_id", Values: []models.Value{int64(1), int64(2), int64(3), int64(4), int64(5)}},
		{Name: "name", Values: []models.Value{"Ada", "Grace", "Edsger", "Alan", "Barbara"}},
	})
	orders := models.NewTable("orders", []models.Column{
		{Name: "order_id", Values: []models.Value{int64(10), int64(11), int64(12), int64(13), int64(14)}},
		{Name: "customer_id", Values: []models.Value{int64(1), int64(2), int64(1), int64(3), int64(2)}},
	})
	return orchestrator.Analyze([]*models.Table{customers, orders})
}

func newTestExporter() *Exporter {
	e := NewExporter(zap.NewNop())
	e.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestExportJSONRoundTrips(t *testing.T) {
	exporter := newTestExporter()
	result := fixtureResult(t)

	data, contentType, err := exporter.Export(result, "json", "s1")
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, section := range []string{"data_types", "patterns", "relationships", "insights", "summary"} {
		assert.Contains(t, decoded, section)
	}
}

func TestExportJSONRendersNaNAsNull(t *testing.T) {
	exporter := newTestExporter()
	result := &models.AnalysisResult{
		Summary: &models.AnalysisSummary{DataQualityScore: jsonutil.Float(100)},
		Patterns: map[string]*models.PatternReport{
			"t": {Correlations: models.Correlations{
				CorrelationMatrix: map[string]map[string]jsonutil.Float{
					"a": {"b": jsonutil.Float(math.NaN())},
				},
			}},
		},
	}

	data, _, err := exporter.Export(result, "json", "s1")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"b": null`)
}

func TestExportCSVFlattened(t *testing.T) {
	exporter := newTestExporter()
	data, contentType, err := exporter.Export(fixtureResult(t), "csv", "s1")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(records), 1)
	assert.Equal(t, csvHeader, records[0])

	kinds := map[string]bool{}
	for _, record := range records[1:] {
		kinds[record[1]] = true
	}
	assert.True(t, kinds["data_type"])
	assert.True(t, kinds["relationship"])
}

func TestExportTextReport(t *testing.T) {
	exporter := newTestExporter()
	data, contentType, err := exporter.Export(fixtureResult(t), "txt", "quarterly")
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", contentType)

	text := string(data)
	assert.Contains(t, text, "DATA ANALYSIS REPORT")
	assert.Contains(t, text, "Session: quarterly")
	assert.Contains(t, text, "Generated: 2025-06-01 12:00:00")
	assert.Contains(t, text, "Total Tables: 2")
	assert.Contains(t, text, "Table: customers")
	assert.Contains(t, text, "customers ↔ orders")
}

func TestExportUnsupportedFormat(t *testing.T) {
	exporter := newTestExporter()
	_, _, err := exporter.Export(fixtureResult(t), "pdf", "s1")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
}

func TestExportDeterministic(t *testing.T) {
	exporter := newTestExporter()
	result := fixtureResult(t)

	first, _, err := exporter.Export(result, "csv", "s1")
	require.NoError(t, err)
	second, _, err := exporter.Export(result, "csv", "s1")
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
