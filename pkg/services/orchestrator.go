package services

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/jsonutil"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

// AnalysisOrchestrator composes the three engines over a collection of named
// tables. Per-table work fans out across a bounded worker pool; the engines
// are side-effect-free, so the only synchronization is around result assembly.
type AnalysisOrchestrator struct {
	logger        *zap.Logger
	types         *TypeInferenceEngine
	patterns      *PatternQualityAnalyzer
	relationships *RelationshipInferenceEngine
	workers       int
}

// NewAnalysisOrchestrator creates an orchestrator. workers bounds per-table
// parallelism; values below 1 fall back to the CPU count.
func NewAnalysisOrchestrator(logger *zap.Logger, workers int) *AnalysisOrchestrator {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &AnalysisOrchestrator{
		logger:        logger.Named("orchestrator"),
		types:         NewTypeInferenceEngine(logger),
		patterns:      NewPatternQualityAnalyzer(logger),
		relationships: NewRelationshipInferenceEngine(logger),
		workers:       workers,
	}
}

// Analyze runs the full pipeline over the given tables. Empty tables are
// skipped entirely; cross-table analysis runs only when at least two non-empty
// tables exist, otherwise the relationships section is present but empty.
func (o *AnalysisOrchestrator) Analyze(tables []*models.Table) *models.AnalysisResult {
	result := &models.AnalysisResult{
		DataTypes: make(map[string]map[string]*models.ColumnProfile),
		Patterns:  make(map[string]*models.PatternReport),
		Insights:  make(map[string]*models.TableInsights),
	}

	analyzable := make([]*models.Table, 0, len(tables))
	for _, t := range tables {
		if t.IsEmpty() {
			o.logger.Warn("Skipping empty table", zap.String("table", t.Name))
			continue
		}
		analyzable = append(analyzable, t)
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, o.workers)
	)
	for _, t := range analyzable {
		wg.Add(1)
		go func(t *models.Table) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			profiles := o.types.Analyze(t)
			patterns := o.patterns.Analyze(t)
			insights := GenerateTableInsights(t)

			mu.Lock()
			result.DataTypes[t.Name] = profiles
			result.Patterns[t.Name] = patterns
			result.Insights[t.Name] = insights
			mu.Unlock()
		}(t)
	}
	wg.Wait()

	if len(analyzable) > 1 {
		result.Relationships = o.relationships.Analyze(analyzable)
	} else {
		result.Relationships = emptyRelationshipReport()
	}

	result.Summary = buildSummary(analyzable)

	o.logger.Info("Analysis complete",
		zap.Int("tables", len(analyzable)),
		zap.Int("total_rows", result.Summary.TotalRows),
		zap.Float64("quality_score", float64(result.Summary.DataQualityScore)))
	return result
}

func emptyRelationshipReport() *models.RelationshipReport {
	return &models.RelationshipReport{
		PotentialKeys:        map[string][]models.KeyCandidate{},
		Relationships:        []models.Relationship{},
		JoinSuggestions:      []models.JoinSuggestion{},
		ForeignKeyCandidates: []models.ForeignKeyCandidate{},
	}
}

// buildSummary aggregates counts and the 0–100 quality score, computed as
// 100 × (1 − mean per-table missing-cell ratio) and clamped at zero.
func buildSummary(tables []*models.Table) *models.AnalysisSummary {
	summary := &models.AnalysisSummary{TotalTables: len(tables)}
	if len(tables) == 0 {
		return summary
	}

	var missingRatioSum float64
	for _, t := range tables {
		summary.TotalRows += t.RowCount()
		summary.TotalColumns += len(t.Columns)
		if cells := t.TotalCells(); cells > 0 {
			missingRatioSum += float64(t.MissingCells()) / float64(cells)
		}
	}

	score := 100 - missingRatioSum/float64(len(tables))*100
	if score < 0 {
		score = 0
	}
	summary.DataQualityScore = jsonutil.Float(score)
	return summary
}
