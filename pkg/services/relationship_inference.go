package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/jsonutil"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

// Relationship detection thresholds.
const (
	keyScoreCutoff          = 50.0
	keyUniquenessCutoff     = 0.8
	keyCompletenessCutoff   = 0.8
	exactNameStrengthCutoff = 0.5
	renamedStrengthCutoff   = 0.4
	nameSimilarityCutoff    = 0.7
	fkScoreCutoff           = 60.0
	fkIntegrityCutoff       = 0.7
	joinStrengthCutoff      = 0.5
)

// keyIndicators are column-name substrings that raise a column's key score.
// Deliberately a different list from the type-inference one.
var keyIndicators = []string{"id", "key", "pk", "primary", "code", "number", "no"}

// RelationshipInferenceEngine discovers key candidates, cross-table value
// relationships, foreign-key candidates and join recommendations over a
// collection of tables. Tables and columns are processed in input order, and
// rankings sort stably, so output order is deterministic.
type RelationshipInferenceEngine struct {
	logger *zap.Logger
}

// NewRelationshipInferenceEngine creates a RelationshipInferenceEngine.
func NewRelationshipInferenceEngine(logger *zap.Logger) *RelationshipInferenceEngine {
	return &RelationshipInferenceEngine{logger: logger.Named("relationship-inference")}
}

// Analyze runs the full cross-table analysis.
func (e *RelationshipInferenceEngine) Analyze(tables []*models.Table) *models.RelationshipReport {
	relationships := e.detectRelationships(tables)
	report := &models.RelationshipReport{
		PotentialKeys:        e.identifyPotentialKeys(tables),
		Relationships:        relationships,
		JoinSuggestions:      e.suggestJoins(relationships),
		ForeignKeyCandidates: e.identifyForeignKeys(tables),
	}
	e.logger.Debug("Relationship analysis complete",
		zap.Int("tables", len(tables)),
		zap.Int("relationships", len(report.Relationships)),
		zap.Int("foreign_key_candidates", len(report.ForeignKeyCandidates)))
	return report
}

// identifyPotentialKeys scores every column of every table and keeps the
// qualifying candidates, ranked by score descending.
func (e *RelationshipInferenceEngine) identifyPotentialKeys(tables []*models.Table) map[string][]models.KeyCandidate {
	keys := make(map[string][]models.KeyCandidate, len(tables))
	for _, t := range tables {
		candidates := []models.KeyCandidate{}
		for i := range t.Columns {
			if c, ok := keyScore(&t.Columns[i]); ok {
				candidates = append(candidates, c)
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
		keys[t.Name] = candidates
	}
	return keys
}

// keyScore rates one column as a key candidate. Uniqueness is measured over
// non-null values; completeness over all rows.
func keyScore(col *models.Column) (models.KeyCandidate, bool) {
	total := len(col.Values)
	if total == 0 {
		return models.KeyCandidate{}, false
	}
	nonNull := col.NonNull()
	completeness := float64(len(nonNull)) / float64(total)
	uniqueness := 0.0
	if len(nonNull) > 0 {
		uniqueness = float64(col.UniqueCount()) / float64(len(nonNull))
	}

	score := completeness*30 + uniqueness*40
	keyType := models.KeyTypeUnknown

	lower := strings.ToLower(col.Name)
	for _, indicator := range keyIndicators {
		if strings.Contains(lower, indicator) {
			score += 20
			keyType = models.KeyTypeIdentifier
			break
		}
	}

	if uniqueness > 0.95 && completeness > 0.9 {
		score += 10
		if keyType == models.KeyTypeUnknown {
			keyType = models.KeyTypeUniqueIdentifier
		}
	}

	if col.IsInteger() && uniqueness > 0.95 && isAutoIncrement(nonNull) {
		score += 15
		keyType = models.KeyTypeAutoIncrement
	}

	if col.IsText() {
		var totalLen int
		for _, v := range nonNull {
			totalLen += len(models.StringValue(v))
		}
		if len(nonNull) > 0 && float64(totalLen)/float64(len(nonNull)) > 50 {
			score -= 10
		}
	}

	ok := score > keyScoreCutoff && uniqueness > keyUniquenessCutoff && completeness > keyCompletenessCutoff
	return models.KeyCandidate{
		Column:       col.Name,
		KeyType:      keyType,
		Uniqueness:   jsonutil.Float(uniqueness),
		Completeness: jsonutil.Float(completeness),
		Score:        jsonutil.Float(score),
	}, ok
}

// isAutoIncrement reports whether more than 80% of the sorted successive
// differences equal exactly one.
func isAutoIncrement(nonNull []models.Value) bool {
	if len(nonNull) < 2 {
		return false
	}
	sorted := make([]float64, 0, len(nonNull))
	for _, v := range nonNull {
		if f, ok := models.NumericValue(v); ok {
			sorted = append(sorted, f)
		}
	}
	if len(sorted) < 2 {
		return false
	}
	sort.Float64s(sorted)
	ones := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] == 1 {
			ones++
		}
	}
	return float64(ones)/float64(len(sorted)-1) > 0.8
}

// detectRelationships compares columns across every table pair: first columns
// sharing a name verbatim, then pairs of differently-named columns whose names
// are similar enough to suggest a rename.
func (e *RelationshipInferenceEngine) detectRelationships(tables []*models.Table) []models.Relationship {
	relationships := []models.Relationship{}

	for i := 0; i < len(tables); i++ {
		for j := i + 1; j < len(tables); j++ {
			t1, t2 := tables[i], tables[j]

			for c := range t1.Columns {
				col1 := &t1.Columns[c]
				col2 := t2.Column(col1.Name)
				if col2 == nil {
					continue
				}
				rel := columnRelationship(col1, col2, col1.Name, t1.Name, t2.Name)
				if float64(rel.Strength) > exactNameStrengthCutoff {
					relationships = append(relationships, rel)
				}
			}

			for c1 := range t1.Columns {
				col1 := &t1.Columns[c1]
				for c2 := range t2.Columns {
					col2 := &t2.Columns[c2]
					if col1.Name == col2.Name {
						continue
					}
					if NameSimilarity(col1.Name, col2.Name) <= nameSimilarityCutoff {
						continue
					}
					name := fmt.Sprintf("%s↔%s", col1.Name, col2.Name)
					rel := columnRelationship(col1, col2, name, t1.Name, t2.Name)
					if float64(rel.Strength) > renamedStrengthCutoff {
						rel.IsRenamed = true
						relationships = append(relationships, rel)
					}
				}
			}
		}
	}
	return relationships
}

// columnRelationship classifies the value overlap between two columns.
func columnRelationship(col1, col2 *models.Column, columnName, table1, table2 string) models.Relationship {
	set1 := col1.ValueSet()
	set2 := col2.ValueSet()

	if len(set1) == 0 || len(set2) == 0 {
		return models.Relationship{
			Column:           columnName,
			Table1:           table1,
			Table2:           table2,
			Strength:         0,
			RelationshipType: models.RelNoData,
		}
	}

	intersection := 0
	for k := range set1 {
		if _, ok := set2[k]; ok {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection

	jaccard := float64(intersection) / float64(union)
	containment1In2 := float64(intersection) / float64(len(set1))
	containment2In1 := float64(intersection) / float64(len(set2))

	relType := models.RelNoOverlap
	strength := jaccard
	switch {
	case jaccard > 0.8:
		relType = models.RelStrongOverlap
	case containment1In2 > 0.9:
		relType = models.RelTable1Subset
		strength = containment1In2
	case containment2In1 > 0.9:
		relType = models.RelTable2Subset
		strength = containment2In1
	case jaccard > 0.3:
		relType = models.RelPartialOverlap
	case intersection > 0:
		relType = models.RelWeakOverlap
	default:
		strength = 0
	}

	return models.Relationship{
		Column:           columnName,
		Table1:           table1,
		Table2:           table2,
		Strength:         jsonutil.Float(strength),
		RelationshipType: relType,
		JaccardSim:       jsonutil.Float(jaccard),
		ValuesInCommon:   intersection,
		UniqueToTable1:   len(set1) - intersection,
		UniqueToTable2:   len(set2) - intersection,
		Containment1In2:  jsonutil.Float(containment1In2),
		Containment2In1:  jsonutil.Float(containment2In1),
	}
}

// NameSimilarity rates how alike two column names are: 1.0 for a
// case-insensitive match, 0.9 when equal after stripping separators, 0.8 for
// a substring match, otherwise a Levenshtein ratio.
func NameSimilarity(name1, name2 string) float64 {
	n1 := strings.TrimSpace(strings.ToLower(name1))
	n2 := strings.TrimSpace(strings.ToLower(name2))

	if n1 == n2 {
		return 1.0
	}
	if strings.Contains(n2, n1) || strings.Contains(n1, n2) {
		return 0.8
	}

	strip := func(s string) string {
		s = strings.ReplaceAll(s, "_", "")
		return strings.ReplaceAll(s, "-", "")
	}
	if strip(n1) == strip(n2) {
		return 0.9
	}

	maxLen := utf8.RuneCountInString(n1)
	if l := utf8.RuneCountInString(n2); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(n1, n2)
	return 1 - float64(distance)/float64(maxLen)
}

// identifyForeignKeys checks every source column against the best key of every
// other table, ranked by score descending.
func (e *RelationshipInferenceEngine) identifyForeignKeys(tables []*models.Table) []models.ForeignKeyCandidate {
	candidates := []models.ForeignKeyCandidate{}
	potentialKeys := e.identifyPotentialKeys(tables)

	for _, source := range tables {
		for _, target := range tables {
			if source.Name == target.Name {
				continue
			}
			targetKeys := potentialKeys[target.Name]
			if len(targetKeys) == 0 {
				continue
			}
			targetKey := targetKeys[0].Column
			targetCol := target.Column(targetKey)
			if targetCol == nil {
				continue
			}
			targetSet := targetCol.ValueSet()

			for c := range source.Columns {
				col := &source.Columns[c]
				if col.Name == targetKey {
					continue // the shared-name case is covered by relationship detection
				}
				sourceSet := col.ValueSet()
				if len(sourceSet) == 0 {
					continue
				}
				if fk, ok := foreignKeyScore(sourceSet, targetSet, col.Name, targetKey, target.Name); ok {
					fk.SourceTable = source.Name
					fk.SourceColumn = col.Name
					fk.TargetTable = target.Name
					fk.TargetColumn = targetKey
					candidates = append(candidates, fk)
				}
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// foreignKeyScore rates a source column against a target key column.
// Name affinity also considers "<singular table>_<key>" so that a column like
// customer_id scores highly against customers.id.
func foreignKeyScore(sourceSet, targetSet map[string]models.Value, sourceCol, targetKey, targetTable string) (models.ForeignKeyCandidate, bool) {
	if len(sourceSet) == 0 || len(targetSet) == 0 {
		return models.ForeignKeyCandidate{}, false
	}

	intersection := 0
	for k := range sourceSet {
		if _, ok := targetSet[k]; ok {
			intersection++
		}
	}
	union := len(sourceSet) + len(targetSet) - intersection

	integrity := float64(intersection) / float64(len(sourceSet))
	overlap := float64(intersection) / float64(union)

	nameSim := NameSimilarity(sourceCol, targetKey)
	derived := inflection.Singular(targetTable) + "_" + targetKey
	if s := NameSimilarity(sourceCol, derived); s > nameSim {
		nameSim = s
	}

	score := integrity*60 + overlap*20 + nameSim*20
	if integrity < 0.9 {
		score -= (1 - integrity) * 30
	}

	ok := score > fkScoreCutoff && integrity > fkIntegrityCutoff
	return models.ForeignKeyCandidate{
		Score:                jsonutil.Float(score),
		ReferentialIntegrity: jsonutil.Float(integrity),
		ValueOverlap:         jsonutil.Float(overlap),
	}, ok
}

// suggestJoins derives a join recommendation for every sufficiently strong
// relationship through a fixed decision table.
func (e *RelationshipInferenceEngine) suggestJoins(relationships []models.Relationship) []models.JoinSuggestion {
	suggestions := []models.JoinSuggestion{}

	for _, rel := range relationships {
		if float64(rel.Strength) < joinStrengthCutoff {
			continue
		}
		joinType, confidence, reasoning, resultSize := determineJoin(rel)
		suggestions = append(suggestions, models.JoinSuggestion{
			Table1:               rel.Table1,
			Table2:               rel.Table2,
			JoinColumn:           rel.Column,
			RecommendedJoinType:  joinType,
			Confidence:           jsonutil.Float(confidence),
			Reasoning:            reasoning,
			RelationshipStrength: rel.Strength,
			ExpectedResultSize:   resultSize,
		})
	}
	return suggestions
}

func determineJoin(rel models.Relationship) (joinType string, confidence float64, reasoning, resultSize string) {
	switch {
	case rel.RelationshipType == models.RelStrongOverlap && float64(rel.Strength) > 0.9:
		return models.JoinInner, 0.9,
			"High overlap suggests most records will match",
			models.ResultSizeSimilarToSmaller

	case rel.RelationshipType == models.RelTable1Subset:
		return models.JoinLeftTable2, 0.8,
			"Table1 values are subset of table2, left join preserves all table2 records",
			models.ResultSizeSameAsTable2

	case rel.RelationshipType == models.RelTable2Subset:
		return models.JoinLeftTable1, 0.8,
			"Table2 values are subset of table1, left join preserves all table1 records",
			models.ResultSizeSameAsTable1

	case rel.RelationshipType == models.RelPartialOverlap:
		if float64(rel.Containment1In2) > 0.7 {
			return models.JoinLeftTable2, 0.6,
				"Most table1 values exist in table2, left join recommended",
				models.ResultSizeBetween
		}
		if float64(rel.Containment2In1) > 0.7 {
			return models.JoinLeftTable1, 0.6,
				"Most table2 values exist in table1, left join recommended",
				models.ResultSizeBetween
		}
		return models.JoinFullOuter, 0.5,
			"Partial overlap with significant unique values in both tables",
			models.ResultSizeLargerThanBoth

	default:
		return models.JoinCrossWithCaveat, 0.2,
			"Weak relationship detected, consider if join is necessary",
			models.ResultSizeVeryLarge
	}
}
