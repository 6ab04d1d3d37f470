package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"

	"floodwatch/pkg/models"
)

// LoadStats tracks the number of loaded and skipped rules.
type LoadStats struct {
	TotalFiles     int
	Loaded         int
	SkippedComplex int
	SkippedInvalid int
}

type compiledRule struct {
	id    string
	title string
	level string
	eval  *sigmaevaluator.RuleEvaluator
}

// SigmaLayer evaluates operator-supplied Sigma rules against the normalized
// field map of each traffic record and emits CUSTOM_RULE candidates for
// matches. It satisfies the detection Layer contract and runs after the
// built-in layers.
type SigmaLayer struct {
	rules []compiledRule
	ctx   context.Context
}

// NewSigmaLayer loads Sigma rules from a file or directory and compiles
// evaluators. Rules the evaluator cannot handle (timeframes, aggregations,
// keyword searches) are skipped and counted in stats.
func NewSigmaLayer(path string) (*SigmaLayer, LoadStats, error) {
	var stats LoadStats

	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, stats, fmt.Errorf("resolve rule path: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, stats, fmt.Errorf("stat rule path: %w", err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(resolved, func(filePath string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				return nil
			}
			if isYAMLFile(filePath) {
				files = append(files, filePath)
			}
			return nil
		})
		if err != nil {
			return nil, stats, fmt.Errorf("walk rule directory: %w", err)
		}
	} else {
		if !isYAMLFile(resolved) {
			return nil, stats, fmt.Errorf("rule file must end with .yml or .yaml: %s", resolved)
		}
		files = append(files, resolved)
	}

	stats.TotalFiles = len(files)
	compiled := make([]compiledRule, 0, len(files))
	for _, ruleFile := range files {
		raw, err := os.ReadFile(ruleFile)
		if err != nil {
			stats.SkippedInvalid++
			continue
		}
		rule, err := sigma.ParseRule(raw)
		if err != nil {
			stats.SkippedInvalid++
			continue
		}
		if ok, _ := isSimpleSingleEventRule(rule); !ok {
			stats.SkippedComplex++
			continue
		}

		id := strings.TrimSpace(rule.ID)
		if id == "" {
			id = strings.TrimSpace(rule.Title)
		}
		level := strings.ToLower(strings.TrimSpace(rule.Level))
		if level == "" {
			level = "medium"
		}
		compiled = append(compiled, compiledRule{
			id:    id,
			title: strings.TrimSpace(rule.Title),
			level: level,
			eval:  sigmaevaluator.ForRule(rule),
		})
		stats.Loaded++
	}

	return &SigmaLayer{rules: compiled, ctx: context.Background()}, stats, nil
}

// Evaluate runs every loaded rule against the record's field map.
func (l *SigmaLayer) Evaluate(rec *models.TrafficRecord, _ *models.SourceObservation, _ *models.BaselineStats) []models.Candidate {
	if l == nil || rec == nil || len(l.rules) == 0 {
		return nil
	}

	fields := rec.FieldMap()
	var out []models.Candidate
	for _, rule := range l.rules {
		res, err := rule.eval.Matches(l.ctx, fields)
		if err != nil || !res.Match {
			continue
		}
		out = append(out, models.Candidate{
			Type:       models.AlertCustomRule,
			Severity:   severityForLevel(rule.level),
			SourceIP:   rec.SourceIP,
			DestIP:     rec.DestIP,
			Confidence: confidenceForLevel(rule.level),
			Metrics: map[string]interface{}{
				"rule_id":    rule.id,
				"rule_title": rule.title,
				"level":      rule.level,
			},
		})
	}
	return out
}

func isYAMLFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")
}

func isSimpleSingleEventRule(rule sigma.Rule) (bool, string) {
	if rule.Detection.Timeframe > 0 {
		return false, "timeframe is not supported"
	}

	for _, cond := range rule.Detection.Conditions {
		if cond.Aggregation != nil {
			return false, "aggregation condition is not supported"
		}
		if !isSimpleSearchExpression(cond.Search) {
			return false, "complex condition expression is not supported"
		}
	}

	for _, search := range rule.Detection.Searches {
		if len(search.Keywords) > 0 {
			return false, "keyword search is not supported"
		}
		if len(search.EventMatchers) == 0 {
			return false, "search has no event matchers"
		}
	}

	return true, ""
}

func isSimpleSearchExpression(expr sigma.SearchExpr) bool {
	switch e := expr.(type) {
	case sigma.SearchIdentifier:
		return true
	case sigma.And:
		for _, child := range e {
			if !isSimpleSearchExpression(child) {
				return false
			}
		}
		return true
	case sigma.Or:
		for _, child := range e {
			if !isSimpleSearchExpression(child) {
				return false
			}
		}
		return true
	case sigma.Not:
		return isSimpleSearchExpression(e.Expr)
	default:
		return false
	}
}
