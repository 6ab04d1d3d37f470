package rules

import "floodwatch/pkg/models"

// Severity and confidence assigned to operator-rule matches are derived from
// the rule's own level; built-in layers are unaffected.
var levelSeverity = map[string]string{
	"critical": models.SeverityHigh,
	"high":     models.SeverityHigh,
	"medium":   models.SeverityMedium,
	"low":      models.SeverityLow,
}

var levelConfidence = map[string]float64{
	"critical": 0.9,
	"high":     0.8,
	"medium":   0.6,
	"low":      0.4,
}

func severityForLevel(level string) string {
	if s, ok := levelSeverity[level]; ok {
		return s
	}
	return models.SeverityMedium
}

func confidenceForLevel(level string) float64 {
	if c, ok := levelConfidence[level]; ok {
		return c
	}
	return 0.5
}
