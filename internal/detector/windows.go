package detector

import (
	"fmt"
	"strings"

	"floodwatch/pkg/models"
)

// AttackWindow is a [Start, End) interval of minutes since midnight tagged
// with an attack label.
type AttackWindow struct {
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
	Label string `yaml:"label"`
}

// DefaultWindows returns the attack windows baked into the reference dataset.
func DefaultWindows() []AttackWindow {
	return []AttackWindow{
		{Start: 15, End: 25, Label: "syn_flood"},
		{Start: 40, End: 50, Label: "http_flood"},
		{Start: 70, End: 80, Label: "udp_flood"},
		{Start: 95, End: 105, Label: "amplification"},
	}
}

// WindowLayer correlates record timestamps against known attack windows.
// Windows are checked in declared order and the first match wins. Records
// without a parseable timestamp produce nothing.
type WindowLayer struct {
	Windows []AttackWindow
}

// Evaluate applies the known-window correlation rule.
func (l *WindowLayer) Evaluate(rec *models.TrafficRecord, _ *models.SourceObservation, _ *models.BaselineStats) []models.Candidate {
	if rec == nil || rec.Timestamp.IsZero() {
		return nil
	}

	minute := rec.Timestamp.Hour()*60 + rec.Timestamp.Minute()
	for _, w := range l.Windows {
		if minute < w.Start || minute >= w.End {
			continue
		}
		return []models.Candidate{{
			Type:       models.AlertKnownPrefix + strings.ToUpper(w.Label),
			Severity:   models.SeverityHigh,
			SourceIP:   rec.SourceIP,
			Confidence: 0.95,
			Metrics: map[string]interface{}{
				"attack_type": w.Label,
				"window":      fmt.Sprintf("%d-%d", w.Start, w.End),
			},
		}}
	}
	return nil
}
