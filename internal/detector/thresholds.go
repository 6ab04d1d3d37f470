package detector

import "floodwatch/pkg/models"

// ThresholdLayer flags sources that cross fixed per-source limits. It needs a
// source observation and is a no-op without one.
type ThresholdLayer struct {
	Thresholds Thresholds
}

// Evaluate applies the fixed-threshold rules.
func (l *ThresholdLayer) Evaluate(rec *models.TrafficRecord, obs *models.SourceObservation, _ *models.BaselineStats) []models.Candidate {
	if obs == nil {
		return nil
	}

	var out []models.Candidate
	if obs.Count > l.Thresholds.HighRequestRate {
		out = append(out, models.Candidate{
			Type:       models.AlertHighRequestRate,
			Severity:   models.SeverityHigh,
			SourceIP:   obs.IP,
			Confidence: 0.9,
			Metrics: map[string]interface{}{
				"metric":    obs.Count,
				"threshold": l.Thresholds.HighRequestRate,
			},
		})
	}

	if obs.DistinctPorts > l.Thresholds.PortScan {
		out = append(out, models.Candidate{
			Type:       models.AlertPortScan,
			Severity:   models.SeverityMedium,
			SourceIP:   obs.IP,
			Confidence: 0.8,
			Metrics: map[string]interface{}{
				"metric":    obs.DistinctPorts,
				"threshold": l.Thresholds.PortScan,
			},
		})
	}

	if obs.NewSource && obs.Count > l.Thresholds.NewSourceRate {
		out = append(out, models.Candidate{
			Type:       models.AlertNewIPAttack,
			Severity:   models.SeverityHigh,
			SourceIP:   obs.IP,
			Confidence: 0.85,
			Metrics: map[string]interface{}{
				"metric":    obs.Count,
				"threshold": l.Thresholds.NewSourceRate,
			},
		})
	}

	return out
}
