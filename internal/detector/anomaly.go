package detector

import "floodwatch/pkg/models"

// AnomalyLayer compares a source's request rate against the rolling baseline.
// It needs both an observation and warmed-up baseline statistics with a
// non-zero spread, and is a no-op otherwise.
type AnomalyLayer struct {
	Sigma float64
}

// Evaluate applies the adaptive-baseline rule.
func (l *AnomalyLayer) Evaluate(_ *models.TrafficRecord, obs *models.SourceObservation, stats *models.BaselineStats) []models.Candidate {
	if obs == nil || stats == nil || stats.StdDev <= 0 {
		return nil
	}

	threshold := stats.Mean + l.Sigma*stats.StdDev
	if float64(obs.Count) <= threshold {
		return nil
	}

	return []models.Candidate{{
		Type:       models.AlertAnomalousTraffic,
		Severity:   models.SeverityMedium,
		SourceIP:   obs.IP,
		Confidence: 0.7,
		Metrics: map[string]interface{}{
			"metric":       obs.Count,
			"baseline_avg": stats.Mean,
			"baseline_std": stats.StdDev,
			"threshold":    threshold,
		},
	}}
}
