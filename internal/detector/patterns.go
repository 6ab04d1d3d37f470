package detector

import "floodwatch/pkg/models"

// PatternLayer applies stateless per-record protocol heuristics. The three
// checks are independent; one record can match several.
type PatternLayer struct{}

var httpFloodPorts = map[int]bool{80: true, 443: true, 8080: true}

// Evaluate applies the pattern heuristics.
func (l *PatternLayer) Evaluate(rec *models.TrafficRecord, _ *models.SourceObservation, _ *models.BaselineStats) []models.Candidate {
	if rec == nil {
		return nil
	}

	var out []models.Candidate

	// Small SYN packets with no response look like half-open floods.
	if rec.Protocol == "TCP" && rec.Flags == "SYN" && rec.ResponseTimeMS == nil && rec.PacketSize < 100 {
		out = append(out, models.Candidate{
			Type:       models.AlertSynFloodSuspect,
			Severity:   models.SeverityMedium,
			SourceIP:   rec.SourceIP,
			DestIP:     rec.DestIP,
			Confidence: 0.6,
			Metrics: map[string]interface{}{
				"protocol":    "TCP",
				"flags":       rec.Flags,
				"packet_size": rec.PacketSize,
			},
		})
	}

	if httpFloodPorts[rec.DestPort] && (rec.HTTPMethod == "GET" || rec.HTTPMethod == "POST") {
		out = append(out, models.Candidate{
			Type:       models.AlertHTTPFloodSuspect,
			Severity:   models.SeverityMedium,
			SourceIP:   rec.SourceIP,
			Confidence: 0.5,
			Metrics: map[string]interface{}{
				"dest_port":   rec.DestPort,
				"http_method": rec.HTTPMethod,
			},
		})
	}

	if rec.Protocol == "UDP" && rec.PacketSize > 2000 {
		out = append(out, models.Candidate{
			Type:       models.AlertUDPAmpSuspect,
			Severity:   models.SeverityHigh,
			SourceIP:   rec.SourceIP,
			DestIP:     rec.DestIP,
			Confidence: 0.8,
			Metrics: map[string]interface{}{
				"protocol":    "UDP",
				"packet_size": rec.PacketSize,
			},
		})
	}

	return out
}
