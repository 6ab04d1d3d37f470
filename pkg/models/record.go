package models

import "time"

// TrafficRecord is one normalized network traffic observation read from the
// input stream. Numeric payload fields default to zero and optional fields to
// nil when the payload could not supply them.
type TrafficRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	SourceIP       string    `json:"source_ip"`
	DestIP         string    `json:"dest_ip"`
	Protocol       string    `json:"protocol"`
	SourcePort     int       `json:"source_port"`
	DestPort       int       `json:"dest_port"`
	PacketSize     int       `json:"packet_size"`
	Flags          string    `json:"flags,omitempty"`
	HTTPMethod     string    `json:"http_method,omitempty"`
	ResponseTimeMS *float64  `json:"response_time_ms,omitempty"`
	IsAttack       bool      `json:"is_attack"`
}

// HasSource reports whether the record carries a usable source address.
// The upstream dataset encodes missing addresses as "nan".
func (r *TrafficRecord) HasSource() bool {
	return r != nil && r.SourceIP != "" && r.SourceIP != "nan"
}

// FieldMap flattens the record into a field map for rule evaluation.
func (r *TrafficRecord) FieldMap() map[string]interface{} {
	if r == nil {
		return nil
	}
	m := map[string]interface{}{
		"source_ip":   r.SourceIP,
		"dest_ip":     r.DestIP,
		"protocol":    r.Protocol,
		"source_port": r.SourcePort,
		"dest_port":   r.DestPort,
		"packet_size": r.PacketSize,
		"flags":       r.Flags,
		"http_method": r.HTTPMethod,
	}
	if !r.Timestamp.IsZero() {
		m["timestamp"] = r.Timestamp.Format(time.RFC3339)
	}
	if r.ResponseTimeMS != nil {
		m["response_time_ms"] = *r.ResponseTimeMS
	}
	return m
}

// SourceObservation is the per-source state derived while ingesting one record.
type SourceObservation struct {
	IP            string `json:"ip"`
	Count         int64  `json:"count"`
	DistinctPorts int64  `json:"distinct_ports"`
	NewSource     bool   `json:"new_source"`
}

// BaselineStats describes the rolling record-cadence baseline.
type BaselineStats struct {
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Samples int     `json:"samples"`
}
