package models

import "time"

// Severity levels assigned by the detection layers.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// Alert types produced by the built-in detection layers. Known-window
// correlation alerts use the KNOWN_ prefix followed by the window label.
const (
	AlertHighRequestRate  = "HIGH_REQUEST_RATE"
	AlertPortScan         = "PORT_SCAN"
	AlertNewIPAttack      = "NEW_IP_ATTACK"
	AlertAnomalousTraffic = "ANOMALOUS_TRAFFIC"
	AlertSynFloodSuspect  = "SYN_FLOOD_SUSPECT"
	AlertHTTPFloodSuspect = "HTTP_FLOOD_SUSPECT"
	AlertUDPAmpSuspect    = "UDP_AMPLIFICATION_SUSPECT"
	AlertCustomRule       = "CUSTOM_RULE"
	AlertKnownPrefix      = "KNOWN_"
)

// Candidate is a layer-produced alert before emission. The emitter stamps it
// and attaches the record snapshot; severity and confidence are final as
// assigned by the layer.
type Candidate struct {
	Type       string                 `json:"type"`
	Severity   string                 `json:"severity"`
	SourceIP   string                 `json:"source_ip,omitempty"`
	DestIP     string                 `json:"dest_ip,omitempty"`
	Confidence float64                `json:"confidence"`
	Metrics    map[string]interface{} `json:"metrics,omitempty"`
}

// Alert is a published detection result. Never mutated after publish.
type Alert struct {
	Timestamp  time.Time              `json:"timestamp"`
	Type       string                 `json:"alert_type"`
	Severity   string                 `json:"severity"`
	SourceIP   string                 `json:"source_ip,omitempty"`
	DestIP     string                 `json:"dest_ip,omitempty"`
	Protocol   string                 `json:"protocol,omitempty"`
	Confidence float64                `json:"confidence"`
	Metrics    map[string]interface{} `json:"metrics,omitempty"`
	Record     RecordSnapshot         `json:"record_data"`
}

// RecordSnapshot is the bounded subset of the originating record kept on an alert.
type RecordSnapshot struct {
	Timestamp  time.Time `json:"timestamp,omitempty"`
	SourcePort int       `json:"source_port"`
	DestPort   int       `json:"dest_port"`
	PacketSize int       `json:"packet_size"`
}
