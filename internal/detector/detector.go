package detector

import (
	"floodwatch/pkg/models"
)

// Layer is one rule evaluator. Layers are pure functions of the record and
// the derived state handed to them; they run unconditionally per record and
// never suppress each other.
type Layer interface {
	Evaluate(rec *models.TrafficRecord, obs *models.SourceObservation, stats *models.BaselineStats) []models.Candidate
}

// Thresholds are the fixed detection thresholds. Values were tuned against
// the TTL-approximated rate windows of the state manager.
type Thresholds struct {
	// HighRequestRate is the per-minute request count above which a source is
	// flagged.
	HighRequestRate int64 `yaml:"high_request_rate"`

	// PortScan is the distinct destination port count above which a source is
	// flagged.
	PortScan int64 `yaml:"port_scan"`

	// NewSourceRate is the request count above which a never-seen source is
	// flagged.
	NewSourceRate int64 `yaml:"new_source_rate"`

	// Sigma is the standard-deviation multiplier for the adaptive baseline.
	Sigma float64 `yaml:"sigma"`
}

func (t *Thresholds) applyDefaults() {
	if t.HighRequestRate <= 0 {
		t.HighRequestRate = 5
	}
	if t.PortScan <= 0 {
		t.PortScan = 3
	}
	if t.NewSourceRate <= 0 {
		t.NewSourceRate = 2
	}
	if t.Sigma <= 0 {
		t.Sigma = 2.0
	}
}

// Config assembles the built-in layer configuration.
type Config struct {
	Thresholds Thresholds
	Windows    []AttackWindow
}

// Engine runs the detection layers in a fixed order and concatenates their
// candidates.
type Engine struct {
	layers []Layer
}

// NewEngine builds the standard four-layer engine: fixed thresholds, adaptive
// baseline, pattern heuristics and known-window correlation.
func NewEngine(cfg Config) *Engine {
	cfg.Thresholds.applyDefaults()
	windows := cfg.Windows
	if len(windows) == 0 {
		windows = DefaultWindows()
	}
	return &Engine{
		layers: []Layer{
			&ThresholdLayer{Thresholds: cfg.Thresholds},
			&AnomalyLayer{Sigma: cfg.Thresholds.Sigma},
			&PatternLayer{},
			&WindowLayer{Windows: windows},
		},
	}
}

// AddLayer appends an extra layer after the built-in ones.
func (e *Engine) AddLayer(layer Layer) {
	if layer != nil {
		e.layers = append(e.layers, layer)
	}
}

// Evaluate runs every layer against one record and returns all candidates in
// layer order.
func (e *Engine) Evaluate(rec *models.TrafficRecord, obs *models.SourceObservation, stats *models.BaselineStats) []models.Candidate {
	var out []models.Candidate
	for _, layer := range e.layers {
		out = append(out, layer.Evaluate(rec, obs, stats)...)
	}
	return out
}
