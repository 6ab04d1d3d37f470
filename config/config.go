package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Floodwatch FloodwatchConfig `yaml:"floodwatch"`
}

// FloodwatchConfig is the project configuration.
type FloodwatchConfig struct {
	Input     InputConfig     `yaml:"input"`
	State     StateConfig     `yaml:"state"`
	Baseline  BaselineConfig  `yaml:"baseline"`
	Detection DetectionConfig `yaml:"detection"`
	Rules     RulesConfig     `yaml:"rules"`
	Output    OutputConfig    `yaml:"output"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Producer  ProducerConfig  `yaml:"producer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InputConfig controls the input stream reader.
type InputConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig controls Redis stream input and the shared state store.
type RedisConfig struct {
	Addr          string        `yaml:"addr"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	Stream        string        `yaml:"stream"`
	BatchSize     int64         `yaml:"batch_size"`
	BlockTimeout  time.Duration `yaml:"block_timeout"`
	FromBeginning bool          `yaml:"from_beginning"`
}

// StateConfig controls per-source state expiry.
type StateConfig struct {
	CountTTL     time.Duration `yaml:"count_ttl"`
	PortsTTL     time.Duration `yaml:"ports_ttl"`
	FirstSeenTTL time.Duration `yaml:"first_seen_ttl"`
	RecencyTTL   time.Duration `yaml:"recency_ttl"`
}

// BaselineConfig controls the rolling baseline window.
type BaselineConfig struct {
	Window     time.Duration `yaml:"window"`
	MinSamples int           `yaml:"min_samples"`
	MaxSamples int           `yaml:"max_samples"`
	PublishTTL time.Duration `yaml:"publish_ttl"`
}

// DetectionConfig controls the built-in detection layers.
type DetectionConfig struct {
	HighRequestRate int64          `yaml:"high_request_rate"`
	PortScan        int64          `yaml:"port_scan"`
	NewSourceRate   int64          `yaml:"new_source_rate"`
	Sigma           float64        `yaml:"sigma"`
	Windows         []WindowConfig `yaml:"windows"`
}

// WindowConfig is one known attack window in minutes since midnight.
type WindowConfig struct {
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
	Label string `yaml:"label"`
}

// RulesConfig controls the optional Sigma rule layer.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OutputConfig controls the alert sink.
type OutputConfig struct {
	Mode    string              `yaml:"mode"` // redis|file|webhook
	Stream  string              `yaml:"stream"`
	File    FileOutputConfig    `yaml:"file"`
	Webhook WebhookOutputConfig `yaml:"webhook"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// WebhookOutputConfig configures HTTP alert delivery.
type WebhookOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ProducerConfig controls the dataset replay producer.
type ProducerConfig struct {
	CSVPath    string        `yaml:"csv_path"`
	MaxRecords int           `yaml:"max_records"`
	Delay      time.Duration `yaml:"delay"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
