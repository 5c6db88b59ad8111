// Package config provides configuration management for the pcrbatch CLI.
//
// Values are layered with koanf: built-in defaults, then pcrbatch.yaml, then
// PCRBATCH_ environment variables, then explicitly set command-line flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string            `koanf:"state_path" yaml:"state_path"`
	OutputFormat string            `koanf:"output" yaml:"output"`
	Verbose      bool              `koanf:"verbose" yaml:"verbose"`
	MetricsOut   string            `koanf:"metrics_out" yaml:"metrics_out"`
	Batching     BatchingConfig    `koanf:"batching" yaml:"batching"`
	Grouper      GrouperConfig     `koanf:"grouper" yaml:"grouper"`
	Fulfillment  FulfillmentConfig `koanf:"fulfillment" yaml:"fulfillment"`
	Narrator     NarratorConfig    `koanf:"narrator" yaml:"narrator"`
}

// BatchingConfig configures the run assembler.
type BatchingConfig struct {
	MaxBins int `koanf:"max_bins" yaml:"max_bins"`
}

// GrouperConfig configures the default greedy grouper.
type GrouperConfig struct {
	RowTolerance    float64 `koanf:"row_tolerance" yaml:"row_tolerance"`
	ExtensionWindow float64 `koanf:"extension_window" yaml:"extension_window"`
	MaxGradientSpan float64 `koanf:"max_gradient_span" yaml:"max_gradient_span"`
}

// FulfillmentConfig configures stripwell production.
type FulfillmentConfig struct {
	StripwellWells int `koanf:"stripwell_wells" yaml:"stripwell_wells"`
}

// NarratorConfig configures how plans are presented to the operator.
type NarratorConfig struct {
	Thermocycler string `koanf:"thermocycler" yaml:"thermocycler"`
	Interactive  bool   `koanf:"interactive" yaml:"interactive"`
}

// Default configuration values.
const (
	DefaultStateFile       = ".pcrbatch/state.db"
	DefaultOutput          = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultMaxBins         = 8
	DefaultRowTolerance    = 1.0
	DefaultExtensionWindow = 60.0
	DefaultMaxGradientSpan = 12.0
	DefaultStripwellWells  = 12
	DefaultThermocycler    = "TC1"
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		Batching:     BatchingConfig{MaxBins: DefaultMaxBins},
		Grouper: GrouperConfig{
			RowTolerance:    DefaultRowTolerance,
			ExtensionWindow: DefaultExtensionWindow,
			MaxGradientSpan: DefaultMaxGradientSpan,
		},
		Fulfillment: FulfillmentConfig{StripwellWells: DefaultStripwellWells},
		Narrator:    NarratorConfig{Thermocycler: DefaultThermocycler},
	}
}
