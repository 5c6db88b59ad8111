package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when a loaded configuration is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	switch c.OutputFormat {
	case "auto", "text", "markdown", "json":
	default:
		errs = append(errs, fmt.Errorf("output must be one of auto, text, markdown, json (got %q)", c.OutputFormat))
	}
	if c.StatePath == "" {
		errs = append(errs, errors.New("state_path is required"))
	}
	if c.Batching.MaxBins < 1 || c.Batching.MaxBins > DefaultMaxBins {
		errs = append(errs, fmt.Errorf("batching.max_bins must be between 1 and %d (got %d)", DefaultMaxBins, c.Batching.MaxBins))
	}
	if c.Grouper.RowTolerance <= 0 {
		errs = append(errs, fmt.Errorf("grouper.row_tolerance must be positive (got %g)", c.Grouper.RowTolerance))
	}
	if c.Grouper.ExtensionWindow <= 0 {
		errs = append(errs, fmt.Errorf("grouper.extension_window must be positive (got %g)", c.Grouper.ExtensionWindow))
	}
	if c.Grouper.MaxGradientSpan < c.Grouper.RowTolerance {
		errs = append(errs, fmt.Errorf("grouper.max_gradient_span must be at least row_tolerance (got %g)", c.Grouper.MaxGradientSpan))
	}
	if c.Fulfillment.StripwellWells < 1 || c.Fulfillment.StripwellWells > DefaultStripwellWells {
		errs = append(errs, fmt.Errorf("fulfillment.stripwell_wells must be between 1 and %d (got %d)", DefaultStripwellWells, c.Fulfillment.StripwellWells))
	}
	if c.Narrator.Thermocycler == "" {
		errs = append(errs, errors.New("narrator.thermocycler is required"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
