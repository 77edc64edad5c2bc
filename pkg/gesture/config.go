package gesture

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Preset names.
const (
	PresetLow      = "low"
	PresetMedium   = "medium"
	PresetHigh     = "high"
	PresetVeryHigh = "very_high"
)

// DefaultMinSampleInterval is the sample throttle used by every preset.
const DefaultMinSampleInterval = 50 * time.Millisecond

// Config holds the detector tuning. A detector copies it at construction and
// never changes it afterwards.
type Config struct {
	// MagnitudeThreshold is the motion scalar a sample must strictly exceed.
	MagnitudeThreshold float64 `toml:"magnitude_threshold" json:"magnitude_threshold" yaml:"magnitude_threshold"`

	// CooldownMillis is the minimum spacing between two shake events.
	CooldownMillis int64 `toml:"cooldown_ms" json:"cooldown_ms" yaml:"cooldown_ms"`

	// MinSampleIntervalMillis drops samples arriving faster than this.
	MinSampleIntervalMillis int64 `toml:"min_sample_interval_ms" json:"min_sample_interval_ms" yaml:"min_sample_interval_ms"`

	// UseDeltaFromPrevious selects the motion scalar: the norm of the change
	// since the previous sample when true, otherwise the vector norm with
	// standard gravity subtracted for gravity-inclusive samples.
	UseDeltaFromPrevious bool `toml:"use_delta" json:"use_delta" yaml:"use_delta"`
}

// DefaultConfig returns the "medium" preset.
func DefaultConfig() Config {
	return Config{
		MagnitudeThreshold:      15,
		CooldownMillis:          300,
		MinSampleIntervalMillis: DefaultMinSampleInterval.Milliseconds(),
		UseDeltaFromPrevious:    false,
	}
}

// LowSensitivityConfig needs a hard shake.
func LowSensitivityConfig() Config {
	cfg := DefaultConfig()
	cfg.MagnitudeThreshold = 25
	cfg.CooldownMillis = 500
	return cfg
}

// HighSensitivityConfig reacts to moderate shakes.
func HighSensitivityConfig() Config {
	cfg := DefaultConfig()
	cfg.MagnitudeThreshold = 8
	cfg.CooldownMillis = 200
	return cfg
}

// VeryHighSensitivityConfig reacts to light flicks.
func VeryHighSensitivityConfig() Config {
	cfg := DefaultConfig()
	cfg.MagnitudeThreshold = 5
	cfg.CooldownMillis = 150
	return cfg
}

var presets = map[string]func() Config{
	PresetLow:      LowSensitivityConfig,
	PresetMedium:   DefaultConfig,
	PresetHigh:     HighSensitivityConfig,
	PresetVeryHigh: VeryHighSensitivityConfig,
}

// Preset returns the named configuration. Unknown names yield the medium
// preset and ok=false.
func Preset(name string) (cfg Config, ok bool) {
	fn, ok := presets[name]
	if !ok {
		return DefaultConfig(), false
	}
	return fn(), true
}

// PresetNames lists the known preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the invariants a detector relies on.
func (c Config) Validate() error {
	if math.IsNaN(c.MagnitudeThreshold) || c.MagnitudeThreshold <= 0 {
		return fmt.Errorf("%w: magnitude threshold must be positive, got %v", ErrInvalidConfig, c.MagnitudeThreshold)
	}
	if c.CooldownMillis < 0 {
		return fmt.Errorf("%w: cooldown must be >= 0, got %d", ErrInvalidConfig, c.CooldownMillis)
	}
	if c.MinSampleIntervalMillis < 0 {
		return fmt.Errorf("%w: min sample interval must be >= 0, got %d", ErrInvalidConfig, c.MinSampleIntervalMillis)
	}
	return nil
}
