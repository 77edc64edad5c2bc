package gesture

import (
	"errors"
	"testing"
)

func TestPresets(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		cooldown  int64
	}{
		{PresetLow, 25, 500},
		{PresetMedium, 15, 300},
		{PresetHigh, 8, 200},
		{PresetVeryHigh, 5, 150},
	}

	for _, tc := range tests {
		cfg, ok := Preset(tc.name)
		if !ok {
			t.Errorf("%s: preset not found", tc.name)
			continue
		}
		if cfg.MagnitudeThreshold != tc.threshold {
			t.Errorf("%s: Expected threshold=%v, got %v", tc.name, tc.threshold, cfg.MagnitudeThreshold)
		}
		if cfg.CooldownMillis != tc.cooldown {
			t.Errorf("%s: Expected cooldown=%d, got %d", tc.name, tc.cooldown, cfg.CooldownMillis)
		}
		if cfg.MinSampleIntervalMillis != 50 {
			t.Errorf("%s: Expected 50ms sample interval, got %d", tc.name, cfg.MinSampleIntervalMillis)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s: Validate() error = %v", tc.name, err)
		}
	}
}

func TestUnknownPresetFallsBackToMedium(t *testing.T) {
	cfg, ok := Preset("ludicrous")
	if ok {
		t.Error("Expected ok=false for unknown preset")
	}
	if cfg != DefaultConfig() {
		t.Errorf("Expected medium preset, got %+v", cfg)
	}
}

func TestPresetNamesSorted(t *testing.T) {
	names := PresetNames()
	want := []string{"high", "low", "medium", "very_high"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, names)
			break
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero cooldown", Config{MagnitudeThreshold: 1}, false},
		{"zero threshold", Config{}, true},
		{"negative cooldown", Config{MagnitudeThreshold: 1, CooldownMillis: -5}, true},
		{"negative interval", Config{MagnitudeThreshold: 1, MinSampleIntervalMillis: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{newDetectorError(ErrPermissionDenied, nil), "permission_denied"},
		{newDetectorError(ErrPermissionRequestFailed, errors.New("boom")), "permission_request_failed"},
		{newDetectorError(ErrSensorUnavailable, nil), "sensor_unavailable"},
		{errors.New("other"), "unknown"},
	}
	for _, tt := range tests {
		if got := Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateAwaitingPermission.String() != "awaiting_permission" {
		t.Errorf("Unexpected %q", StateAwaitingPermission.String())
	}
	if State(42).String() != "state(42)" {
		t.Errorf("Unexpected %q", State(42).String())
	}
}
