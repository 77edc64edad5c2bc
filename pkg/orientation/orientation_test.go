package orientation

import "testing"

func f(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		r    Reading
		want Label
	}{
		{"missing", Reading{}, Unknown},
		{"flat", Reading{Beta: f(5), Gamma: f(-3)}, Flat},
		{"upright", Reading{Beta: f(80), Gamma: f(2)}, Portrait},
		{"upside down", Reading{Beta: f(-100), Gamma: f(10)}, PortraitUpsideDown},
		{"tilted right", Reading{Beta: f(10), Gamma: f(70)}, LandscapeRight},
		{"tilted left", Reading{Beta: f(30), Gamma: f(-60)}, LandscapeLeft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.r); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrackerReportsChangesOnly(t *testing.T) {
	var tr Tracker

	if _, changed := tr.Update(Reading{Beta: f(80), Gamma: f(0)}); !changed {
		t.Error("First reading should report a change")
	}
	if _, changed := tr.Update(Reading{Beta: f(85), Gamma: f(1)}); changed {
		t.Error("Same label should not report a change")
	}
	if label, changed := tr.Update(Reading{Beta: f(0), Gamma: f(0)}); !changed || label != Flat {
		t.Errorf("Expected change to flat, got %v (%v)", label, changed)
	}
}
