package main

import (
	"strings"
	"testing"
)

func TestReadTrace(t *testing.T) {
	in := `t_ms,x,y,z,gravity
# warm-up
0,0.1,0.2,9.8,true
50, 18 ,,0
100,1,2,3
`
	samples, err := readTrace(strings.NewReader(in))
	if err != nil {
		t.Fatalf("readTrace() error = %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("len = %d, want 3", len(samples))
	}

	if !samples[0].Gravity || *samples[0].Z != 9.8 {
		t.Errorf("Unexpected first sample %+v", samples[0])
	}
	if samples[1].Y != nil || *samples[1].X != 18 || samples[1].T != 50 {
		t.Errorf("Empty y should be null, got %+v", samples[1])
	}
	if samples[2].Gravity {
		t.Error("Missing gravity column should be false")
	}
}

func TestReadTraceRejectsBadLines(t *testing.T) {
	tests := []string{
		"0,1,2,3\n10,1,2\n",
		"0,1,2,3\nabc,1,2,3\n",
		"0,1,2,3\n10,1,fast,3\n",
	}
	for _, in := range tests {
		if _, err := readTrace(strings.NewReader(in)); err == nil {
			t.Errorf("readTrace(%q) should fail", in)
		}
	}
}

func TestReadTraceRejectsNonFiniteAndBadGravity(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "nan axis", in: "0,1,2,3\n# note\n10,NaN,2,3\n", want: "line 3"},
		{name: "inf axis", in: "0,1,2,3\n10,1,-Inf,3\n", want: "not finite"},
		{name: "bad gravity", in: "0,1,2,3,true\n10,1,2,3,maybe\n", want: "bad gravity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readTrace(strings.NewReader(tt.in))
			if err == nil {
				t.Fatalf("readTrace(%q) should fail", tt.in)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestReadTraceEmptyGravityIsFalse(t *testing.T) {
	samples, err := readTrace(strings.NewReader("0,1,2,3,\n"))
	if err != nil {
		t.Fatalf("readTrace() error = %v", err)
	}
	if len(samples) != 1 || samples[0].Gravity {
		t.Errorf("Unexpected samples %+v", samples)
	}
}
