package commands

import (
	"slices"
	"testing"
)

func TestParseVector(t *testing.T) {
	tests := []struct {
		in      string
		want    []float64
		wantErr bool
	}{
		{in: "0,1", want: []float64{0, 1}},
		{in: " 0.5 , -2 ,3e-1", want: []float64{0.5, -2, 0.3}},
		{in: "", want: []float64{}},
		{in: "1,x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVector(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Fatalf("ParseVector(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatVector(t *testing.T) {
	if got := formatVector([]float64{1, -0.25}); got != "[1.0000, -0.2500]" {
		t.Fatalf("formatVector = %q", got)
	}
}

func TestLoadConfig_DefaultsWithoutPath(t *testing.T) {
	ConfigPath = ""
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.Network.Layers) != 3 || cfg.Training.Dataset != "xor" {
		t.Fatalf("unexpected default config %+v", cfg)
	}
}
