package usecase

import "testing"

func TestNeedsClarification(t *testing.T) {
	tests := []struct {
		name      string
		distances []float64
		threshold float64
		want      bool
	}{
		{"empty distances always clarify", nil, 0.9, true},
		{"empty distances clarify regardless of threshold", nil, 100, true},
		{"best match under threshold answers", []float64{0.5, 1.2, 0.95}, 0.9, false},
		{"all matches over threshold clarify", []float64{1.5, 1.8}, 0.9, true},
		{"boundary is inclusive", []float64{0.9}, 0.9, false},
		{"just over boundary clarifies", []float64{0.9001}, 0.9, true},
		{"min not first element", []float64{1.2, 0.3, 1.5}, 0.9, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsClarification(tt.distances, tt.threshold); got != tt.want {
				t.Errorf("NeedsClarification(%v, %v) = %v, want %v", tt.distances, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestMinDistance(t *testing.T) {
	if got := MinDistance(nil, 1.0); got != 1.0 {
		t.Errorf("expected fallback 1.0, got %f", got)
	}
	if got := MinDistance([]float64{1.5, 1.8}, 1.0); got != 1.5 {
		t.Errorf("expected 1.5, got %f", got)
	}
	if got := MinDistance([]float64{2.0, 0.1, 0.9}, 1.0); got != 0.1 {
		t.Errorf("expected 0.1, got %f", got)
	}
}
