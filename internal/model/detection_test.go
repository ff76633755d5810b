package model

import "testing"

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		input    string
		expected Confidence
		score    float64
	}{
		{"High", ConfidenceHigh, 1.0},
		{"high", ConfidenceHigh, 1.0},
		{" Medium ", ConfidenceMedium, 0.6},
		{"LOW", ConfidenceLow, 0.3},
	}

	for _, tt := range tests {
		got, err := ParseConfidence(tt.input)
		if err != nil {
			t.Fatalf("ParseConfidence(%q) returned error: %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("ParseConfidence(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
		if got.Score() != tt.score {
			t.Errorf("%q.Score() = %v, expected %v", got, got.Score(), tt.score)
		}
	}
}

func TestParseConfidence_Invalid(t *testing.T) {
	for _, input := range []string{"", "certain", "0.9"} {
		if _, err := ParseConfidence(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestDetectedItemName(t *testing.T) {
	item := DetectedItem{Type: "  Milk ", Brand: "Unknown"}
	if item.Name() != "Milk" {
		t.Errorf("expected trimmed type as name, got %q", item.Name())
	}
}
