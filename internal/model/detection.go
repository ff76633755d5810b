package model

import (
	"fmt"
	"strings"
)

// Confidence is the certainty label the vision service attaches to an item.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// ParseConfidence maps a label to its canonical form, ignoring case and
// surrounding whitespace.
func ParseConfidence(label string) (Confidence, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "high":
		return ConfidenceHigh, nil
	case "medium":
		return ConfidenceMedium, nil
	case "low":
		return ConfidenceLow, nil
	default:
		return "", fmt.Errorf("unknown confidence %q", label)
	}
}

// Score converts the label to the [0,1] value stored on inventory items.
func (c Confidence) Score() float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.6
	case ConfidenceLow:
		return 0.3
	default:
		return 0
	}
}

// Quantity is the container count and size reported for an item.
type Quantity struct {
	Count int    `json:"count"`
	Size  string `json:"size"`
}

// DetectedItem is one entry of a validated detection batch.
type DetectedItem struct {
	Type       string     `json:"type"`
	Brand      string     `json:"brand"`
	Quantity   Quantity   `json:"quantity"`
	Confidence Confidence `json:"confidence"`
}

// Name is the inventory key for the item.
func (d DetectedItem) Name() string {
	return strings.TrimSpace(d.Type)
}
