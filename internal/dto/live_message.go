package dto

// LiveMessage is pushed to panel viewers over the websocket.
type LiveMessage struct {
	Type      string            `json:"type"` // "frame" or "detection"
	Image     string            `json:"image,omitempty"`
	Light     float64           `json:"light,omitempty"`
	Detection *DetectionMessage `json:"detection,omitempty"`
}

const (
	LiveFrame     = "frame"
	LiveDetection = "detection"
)
