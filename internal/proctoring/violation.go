// Package proctoring turns vision observations and camera listings into violations.
//
// The detectors are pure: the same input always yields the same ordered list.
package proctoring

type Type string

const (
	MultipleFaces         Type = "multiple_faces"
	NoFaceDetected        Type = "no_face_detected"
	LowFaceConfidence     Type = "low_face_confidence"
	BlurredFace           Type = "blurred_face"
	PoorLighting          Type = "poor_lighting"
	HeadwearDetected      Type = "headwear_detected"
	ProhibitedObject      Type = "prohibited_object"
	TextMaterialDetected  Type = "text_material_detected"
	VirtualCameraDetected Type = "virtual_camera_detected"
	MultipleCameras       Type = "multiple_cameras"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Action string

const (
	ActionWarning Action = "warning"
	ActionPause   Action = "pause_interview"
	ActionBlock   Action = "block_interview"
)

// Violation is produced per evaluation and never stored by this package.
// Only the extras relevant to Type are set.
type Violation struct {
	Type        Type     `json:"type" yaml:"type"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Description string   `json:"description" yaml:"description"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Action      Action   `json:"action" yaml:"action"`

	FaceCount   int    `json:"faceCount,omitempty" yaml:"faceCount,omitempty"`
	FaceIndex   *int   `json:"faceIndex,omitempty" yaml:"faceIndex,omitempty"`
	Object      string `json:"object,omitempty" yaml:"object,omitempty"`
	TextLength  int    `json:"textLength,omitempty" yaml:"textLength,omitempty"`
	Device      string `json:"device,omitempty" yaml:"device,omitempty"`
	DeviceCount int    `json:"deviceCount,omitempty" yaml:"deviceCount,omitempty"`
}

// HasHigh reports whether any violation is high severity.
func HasHigh(violations []Violation) bool {
	for _, v := range violations {
		if v.Severity == SeverityHigh {
			return true
		}
	}
	return false
}
