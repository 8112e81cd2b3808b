package proctoring

import (
	"fmt"
	"strings"
	"time"
)

const maxCameras = 2

var (
	virtualCameraMarkers = []string{"obs", "virtual", "manycam", "xsplit", "snap camera", "nvidia broadcast", "zoom"}
	builtInCameraMarkers = []string{"integrated", "built-in", "facetime", "internal"}
)

// now is replaced in tests.
var now = time.Now

type Device struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	Label string `json:"label" yaml:"label"`
}

type CameraAssessment struct {
	IsValid           bool        `json:"isValid" yaml:"isValid"`
	Violations        []Violation `json:"violations" yaml:"violations"`
	RecommendedDevice *Device     `json:"recommendedDevice,omitempty" yaml:"recommendedDevice,omitempty"`
	Timestamp         time.Time   `json:"timestamp" yaml:"timestamp"`
}

// ValidateCamera is invalid exactly when a high severity violation is present.
func ValidateCamera(devices []Device) CameraAssessment {
	violations := []Violation{}

	for _, device := range devices {
		if !matchesAny(device.Label, virtualCameraMarkers) {
			continue
		}
		violations = append(violations, Violation{
			Type:        VirtualCameraDetected,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("virtual camera detected: %s", device.Label),
			Confidence:  1,
			Action:      ActionBlock,
			Device:      device.Label,
		})
	}

	if len(devices) > maxCameras {
		violations = append(violations, Violation{
			Type:        MultipleCameras,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("%d cameras connected", len(devices)),
			Confidence:  1,
			Action:      ActionWarning,
			DeviceCount: len(devices),
		})
	}

	return CameraAssessment{
		IsValid:           !HasHigh(violations),
		Violations:        violations,
		RecommendedDevice: recommend(devices),
		Timestamp:         now().UTC(),
	}
}

// IsVirtual reports whether the label looks like a virtual camera.
func IsVirtual(label string) bool {
	return matchesAny(label, virtualCameraMarkers)
}

// recommend prefers a built-in camera, then the first listed one.
func recommend(devices []Device) *Device {
	for i := range devices {
		if matchesAny(devices[i].Label, builtInCameraMarkers) {
			d := devices[i]
			return &d
		}
	}
	if len(devices) > 0 {
		d := devices[0]
		return &d
	}
	return nil
}

func matchesAny(label string, markers []string) bool {
	lower := strings.ToLower(label)
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
