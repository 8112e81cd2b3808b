package proctoring

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/interview-proctor/internal/ai"
)

const (
	minFaceConfidence = 0.7
	maxTextLength     = 50
)

var prohibitedObjects = []string{
	"mobile phone", "laptop", "computer", "tablet", "book",
	"paper", "notebook", "document", "screen", "monitor",
}

// DetectFaceViolations evaluates the count rules first, then the per-face rules in face order.
func DetectFaceViolations(faces []ai.FaceObservation) []Violation {
	violations := []Violation{}

	switch {
	case len(faces) > 1:
		violations = append(violations, Violation{
			Type:        MultipleFaces,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("%d faces detected in frame", len(faces)),
			Confidence:  maxConfidence(faces),
			Action:      ActionPause,
			FaceCount:   len(faces),
		})
	case len(faces) == 0:
		violations = append(violations, Violation{
			Type:        NoFaceDetected,
			Severity:    SeverityMedium,
			Description: "no face detected in frame",
			Confidence:  1,
			Action:      ActionWarning,
		})
	}

	for i, face := range faces {
		if face.Confidence < minFaceConfidence {
			violations = append(violations, faceViolation(i, face, LowFaceConfidence, SeverityLow,
				fmt.Sprintf("face detection confidence %.2f is below %.2f", face.Confidence, minFaceConfidence)))
		}
		if face.BlurredLikelihood.AtLeastLikely() {
			violations = append(violations, faceViolation(i, face, BlurredFace, SeverityMedium, "face is blurred"))
		}
		if face.UnderExposedLikelihood.AtLeastLikely() {
			violations = append(violations, faceViolation(i, face, PoorLighting, SeverityLow, "face is under-exposed"))
		}
		if face.HeadwearLikelihood.AtLeastLikely() {
			violations = append(violations, faceViolation(i, face, HeadwearDetected, SeverityMedium, "headwear detected"))
		}
	}

	return violations
}

// DetectObjectViolations reports prohibited objects first, then long text blocks.
func DetectObjectViolations(objects []ai.DetectedObject, texts []ai.TextBlock) []Violation {
	violations := []Violation{}

	for _, object := range objects {
		name := strings.ToLower(object.Name)
		for _, prohibited := range prohibitedObjects {
			if !strings.Contains(name, prohibited) {
				continue
			}
			violations = append(violations, Violation{
				Type:        ProhibitedObject,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("prohibited object detected: %s", object.Name),
				Confidence:  object.Score,
				Action:      ActionPause,
				Object:      object.Name,
			})
			break
		}
	}

	for _, block := range texts {
		length := utf8.RuneCountInString(block.Description)
		if length <= maxTextLength {
			continue
		}
		violations = append(violations, Violation{
			Type:        TextMaterialDetected,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("readable text of %d characters detected", length),
			Confidence:  1,
			Action:      ActionPause,
			TextLength:  length,
		})
	}

	return violations
}

// Evaluate runs both detectors over one frame, face violations first.
func Evaluate(faces []ai.FaceObservation, objects []ai.DetectedObject, texts []ai.TextBlock) []Violation {
	return append(DetectFaceViolations(faces), DetectObjectViolations(objects, texts)...)
}

func faceViolation(index int, face ai.FaceObservation, kind Type, severity Severity, description string) Violation {
	return Violation{
		Type:        kind,
		Severity:    severity,
		Description: description,
		Confidence:  face.Confidence,
		Action:      ActionWarning,
		FaceIndex:   &index,
	}
}

func maxConfidence(faces []ai.FaceObservation) float64 {
	var best float64
	for _, face := range faces {
		best = max(best, face.Confidence)
	}
	return best
}
