package proctoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/logger"
)

const component = "proctoring"

// CompliantFace stands in for real detections when no vision backend answered.
func CompliantFace() ai.FaceObservation {
	return ai.FaceObservation{
		Confidence: 1,
		Emotions: ai.Emotions{
			Joy:      ai.LikelihoodUnknown,
			Sorrow:   ai.LikelihoodUnknown,
			Anger:    ai.LikelihoodUnknown,
			Surprise: ai.LikelihoodUnknown,
		},
		HeadwearLikelihood:     ai.LikelihoodVeryUnlikely,
		BlurredLikelihood:      ai.LikelihoodVeryUnlikely,
		UnderExposedLikelihood: ai.LikelihoodVeryUnlikely,
		Fallback:               true,
	}
}

type FaceReport struct {
	Faces      []ai.FaceObservation `json:"faces" yaml:"faces"`
	Violations []Violation          `json:"violations" yaml:"violations"`
	Degraded   bool                 `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

type ObjectReport struct {
	Objects    []ai.DetectedObject `json:"objects" yaml:"objects"`
	Texts      []ai.TextBlock      `json:"texts" yaml:"texts"`
	Violations []Violation         `json:"violations" yaml:"violations"`
	Degraded   bool                `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// Inspector feeds a vision backend into the detectors. It never returns an
// error: an absent or failing backend degrades to a compliant result.
type Inspector struct {
	vision  ai.VisionProvider
	timeout time.Duration
	logger  *zap.Logger
}

func NewInspector(vision ai.VisionProvider, timeout time.Duration, log *zap.Logger) *Inspector {
	return &Inspector{vision: vision, timeout: timeout, logger: logger.ForComponent(log, component)}
}

func (i *Inspector) InspectFaces(ctx context.Context, image []byte) FaceReport {
	var faces []ai.FaceObservation
	err := i.call(ctx, func(ctx context.Context) (err error) {
		faces, err = i.vision.DetectFaces(ctx, image)
		return err
	})
	if err != nil {
		i.degrade("faces", err)
		faces = []ai.FaceObservation{CompliantFace()}
		return FaceReport{Faces: faces, Violations: DetectFaceViolations(faces), Degraded: true}
	}
	return FaceReport{Faces: faces, Violations: DetectFaceViolations(faces)}
}

// InspectObjects treats object and text detection separately, so one failing
// still lets the other contribute.
func (i *Inspector) InspectObjects(ctx context.Context, image []byte) ObjectReport {
	report := ObjectReport{Objects: []ai.DetectedObject{}, Texts: []ai.TextBlock{}}

	var objects []ai.DetectedObject
	if err := i.call(ctx, func(ctx context.Context) (err error) {
		objects, err = i.vision.DetectObjects(ctx, image)
		return err
	}); err != nil {
		i.degrade("objects", err)
		report.Degraded = true
	} else if objects != nil {
		report.Objects = objects
	}

	var texts []ai.TextBlock
	if err := i.call(ctx, func(ctx context.Context) (err error) {
		texts, err = i.vision.DetectText(ctx, image)
		return err
	}); err != nil {
		i.degrade("text", err)
		report.Degraded = true
	} else if texts != nil {
		report.Texts = texts
	}

	report.Violations = DetectObjectViolations(report.Objects, report.Texts)
	return report
}

func (i *Inspector) call(ctx context.Context, fn func(context.Context) error) error {
	if i.vision == nil {
		return ai.Unavailable(component, "")
	}
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (i *Inspector) degrade(capability string, err error) {
	i.logger.Warn("vision unavailable, using fallback result",
		zap.String("capability", capability),
		zap.String("error_kind", string(ai.KindOf(err))),
		zap.Error(err),
	)
}
