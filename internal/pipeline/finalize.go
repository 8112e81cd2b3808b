package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/assessment"
	"github.com/spigell/interview-proctor/internal/interview"
	"github.com/spigell/interview-proctor/internal/logger"
	"github.com/spigell/interview-proctor/internal/proctoring"
	"github.com/spigell/interview-proctor/internal/speech"
)

// FinalizeAssessment aggregates a finished interview. At most one aggregation
// per interview id runs at a time; a concurrent call gets ErrAggregationInFlight.
// The record must carry its interview id.
func (o *Orchestrator) FinalizeAssessment(ctx context.Context, record interview.Record) (*assessment.InterviewAssessment, error) {
	if o.deps.Aggregator == nil {
		return nil, ai.Unavailable("assessment", "")
	}
	if strings.TrimSpace(record.ID) == "" {
		return nil, ai.InputError("assessment", ai.ReasonEmpty, errors.New("interview id is required"))
	}

	if !o.acquire(record.ID) {
		return nil, fmt.Errorf("interview %s: %w", record.ID, ErrAggregationInFlight)
	}
	defer o.release(record.ID)

	log := o.logger.With(logger.TurnFields(record.ID, "")...)
	log.Info("finalizing assessment", zap.Int("turns", len(record.Turns)))

	result, err := o.deps.Aggregator.Aggregate(ctx, record)
	if err != nil {
		log.Warn("assessment failed", zap.String("error_kind", string(ai.KindOf(err))), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// ValidateCamera checks enumerated camera devices.
func (o *Orchestrator) ValidateCamera(devices []proctoring.Device) proctoring.CameraAssessment {
	result := proctoring.ValidateCamera(devices)
	o.logger.Info("camera validated",
		zap.Int("devices", len(devices)),
		zap.Bool("valid", result.IsValid),
		zap.Int("violations", len(result.Violations)),
	)
	return result
}

// SpeakQuestion reads text aloud; it returns the silent placeholder when no
// speaker is configured.
func (o *Orchestrator) SpeakQuestion(ctx context.Context, text string) speech.Audio {
	if o.deps.Speaker == nil {
		return speech.Placeholder()
	}
	return o.deps.Speaker.Synthesize(ctx, text)
}

func (o *Orchestrator) acquire(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[id]; busy {
		return false
	}
	o.inFlight[id] = struct{}{}
	return true
}

func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	delete(o.inFlight, id)
	o.mu.Unlock()
}
