// Package pipeline sequences the per-turn and per-interview components.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/analysis"
	"github.com/spigell/interview-proctor/internal/assessment"
	"github.com/spigell/interview-proctor/internal/interview"
	"github.com/spigell/interview-proctor/internal/logger"
	"github.com/spigell/interview-proctor/internal/media"
	"github.com/spigell/interview-proctor/internal/proctoring"
	"github.com/spigell/interview-proctor/internal/speech"
	"github.com/spigell/interview-proctor/internal/transcription"
)

// ErrAggregationInFlight is returned when an interview is already being assessed.
var ErrAggregationInFlight = errors.New("assessment for this interview is already in progress")

type Transcriber interface {
	Transcribe(ctx context.Context, clip *media.AudioClip) (*transcription.Transcript, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, transcript string, question interview.Question) (*analysis.AnswerAnalysis, error)
}

type FollowUpGenerator interface {
	Generate(ctx context.Context, answer string, question interview.Question) ([]string, error)
}

type Aggregator interface {
	Aggregate(ctx context.Context, record interview.Record) (*assessment.InterviewAssessment, error)
}

type Inspector interface {
	InspectFaces(ctx context.Context, image []byte) proctoring.FaceReport
	InspectObjects(ctx context.Context, image []byte) proctoring.ObjectReport
}

type Speaker interface {
	Synthesize(ctx context.Context, text string) speech.Audio
}

// Deps aggregates the components a pipeline runs. Inspector and Speaker may be nil.
type Deps struct {
	Transcriber Transcriber
	Analyzer    Analyzer
	FollowUps   FollowUpGenerator
	Aggregator  Aggregator
	Inspector   Inspector
	Speaker     Speaker
	Logger      *zap.Logger
}

type Orchestrator struct {
	deps   Deps
	logger *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func New(deps Deps) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		deps:     deps,
		logger:   logger.ForComponent(log, "pipeline"),
		inFlight: make(map[string]struct{}),
	}
}

// NewID returns a fresh interview or turn identifier.
func NewID() string {
	return uuid.NewString()
}
