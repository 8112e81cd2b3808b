package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/analysis"
	"github.com/spigell/interview-proctor/internal/interview"
	"github.com/spigell/interview-proctor/internal/logger"
	"github.com/spigell/interview-proctor/internal/media"
	"github.com/spigell/interview-proctor/internal/proctoring"
	"github.com/spigell/interview-proctor/internal/transcription"
)

// Turn is the input of one question/answer exchange. The orchestrator takes
// ownership of Audio and Snapshot and releases both before returning.
type Turn struct {
	InterviewID string
	TurnID      string
	Question    interview.Question
	Audio       *media.AudioClip
	Snapshot    *media.Snapshot
}

const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusDegraded = "degraded"
	StatusSkipped  = "skipped"
)

// Stage describes how one component fared during a turn.
type Stage struct {
	Name    string        `json:"name" yaml:"name"`
	Status  string        `json:"status" yaml:"status"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type TurnResult struct {
	InterviewID      string                    `json:"interviewId" yaml:"interviewId"`
	TurnID           string                    `json:"turnId" yaml:"turnId"`
	Question         interview.Question        `json:"question" yaml:"question"`
	Transcript       *transcription.Transcript `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	FaceViolations   []proctoring.Violation    `json:"faceViolations" yaml:"faceViolations"`
	ObjectViolations []proctoring.Violation    `json:"objectViolations" yaml:"objectViolations"`
	VisionDegraded   bool                      `json:"visionDegraded,omitempty" yaml:"visionDegraded,omitempty"`
	Analysis         *analysis.AnswerAnalysis  `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	// Metrics are computed locally and present whenever a transcript is.
	Metrics   *analysis.Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	FollowUps []string          `json:"followUps,omitempty" yaml:"followUps,omitempty"`
	Stages    []Stage           `json:"stages" yaml:"stages"`

	AnalysisErr error `json:"-" yaml:"-"`
	FollowUpErr error `json:"-" yaml:"-"`
}

// Degraded reports whether any optional stage failed or fell back.
func (r *TurnResult) Degraded() bool {
	return r.AnalysisErr != nil || r.FollowUpErr != nil || r.VisionDegraded ||
		(r.Transcript != nil && r.Transcript.Fallback)
}

// Record converts the result into an interview turn for assessment.
func (r *TurnResult) Record() interview.Turn {
	turn := interview.Turn{Question: r.Question}
	if r.Transcript != nil {
		turn.Response = r.Transcript.Text
	}
	if r.Analysis != nil {
		scores := r.Analysis.Scores
		turn.Scores = &scores
	}
	return turn
}

// ProcessTurn transcribes and inspects the turn concurrently, then analyzes the
// transcript and generates follow-ups concurrently. A transcription failure
// is returned as the error together with the vision results gathered so far;
// analysis and follow-up failures are reported on the result only.
func (o *Orchestrator) ProcessTurn(ctx context.Context, turn Turn) (*TurnResult, error) {
	var scope media.Scope
	scope.Track(turn.Audio, turn.Snapshot)

	if turn.InterviewID == "" {
		turn.InterviewID = NewID()
	}
	if turn.TurnID == "" {
		turn.TurnID = NewID()
	}
	log := o.logger.With(logger.TurnFields(turn.InterviewID, turn.TurnID)...)

	defer func() {
		if err := scope.Release(); err != nil {
			log.Warn("failed to release turn artifacts", zap.Error(err))
		}
	}()

	result := &TurnResult{
		InterviewID:      turn.InterviewID,
		TurnID:           turn.TurnID,
		Question:         turn.Question,
		FaceViolations:   []proctoring.Violation{},
		ObjectViolations: []proctoring.Violation{},
	}
	stages := newStageLog()

	transcript, err := o.transcribeAndInspect(ctx, turn, result, stages, log)
	if err != nil {
		result.Stages = stages.list()
		log.Warn("turn failed", zap.String("error_kind", string(ai.KindOf(err))), zap.Error(err))
		return result, fmt.Errorf("process turn %s: %w", turn.TurnID, err)
	}
	result.Transcript = transcript

	metrics := analysis.ComputeMetrics(transcript.Text, turn.Question.Type)
	result.Metrics = &metrics

	o.analyzeAndFollowUp(ctx, turn, result, stages)
	result.Stages = stages.list()

	log.Info("turn processed",
		zap.Float64("confidence", transcript.Confidence),
		zap.Int("face_violations", len(result.FaceViolations)),
		zap.Int("object_violations", len(result.ObjectViolations)),
		zap.Bool("degraded", result.Degraded()),
	)
	return result, nil
}

func (o *Orchestrator) transcribeAndInspect(ctx context.Context, turn Turn, result *TurnResult, stages *stageLog, log *zap.Logger) (*transcription.Transcript, error) {
	var (
		wg         sync.WaitGroup
		transcript *transcription.Transcript
		err        error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if o.deps.Transcriber == nil {
			err = ai.Unavailable("transcription", "")
			stages.add("transcription", time.Now(), err, false)
			return
		}
		start := time.Now()
		transcript, err = o.deps.Transcriber.Transcribe(ctx, turn.Audio)
		stages.add("transcription", start, err, transcript != nil && transcript.Fallback)
	}()

	image, imageErr := snapshotBytes(turn.Snapshot)
	switch {
	case imageErr != nil:
		log.Warn("snapshot could not be read, skipping vision checks", zap.Error(imageErr))
		stages.skip("faces", imageErr)
		stages.skip("objects", imageErr)
	case len(image) == 0:
		stages.skip("faces", nil)
		stages.skip("objects", nil)
	case o.deps.Inspector == nil:
		stages.skip("faces", errors.New("no inspector configured"))
		stages.skip("objects", errors.New("no inspector configured"))
	default:
		wg.Add(2)
		go func() {
			defer wg.Done()
			start := time.Now()
			report := o.deps.Inspector.InspectFaces(ctx, image)
			result.FaceViolations = report.Violations
			stages.add("faces", start, nil, report.Degraded)
			if report.Degraded {
				stages.markVisionDegraded(result)
			}
		}()
		go func() {
			defer wg.Done()
			start := time.Now()
			report := o.deps.Inspector.InspectObjects(ctx, image)
			result.ObjectViolations = report.Violations
			stages.add("objects", start, nil, report.Degraded)
			if report.Degraded {
				stages.markVisionDegraded(result)
			}
		}()
	}

	wg.Wait()
	return transcript, err
}

func (o *Orchestrator) analyzeAndFollowUp(ctx context.Context, turn Turn, result *TurnResult, stages *stageLog) {
	text := result.Transcript.Text
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if o.deps.Analyzer == nil {
			result.AnalysisErr = ai.Unavailable("analysis", "")
			stages.add("analysis", time.Now(), result.AnalysisErr, false)
			return
		}
		start := time.Now()
		result.Analysis, result.AnalysisErr = o.deps.Analyzer.Analyze(ctx, text, turn.Question)
		stages.add("analysis", start, result.AnalysisErr, false)
	}()
	go func() {
		defer wg.Done()
		if o.deps.FollowUps == nil {
			result.FollowUpErr = ai.Unavailable("followup", "")
			stages.add("followup", time.Now(), result.FollowUpErr, false)
			return
		}
		start := time.Now()
		result.FollowUps, result.FollowUpErr = o.deps.FollowUps.Generate(ctx, text, turn.Question)
		stages.add("followup", start, result.FollowUpErr, false)
	}()

	wg.Wait()
}

func snapshotBytes(snapshot *media.Snapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, nil
	}
	return snapshot.Bytes()
}

// stageLog collects stages from concurrent goroutines in a fixed order.
type stageLog struct {
	mu     sync.Mutex
	stages map[string]Stage
}

var stageOrder = []string{"transcription", "faces", "objects", "analysis", "followup"}

func newStageLog() *stageLog {
	return &stageLog{stages: make(map[string]Stage)}
}

func (s *stageLog) add(name string, start time.Time, err error, degraded bool) {
	stage := Stage{Name: name, Status: StatusOK, Elapsed: time.Since(start)}
	switch {
	case err != nil:
		stage.Status = StatusFailed
		stage.Error = err.Error()
	case degraded:
		stage.Status = StatusDegraded
	}
	s.mu.Lock()
	s.stages[name] = stage
	s.mu.Unlock()
}

func (s *stageLog) skip(name string, reason error) {
	stage := Stage{Name: name, Status: StatusSkipped}
	if reason != nil {
		stage.Error = reason.Error()
	}
	s.mu.Lock()
	s.stages[name] = stage
	s.mu.Unlock()
}

func (s *stageLog) markVisionDegraded(result *TurnResult) {
	s.mu.Lock()
	result.VisionDegraded = true
	s.mu.Unlock()
}

func (s *stageLog) list() []Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Stage, 0, len(s.stages))
	for _, name := range stageOrder {
		if stage, ok := s.stages[name]; ok {
			out = append(out, stage)
		}
	}
	return out
}
