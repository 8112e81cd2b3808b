// Package assessment aggregates a finished interview into one overall assessment.
package assessment

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/ai/parse"
	"github.com/spigell/interview-proctor/internal/interview"
	"github.com/spigell/interview-proctor/internal/logger"
)

const (
	component = "assessment"

	minItems = 3
	maxItems = 5

	defaultTemperature = 0.3
	systemInstruction  = "You are a senior hiring manager writing a final interview assessment. You answer only with the requested JSON object."
)

//go:embed prompts/assessment.md
var promptTemplate string

type Breakdown struct {
	Communication  float64 `json:"communication" yaml:"communication"`
	Technical      float64 `json:"technical" yaml:"technical"`
	ProblemSolving float64 `json:"problemSolving" yaml:"problemSolving"`
	Confidence     float64 `json:"confidence" yaml:"confidence"`
}

type TypeInsight struct {
	Score   float64 `json:"score" yaml:"score"`
	Summary string  `json:"summary,omitempty" yaml:"summary,omitempty"`
}

type QuestionTypeAnalysis struct {
	Behavioral TypeInsight `json:"behavioral" yaml:"behavioral"`
	Technical  TypeInsight `json:"technical" yaml:"technical"`
}

type InterviewAssessment struct {
	InterviewID          string               `json:"interviewId" yaml:"interviewId"`
	OverallScore         float64              `json:"overallScore" yaml:"overallScore"`
	Breakdown            Breakdown            `json:"breakdown" yaml:"breakdown"`
	Strengths            []string             `json:"strengths" yaml:"strengths"`
	Improvements         []string             `json:"improvements" yaml:"improvements"`
	Recommendations      []string             `json:"recommendations" yaml:"recommendations"`
	Feedback             string               `json:"feedback" yaml:"feedback"`
	QuestionTypeAnalysis QuestionTypeAnalysis `json:"questionTypeAnalysis" yaml:"questionTypeAnalysis"`
	Provider             string               `json:"provider" yaml:"provider"`
}

type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Aggregator issues one generation request per interview. It keeps no state,
// so guarding against concurrent runs for one interview is up to the caller.
type Aggregator struct {
	provider ai.TextProvider
	opts     Options
	logger   *zap.Logger
}

func New(provider ai.TextProvider, opts Options, log *zap.Logger) *Aggregator {
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	return &Aggregator{provider: provider, opts: opts, logger: logger.ForComponent(log, component)}
}

// Aggregate fails as a whole when the answer cannot be parsed; there is no synthetic assessment.
func (a *Aggregator) Aggregate(ctx context.Context, record interview.Record) (*InterviewAssessment, error) {
	if a.provider == nil {
		return nil, ai.Unavailable(component, "")
	}
	if len(record.Turns) == 0 {
		return nil, ai.InputError(component, ai.ReasonEmpty, errors.New("interview has no turns"))
	}

	log := a.logger.With(zap.String(logger.FieldInterview, record.ID))

	callCtx := ctx
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	output, err := a.provider.Complete(callCtx, ai.CompletionRequest{
		Prompt:            BuildPrompt(record),
		SystemInstruction: systemInstruction,
		MaxTokens:         a.opts.MaxTokens,
		Temperature:       a.opts.Temperature,
	})
	if err != nil {
		return nil, ai.WithComponent(component, fmt.Errorf("assess interview %s: %w", record.ID, err))
	}

	data, err := parse.Object(output)
	if err == nil {
		var result *InterviewAssessment
		result, err = fromObject(data)
		if err == nil {
			result.InterviewID = record.ID
			result.Provider = a.provider.Name()
			log.Info("interview assessed",
				zap.Int("turns", len(record.Turns)),
				zap.Float64("overall_score", result.OverallScore),
			)
			return result, nil
		}
	}

	log.Warn("assessment response could not be parsed", zap.Error(err))
	return nil, ai.ParseError(component, a.provider.Name(), err)
}

// BuildPrompt embeds every question/answer pair in order, with any per-answer scores.
func BuildPrompt(record interview.Record) string {
	var b strings.Builder
	for i, turn := range record.Turns {
		fmt.Fprintf(&b, "[Turn %d] (%s)\n", i+1, turn.Question.Type)
		fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(turn.Question.Text))
		response := strings.TrimSpace(turn.Response)
		if response == "" {
			response = "(no answer)"
		}
		fmt.Fprintf(&b, "Answer: %s\n", response)
		if s := turn.Scores; s != nil {
			fmt.Fprintf(&b, "Scores: clarity %.0f, relevance %.0f, depth %.0f, structure %.0f\n",
				s.Clarity, s.Relevance, s.Depth, s.Structure)
		}
		b.WriteString("\n")
	}

	interviewType := string(record.Type)
	if interviewType == "" {
		interviewType = string(interview.Mixed)
	}
	duration := "an unknown time"
	if record.Duration > 0 {
		duration = record.Duration.Round(time.Second).String()
	}

	return strings.NewReplacer(
		"{{INTERVIEW_TYPE}}", interviewType,
		"{{DURATION}}", duration,
		"{{TURNS}}", strings.TrimSpace(b.String()),
	).Replace(promptTemplate)
}

func fromObject(data map[string]any) (*InterviewAssessment, error) {
	overall := parse.Float(data["overallScore"])
	if math.IsNaN(overall) {
		return nil, errors.New("overallScore is missing")
	}

	breakdown := parse.Map(data["breakdown"])
	if breakdown == nil {
		return nil, errors.New("breakdown is missing")
	}

	out := &InterviewAssessment{
		OverallScore: parse.Clamp(overall, 0, 100),
		Feedback:     parse.String(data["feedback"]),
	}

	var errs []error
	out.Breakdown.Communication = requiredScore(breakdown, "communication", &errs)
	out.Breakdown.Technical = requiredScore(breakdown, "technical", &errs)
	out.Breakdown.ProblemSolving = requiredScore(breakdown, "problemSolving", &errs)
	out.Breakdown.Confidence = requiredScore(breakdown, "confidence", &errs)

	out.Strengths = items(data, "strengths", &errs)
	out.Improvements = items(data, "improvements", &errs)
	out.Recommendations = items(data, "recommendations", &errs)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if qta := parse.Map(data["questionTypeAnalysis"]); qta != nil {
		out.QuestionTypeAnalysis = QuestionTypeAnalysis{
			Behavioral: insight(qta["behavioral"]),
			Technical:  insight(qta["technical"]),
		}
	}

	return out, nil
}

func requiredScore(m map[string]any, key string, errs *[]error) float64 {
	v := parse.Float(m[key])
	if math.IsNaN(v) {
		*errs = append(*errs, fmt.Errorf("breakdown.%s is missing", key))
		return 0
	}
	return parse.Clamp(v, 0, 100)
}

// items requires at least minItems entries and keeps the first maxItems.
func items(m map[string]any, key string, errs *[]error) []string {
	list, _ := parse.Strings(m[key])
	if len(list) < minItems {
		*errs = append(*errs, fmt.Errorf("%s has %d items, need at least %d", key, len(list), minItems))
		return nil
	}
	if len(list) > maxItems {
		list = list[:maxItems]
	}
	return list
}

// insight accepts an object, a bare score or a bare summary.
func insight(v any) TypeInsight {
	switch val := v.(type) {
	case map[string]any:
		return TypeInsight{Score: parse.Clamp(parse.Float(val["score"]), 0, 100), Summary: parse.String(val["summary"])}
	case string:
		if f := parse.Float(val); !math.IsNaN(f) {
			return TypeInsight{Score: parse.Clamp(f, 0, 100)}
		}
		return TypeInsight{Summary: strings.TrimSpace(val)}
	default:
		return TypeInsight{Score: parse.Clamp(parse.Float(val), 0, 100)}
	}
}
