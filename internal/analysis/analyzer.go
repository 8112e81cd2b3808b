// Package analysis scores a single interview answer.
package analysis

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/ai/parse"
	"github.com/spigell/interview-proctor/internal/interview"
	"github.com/spigell/interview-proctor/internal/logger"
)

const (
	component = "analysis"

	defaultConfidence  = 0.8
	defaultTemperature = 0.3
	systemInstruction  = "You are an experienced interview coach. You answer only with the requested JSON object."
)

//go:embed prompts/analysis.md
var promptTemplate string

var (
	suggestionVerbs = []string{"consider", "add", "include", "provide", "use", "practice"}
	sentenceEnd     = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

type AnswerAnalysis struct {
	AnalysisText string           `json:"analysis" yaml:"analysis"`
	Confidence   float64          `json:"confidence" yaml:"confidence"`
	Scores       interview.Scores `json:"scores" yaml:"scores"`
	Suggestions  []string         `json:"suggestions" yaml:"suggestions"`
	Keywords     []string         `json:"keywords" yaml:"keywords"`
	Metrics      Metrics          `json:"metrics" yaml:"metrics"`
	Provider     string           `json:"provider" yaml:"provider"`
}

type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Analyzer is fail-closed: without a parsable provider answer no scores are produced.
type Analyzer struct {
	provider ai.TextProvider
	opts     Options
	logger   *zap.Logger
}

func New(provider ai.TextProvider, opts Options, log *zap.Logger) *Analyzer {
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	return &Analyzer{provider: provider, opts: opts, logger: logger.ForComponent(log, component)}
}

// Analyze returns ParseError when the provider output holds no JSON object.
// Metrics are computed locally and are also available through ComputeMetrics
// when the provider call fails.
func (a *Analyzer) Analyze(ctx context.Context, transcript string, question interview.Question) (*AnswerAnalysis, error) {
	if a.provider == nil {
		return nil, ai.Unavailable(component, "")
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, ai.InputError(component, ai.ReasonEmpty, errors.New("transcript is empty"))
	}

	prompt := strings.NewReplacer(
		"{{QUESTION_TYPE}}", string(question.Type),
		"{{QUESTION}}", strings.TrimSpace(question.Text),
		"{{ANSWER}}", strings.TrimSpace(transcript),
	).Replace(promptTemplate)

	callCtx := ctx
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	output, err := a.provider.Complete(callCtx, ai.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: systemInstruction,
		MaxTokens:         a.opts.MaxTokens,
		Temperature:       a.opts.Temperature,
	})
	if err != nil {
		return nil, ai.WithComponent(component, fmt.Errorf("analyze answer: %w", err))
	}

	data, err := parse.Object(output)
	if err != nil {
		a.logger.Warn("analysis response has no json object", zap.String(logger.FieldProvider, a.provider.Name()))
		return nil, ai.ParseError(component, a.provider.Name(), err)
	}

	analysis := fromObject(data)
	analysis.Provider = a.provider.Name()
	analysis.Keywords = Keywords(transcript)
	analysis.Metrics = ComputeMetrics(transcript, question.Type)

	a.logger.Debug("answer analyzed",
		zap.Float64("confidence", analysis.Confidence),
		zap.Float64("average_score", analysis.Scores.Average()),
		zap.Int("suggestions", len(analysis.Suggestions)),
	)

	return analysis, nil
}

// fromObject applies the named defaults for every field the provider left out.
func fromObject(data map[string]any) *AnswerAnalysis {
	out := &AnswerAnalysis{
		AnalysisText: parse.String(data["analysis"]),
		Confidence:   defaultConfidence,
	}

	if c := parse.Float(data["confidence"]); !math.IsNaN(c) {
		// Some models answer on a percent scale.
		if c > 1 {
			c /= 100
		}
		out.Confidence = parse.Clamp(c, 0, 1)
	}

	if scores := parse.Map(data["scores"]); scores != nil {
		out.Scores = interview.Scores{
			Clarity:   score(scores["clarity"]),
			Relevance: score(scores["relevance"]),
			Depth:     score(scores["depth"]),
			Structure: score(scores["structure"]),
		}
	}

	if suggestions, ok := parse.Strings(data["suggestions"]); ok {
		out.Suggestions = suggestions
	} else {
		out.Suggestions = extractSuggestions(out.AnalysisText)
	}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}

	return out
}

func score(v any) float64 {
	return parse.Clamp(parse.Float(v), 0, 100)
}

// extractSuggestions keeps the sentences of text that recommend an action.
func extractSuggestions(text string) []string {
	var out []string
	for _, sentence := range sentenceEnd.FindAllString(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		words := strings.FieldsFunc(strings.ToLower(sentence), func(r rune) bool {
			return !('a' <= r && r <= 'z')
		})
		if containsAny(words, suggestionVerbs) {
			out = append(out, sentence)
		}
	}
	return out
}

func containsAny(words, targets []string) bool {
	for _, w := range words {
		for _, t := range targets {
			if w == t {
				return true
			}
		}
	}
	return false
}
