// Package followup asks the text provider for follow-up interview questions.
package followup

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/interview"
	"github.com/spigell/interview-proctor/internal/logger"
)

const (
	component = "followup"

	// Count is the fixed size of every follow-up set.
	Count = 3

	// CannedQuestion pads sets the provider left short.
	CannedQuestion = "Can you walk me through a specific example of that?"

	defaultTemperature = 0.7
	systemInstruction  = "You are a thoughtful technical interviewer. You answer only with the numbered questions."
)

//go:embed prompts/followup.md
var promptTemplate string

// listMarker matches leading numbering and bullets such as "1.", "2)", "-", "*", "Q3:".
var listMarker = regexp.MustCompile(`(?i)^\s*(?:[-*•]+\s*|(?:q(?:uestion)?\s*)?\d+\s*[.):-]\s*)+`)

type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type Generator struct {
	provider ai.TextProvider
	opts     Options
	logger   *zap.Logger
}

func New(provider ai.TextProvider, opts Options, log *zap.Logger) *Generator {
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	return &Generator{provider: provider, opts: opts, logger: logger.ForComponent(log, component)}
}

// Generate always returns exactly Count questions on success.
// Provider failures are returned as is; no canned set is substituted for them.
func (g *Generator) Generate(ctx context.Context, answer string, question interview.Question) ([]string, error) {
	if g.provider == nil {
		return nil, ai.Unavailable(component, "")
	}
	if strings.TrimSpace(answer) == "" {
		return nil, ai.InputError(component, ai.ReasonEmpty, errors.New("answer is empty"))
	}

	prompt := strings.NewReplacer(
		"{{QUESTION_TYPE}}", string(question.Type),
		"{{QUESTION}}", strings.TrimSpace(question.Text),
		"{{ANSWER}}", strings.TrimSpace(answer),
	).Replace(promptTemplate)

	callCtx := ctx
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	output, err := g.provider.Complete(callCtx, ai.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: systemInstruction,
		MaxTokens:         g.opts.MaxTokens,
		Temperature:       g.opts.Temperature,
	})
	if err != nil {
		return nil, ai.WithComponent(component, fmt.Errorf("generate follow-ups: %w", err))
	}

	questions, padded := Parse(output)
	if padded > 0 {
		g.logger.Warn("provider returned too few follow-up questions",
			zap.String(logger.FieldProvider, g.provider.Name()),
			zap.Int("padded", padded),
		)
	}
	return questions, nil
}

// Parse extracts questions from a free-form list and pads or truncates the
// result to exactly Count entries. It also reports how many were padded.
func Parse(output string) ([]string, int) {
	questions := make([]string, 0, Count)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		line = strings.Trim(line, "*_` ")
		if !strings.Contains(line, "?") {
			continue
		}
		questions = append(questions, line)
		if len(questions) == Count {
			return questions, 0
		}
	}

	padded := Count - len(questions)
	for len(questions) < Count {
		questions = append(questions, CannedQuestion)
	}
	return questions, padded
}
