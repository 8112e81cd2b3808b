package assessment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/ai/aitest"
	"github.com/spigell/interview-proctor/internal/interview"
)

func sampleRecord() interview.Record {
	return interview.Record{
		ID:       "iv-1",
		Type:     interview.Mixed,
		Duration: 25*time.Minute + 300*time.Millisecond,
		Turns: []interview.Turn{
			{
				Question: interview.Question{Text: "Tell me about yourself.", Type: interview.Behavioral},
				Response: "I lead a platform team of five engineers.",
				Scores:   &interview.Scores{Clarity: 80, Relevance: 75, Depth: 60, Structure: 70},
			},
			{
				Question: interview.Question{Text: "How would you shard a database?", Type: interview.Technical},
				Response: "",
			},
		},
	}
}

const validResponse = `Assessment follows.
{
  "overallScore": 104,
  "breakdown": {"communication": 82, "technical": "64", "problemSolving": 70, "confidence": 75},
  "strengths": ["Clear structure", "Good ownership", "Concise"],
  "improvements": ["Add numbers", "Go deeper", "Explain tradeoffs", "Slow down", "Use examples", "Extra item"],
  "recommendations": ["Practice system design", "Prepare STAR stories", "Review sharding"],
  "feedback": "A solid interview with room to grow.",
  "questionTypeAnalysis": {"behavioral": {"score": 78, "summary": "Strong"}, "technical": 55}
}`

func TestAggregate(t *testing.T) {
	provider := &aitest.Text{ProviderName: "gemini", Response: validResponse}
	agg := New(provider, Options{MaxTokens: 2048}, zap.NewNop())

	got, err := agg.Aggregate(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if got.InterviewID != "iv-1" || got.Provider != "gemini" {
		t.Fatalf("unexpected identity %q/%q", got.InterviewID, got.Provider)
	}
	if got.OverallScore != 100 {
		t.Fatalf("expected clamped overall score, got %v", got.OverallScore)
	}
	want := Breakdown{Communication: 82, Technical: 64, ProblemSolving: 70, Confidence: 75}
	if got.Breakdown != want {
		t.Fatalf("expected %+v, got %+v", want, got.Breakdown)
	}
	if len(got.Improvements) != maxItems || len(got.Strengths) != 3 || len(got.Recommendations) != 3 {
		t.Fatalf("unexpected list sizes %d/%d/%d", len(got.Strengths), len(got.Improvements), len(got.Recommendations))
	}
	if got.QuestionTypeAnalysis.Behavioral != (TypeInsight{Score: 78, Summary: "Strong"}) {
		t.Fatalf("unexpected behavioral insight %+v", got.QuestionTypeAnalysis.Behavioral)
	}
	if got.QuestionTypeAnalysis.Technical.Score != 55 {
		t.Fatalf("unexpected technical insight %+v", got.QuestionTypeAnalysis.Technical)
	}

	requests := provider.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(requests))
	}
	if requests[0].Temperature != 0.3 || requests[0].MaxTokens != 2048 {
		t.Fatalf("unexpected request settings %+v", requests[0])
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleRecord())

	for _, part := range []string{
		"mixed mock interview lasting 25m0s",
		"[Turn 1] (behavioral)\nQuestion: Tell me about yourself.\nAnswer: I lead a platform team of five engineers.\nScores: clarity 80, relevance 75, depth 60, structure 70",
		"[Turn 2] (technical)\nQuestion: How would you shard a database?\nAnswer: (no answer)",
	} {
		if !strings.Contains(prompt, part) {
			t.Fatalf("prompt is missing %q:\n%s", part, prompt)
		}
	}
	if strings.Index(prompt, "[Turn 1]") > strings.Index(prompt, "[Turn 2]") {
		t.Fatal("turns must keep their order")
	}
}

func TestAggregateParseFailures(t *testing.T) {
	cases := map[string]string{
		"no json":           "The candidate did well overall.",
		"missing overall":   `{"breakdown": {"communication": 1, "technical": 1, "problemSolving": 1, "confidence": 1}, "strengths": ["a","b","c"], "improvements": ["a","b","c"], "recommendations": ["a","b","c"]}`,
		"missing breakdown": `{"overallScore": 70, "strengths": ["a","b","c"], "improvements": ["a","b","c"], "recommendations": ["a","b","c"]}`,
		"partial breakdown": `{"overallScore": 70, "breakdown": {"communication": 1}, "strengths": ["a","b","c"], "improvements": ["a","b","c"], "recommendations": ["a","b","c"]}`,
		"too few items":     `{"overallScore": 70, "breakdown": {"communication": 1, "technical": 1, "problemSolving": 1, "confidence": 1}, "strengths": ["a"], "improvements": ["a","b","c"], "recommendations": ["a","b","c"]}`,
	}

	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			provider := &aitest.Text{Response: response}
			got, err := New(provider, Options{}, zap.NewNop()).Aggregate(context.Background(), sampleRecord())
			if !errors.Is(err, ai.ErrParse) {
				t.Fatalf("expected parse error, got %v", err)
			}
			if got != nil {
				t.Fatalf("expected no assessment, got %+v", got)
			}
		})
	}
}

func TestAggregateInputAndProviderErrors(t *testing.T) {
	_, err := New(&aitest.Text{}, Options{}, zap.NewNop()).Aggregate(context.Background(), interview.Record{ID: "empty"})
	if !errors.Is(err, ai.ErrInputEmpty) {
		t.Fatalf("expected empty input, got %v", err)
	}

	_, err = New(nil, Options{}, zap.NewNop()).Aggregate(context.Background(), sampleRecord())
	if !errors.Is(err, ai.ErrProviderUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	provider := &aitest.Text{Err: ai.ProviderError("gemini", 401, ai.ReasonAuthInvalid, errors.New("bad key"))}
	_, err = New(provider, Options{}, zap.NewNop()).Aggregate(context.Background(), sampleRecord())
	if !errors.Is(err, ai.ErrProviderAuthInvalid) || ai.Retryable(err) {
		t.Fatalf("expected non-retryable auth error, got %v", err)
	}
	if !strings.Contains(err.Error(), "iv-1") {
		t.Fatalf("expected interview id in error, got %v", err)
	}
}
