package followup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/ai/aitest"
	"github.com/spigell/interview-proctor/internal/interview"
)

var question = interview.Question{Text: "How do you scale a read-heavy service?", Type: interview.Technical}

func TestParse(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   []string
		padded int
	}{
		{
			name:   "numbered list",
			output: "1. What cache did you use?\n2) How did you invalidate it?\n3 - What was the hit ratio?",
			want:   []string{"What cache did you use?", "How did you invalidate it?", "What was the hit ratio?"},
		},
		{
			name:   "bullets and markdown",
			output: "Here are my questions:\n- **Why replicas?**\n* Q2: How did you test failover?\n\n• What broke first?",
			want:   []string{"Why replicas?", "How did you test failover?", "What broke first?"},
		},
		{
			name:   "truncates extra",
			output: "A?\nB?\nC?\nD?",
			want:   []string{"A?", "B?", "C?"},
		},
		{
			name:   "pads short",
			output: "1. Which database?\n2. Tell me more.",
			want:   []string{"Which database?", CannedQuestion, CannedQuestion},
			padded: 2,
		},
		{
			name:   "empty",
			output: "",
			want:   []string{CannedQuestion, CannedQuestion, CannedQuestion},
			padded: 3,
		},
		{
			name:   "leading number kept",
			output: "2024 was a busy year?",
			want:   []string{"2024 was a busy year?", CannedQuestion, CannedQuestion},
			padded: 2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, padded := Parse(tc.output)
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("Parse() = %q, want %q", got, tc.want)
			}
			if padded != tc.padded {
				t.Fatalf("expected %d padded, got %d", tc.padded, padded)
			}
		})
	}
}

func TestParseAlwaysThreeQuestions(t *testing.T) {
	outputs := []string{
		"",
		"no questions at all",
		"?",
		"1. a?\n2. b?\n3. c?\n4. d?\n5. e?",
		strings.Repeat("why?\n", 50),
	}
	for _, output := range outputs {
		got, _ := Parse(output)
		if len(got) != Count {
			t.Fatalf("expected %d questions for %q, got %d", Count, output, len(got))
		}
		for _, q := range got {
			if !strings.Contains(q, "?") {
				t.Fatalf("question %q has no question mark", q)
			}
		}
	}
}

func TestGenerate(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	provider := &aitest.Text{Response: "1. Which cache?\nThat is all."}
	gen := New(provider, Options{MaxTokens: 256}, zap.New(core))

	got, err := gen.Generate(context.Background(), "I added a cache in front of postgres.", question)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != Count || got[0] != "Which cache?" {
		t.Fatalf("unexpected questions %q", got)
	}
	if logs.FilterMessage("provider returned too few follow-up questions").Len() != 1 {
		t.Fatal("expected padding warning")
	}

	req := provider.Requests()[0]
	if req.Temperature != 0.7 || req.MaxTokens != 256 {
		t.Fatalf("unexpected request settings %+v", req)
	}
	if !strings.Contains(req.Prompt, question.Text) || !strings.Contains(req.Prompt, "postgres") {
		t.Fatalf("prompt misses context: %s", req.Prompt)
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Run("provider error is not padded", func(t *testing.T) {
		provider := &aitest.Text{Err: ai.ProviderError("gemini", 429, ai.ReasonQuota, errors.New("quota"))}
		got, err := New(provider, Options{}, zap.NewNop()).Generate(context.Background(), "answer", question)
		if got != nil || !errors.Is(err, ai.ErrProvider) {
			t.Fatalf("expected provider error and no questions, got %q, %v", got, err)
		}
		if ai.KindOf(err) != ai.KindProvider {
			t.Fatalf("unexpected kind %q", ai.KindOf(err))
		}
	})

	t.Run("unconfigured", func(t *testing.T) {
		_, err := New(nil, Options{}, zap.NewNop()).Generate(context.Background(), "answer", question)
		if !errors.Is(err, ai.ErrProviderUnavailable) {
			t.Fatalf("expected unavailable, got %v", err)
		}
	})

	t.Run("empty answer", func(t *testing.T) {
		_, err := New(&aitest.Text{}, Options{}, zap.NewNop()).Generate(context.Background(), "", question)
		if !errors.Is(err, ai.ErrInputEmpty) {
			t.Fatalf("expected empty input, got %v", err)
		}
	})
}
