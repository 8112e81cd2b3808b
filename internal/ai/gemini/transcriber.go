package gemini

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/ai/parse"
)

//go:embed prompts/transcribe.md
var transcribePrompt string

// Transcriber implements ai.TranscriptionProvider using Gemini audio understanding.
// Gemini reports no per-segment log-probabilities.
type Transcriber struct {
	client *Client
	model  string
}

func NewTranscriber(client *Client, model string) *Transcriber {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Transcriber{client: client, model: model}
}

func (t *Transcriber) Name() string { return providerName }

func (t *Transcriber) Transcribe(ctx context.Context, req ai.TranscriptionRequest) (*ai.RawTranscript, error) {
	if t == nil || t.client == nil {
		return nil, ai.Unavailable("", providerName)
	}

	language := "Detect the spoken language automatically."
	if hint := strings.TrimSpace(req.LanguageHint); hint != "" {
		language = fmt.Sprintf("The answer is spoken in language %q.", hint)
	}
	prompt := strings.ReplaceAll(transcribePrompt, "{{LANGUAGE}}", language)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(req.Audio, req.MIMEHint),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0)),
		ResponseMIMEType: "application/json",
	}

	t.client.logger.Debug("gemini transcription request",
		zap.String("model", t.model),
		zap.String("mime", req.MIMEHint),
		zap.Int("audio_bytes", len(req.Audio)),
	)

	resp, err := t.client.generate(ctx, t.model, contents, cfg)
	if err != nil {
		return nil, err
	}

	raw := responseText(resp)
	if raw == "" {
		return nil, ai.ProviderError(providerName, 0, "", errors.New("gemini api returned empty transcription"))
	}

	return parseTranscription(raw)
}

func parseTranscription(raw string) (*ai.RawTranscript, error) {
	data, err := parse.Object(raw)
	if err != nil {
		return nil, ai.ParseError("", providerName, err)
	}

	out := &ai.RawTranscript{
		Text:         parse.String(data["text"]),
		LanguageCode: parse.String(data["language"]),
	}

	items, _ := data["segments"].([]any)
	for _, item := range items {
		seg := parse.Map(item)
		if seg == nil {
			continue
		}
		text := parse.String(seg["text"])
		if text == "" {
			continue
		}
		out.Segments = append(out.Segments, ai.Segment{
			Start: seconds(parse.Float(seg["start"])),
			End:   seconds(parse.Float(seg["end"])),
			Text:  text,
		})
	}

	if out.Text == "" && len(out.Segments) > 0 {
		parts := make([]string, 0, len(out.Segments))
		for _, seg := range out.Segments {
			parts = append(parts, seg.Text)
		}
		out.Text = strings.Join(parts, " ")
	}

	return out, nil
}

func seconds(v float64) time.Duration {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
