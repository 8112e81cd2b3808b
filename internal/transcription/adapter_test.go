package transcription

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/media"
)

type stubProvider struct {
	name     string
	response *ai.RawTranscript
	err      error
	requests []ai.TranscriptionRequest
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Transcribe(_ context.Context, req ai.TranscriptionRequest) (*ai.RawTranscript, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func testOptions() Options {
	return Options{
		MinBytes: 16,
		MaxBytes: 1 << 20,
		Language: "en",
		Formats:  []string{"audio/webm", "audio/wav"},
	}
}

func clipOf(size int) *media.AudioClip {
	return media.NewAudioClip(make([]byte, size), "audio/webm")
}

func TestTranscribeEmptyClipMakesNoProviderCall(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	fallback := &stubProvider{name: "fallback"}
	adapter := New(primary, fallback, nil, testOptions(), zap.NewNop())

	for _, clip := range []*media.AudioClip{clipOf(0), clipOf(16), nil} {
		_, err := adapter.Transcribe(context.Background(), clip)
		if !errors.Is(err, ai.ErrInputEmpty) {
			t.Fatalf("expected empty input error, got %v", err)
		}
	}

	if len(primary.requests)+len(fallback.requests) != 0 {
		t.Fatalf("expected no provider calls, got %d", len(primary.requests)+len(fallback.requests))
	}
}

func TestTranscribeRejectsOversizedAndUnsupportedInput(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	adapter := New(primary, nil, nil, testOptions(), zap.NewNop())

	if _, err := adapter.Transcribe(context.Background(), clipOf(2<<20)); !errors.Is(err, ai.ErrInputTooLarge) {
		t.Fatalf("expected too large error, got %v", err)
	}

	mp3 := media.NewAudioClip(make([]byte, 64), "audio/mpeg")
	if _, err := adapter.Transcribe(context.Background(), mp3); !errors.Is(err, ai.ErrInputUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}

	if len(primary.requests) != 0 {
		t.Fatalf("input errors must not reach the provider")
	}
}

func TestTranscribeUsesSegmentConfidence(t *testing.T) {
	lp1, lp2 := -0.1, -0.3
	primary := &stubProvider{name: "whisper", response: &ai.RawTranscript{
		Text:         "I designed the caching layer.",
		LanguageCode: "en",
		Segments: []ai.Segment{
			{Text: "I designed", AvgLogProb: &lp1},
			{Text: "the caching layer.", AvgLogProb: &lp2},
		},
	}}
	adapter := New(primary, nil, media.HeaderDuration{Default: 42 * time.Second}, testOptions(), zap.NewNop())

	out, err := adapter.Transcribe(context.Background(), clipOf(64))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := math.Exp(-0.2)
	if math.Abs(out.Confidence-want) > 1e-9 {
		t.Fatalf("expected confidence %v, got %v", want, out.Confidence)
	}
	if out.Fallback || out.Provider != "whisper" {
		t.Fatalf("unexpected provenance: %+v", out)
	}
	if out.Duration != 42*time.Second || !out.DurationApproximate {
		t.Fatalf("expected approximate default duration, got %s (approx=%v)", out.Duration, out.DurationApproximate)
	}
	if primary.requests[0].LanguageHint != "en" {
		t.Fatalf("expected language hint, got %q", primary.requests[0].LanguageHint)
	}
}

func TestTranscribeFallsBackOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	primary := &stubProvider{name: "whisper", err: ai.ProviderError("whisper", 502, "", errors.New("bad gateway"))}
	fallback := &stubProvider{name: "gemini", response: &ai.RawTranscript{Text: "fallback worked fine for this answer"}}
	adapter := New(primary, fallback, nil, testOptions(), zap.New(core))

	out, err := adapter.Transcribe(context.Background(), clipOf(64))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Fallback || out.Provider != "gemini" {
		t.Fatalf("expected fallback transcript, got %+v", out)
	}
	if len(primary.requests) != 1 || len(fallback.requests) != 1 {
		t.Fatalf("expected one call each, got primary=%d fallback=%d", len(primary.requests), len(fallback.requests))
	}
	if logs.FilterMessage("primary transcription failed, trying fallback").Len() != 1 {
		t.Fatal("expected fallback warning to be logged")
	}
}

func TestTranscribeReturnsOriginalErrorWhenFallbackFails(t *testing.T) {
	original := ai.ProviderError("whisper", 401, ai.ReasonAuthInvalid, errors.New("bad key"))
	primary := &stubProvider{name: "whisper", err: original}
	fallback := &stubProvider{name: "gemini", err: ai.ProviderError("gemini", 500, "", errors.New("fallback exploded"))}
	adapter := New(primary, fallback, nil, testOptions(), zap.NewNop())

	_, err := adapter.Transcribe(context.Background(), clipOf(64))
	if !errors.Is(err, ai.ErrProviderAuthInvalid) {
		t.Fatalf("expected original auth error, got %v", err)
	}

	var classified *ai.Error
	if !errors.As(err, &classified) {
		t.Fatalf("expected taxonomy error, got %T", err)
	}
	if classified.Component != component || classified.Provider != "whisper" || classified.Status != 401 {
		t.Fatalf("unexpected error context: %+v", classified)
	}
	if !strings.Contains(err.Error(), "fallback gemini also failed") {
		t.Fatalf("expected fallback context in message, got %q", err.Error())
	}
}

func TestTranscribeDegradedFallbackDropsLanguageHint(t *testing.T) {
	primary := &flakyProvider{failures: 1, response: &ai.RawTranscript{Text: "hola"}}
	adapter := New(primary, nil, nil, testOptions(), zap.NewNop())

	out, err := adapter.Transcribe(context.Background(), clipOf(64))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Fallback {
		t.Fatal("expected degraded fallback to be flagged")
	}
	if len(primary.requests) != 2 || primary.requests[0].LanguageHint != "en" || primary.requests[1].LanguageHint != "" {
		t.Fatalf("unexpected requests: %+v", primary.requests)
	}
	if out.LanguageCode != "en" {
		t.Fatalf("expected configured language when provider reports none, got %q", out.LanguageCode)
	}
}

type flakyProvider struct {
	failures int
	response *ai.RawTranscript
	requests []ai.TranscriptionRequest
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Transcribe(_ context.Context, req ai.TranscriptionRequest) (*ai.RawTranscript, error) {
	f.requests = append(f.requests, req)
	if len(f.requests) <= f.failures {
		return nil, context.DeadlineExceeded
	}
	return f.response, nil
}

func TestTranscribeWithoutProviders(t *testing.T) {
	adapter := New(nil, nil, nil, testOptions(), nil)

	_, err := adapter.Transcribe(context.Background(), clipOf(64))
	if !errors.Is(err, ai.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
}
