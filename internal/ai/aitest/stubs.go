// Package aitest provides in-memory provider stubs for tests.
package aitest

import (
	"context"
	"sync"

	"github.com/spigell/interview-proctor/internal/ai"
)

// Text answers every completion with Response or Err and records the requests.
type Text struct {
	ProviderName string
	Response     string
	Err          error
	// Respond, when set, takes precedence over Response and Err.
	Respond func(req ai.CompletionRequest) (string, error)

	mu       sync.Mutex
	requests []ai.CompletionRequest
}

func (t *Text) Name() string {
	if t.ProviderName == "" {
		return "stub"
	}
	return t.ProviderName
}

func (t *Text) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", ai.ProviderError(t.Name(), 0, "", err)
	}
	if t.Respond != nil {
		return t.Respond(req)
	}
	return t.Response, t.Err
}

func (t *Text) Requests() []ai.CompletionRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ai.CompletionRequest(nil), t.requests...)
}

type Transcription struct {
	ProviderName string
	Response     *ai.RawTranscript
	Err          error

	mu    sync.Mutex
	calls int
}

func (t *Transcription) Name() string {
	if t.ProviderName == "" {
		return "stub"
	}
	return t.ProviderName
}

func (t *Transcription) Transcribe(_ context.Context, _ ai.TranscriptionRequest) (*ai.RawTranscript, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return t.Response, t.Err
}

func (t *Transcription) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Vision returns fixed detections; Err fails every call.
type Vision struct {
	Faces   []ai.FaceObservation
	Objects []ai.DetectedObject
	Texts   []ai.TextBlock
	Err     error
}

func (v *Vision) Name() string { return "stub" }

func (v *Vision) DetectFaces(context.Context, []byte) ([]ai.FaceObservation, error) {
	return v.Faces, v.Err
}

func (v *Vision) DetectObjects(context.Context, []byte) ([]ai.DetectedObject, error) {
	return v.Objects, v.Err
}

func (v *Vision) DetectText(context.Context, []byte) ([]ai.TextBlock, error) {
	return v.Texts, v.Err
}

type Speech struct {
	Audio    []byte
	MIMEType string
	Err      error
}

func (s *Speech) Name() string { return "stub" }

func (s *Speech) Synthesize(context.Context, string, string) ([]byte, string, error) {
	return s.Audio, s.MIMEType, s.Err
}
