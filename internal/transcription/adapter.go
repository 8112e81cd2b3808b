// Package transcription turns an answer's audio clip into a scored transcript.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/logger"
	"github.com/spigell/interview-proctor/internal/media"
)

const component = "transcription"

// Transcript is immutable once returned.
type Transcript struct {
	Text         string        `json:"text" yaml:"text"`
	LanguageCode string        `json:"languageCode" yaml:"languageCode"`
	Confidence   float64       `json:"confidence" yaml:"confidence"`
	Segments     []ai.Segment  `json:"segments" yaml:"segments"`
	Words        []ai.Word     `json:"words" yaml:"words"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	// DurationApproximate is set when Duration is the configured default rather than inspected.
	DurationApproximate bool   `json:"durationApproximate,omitempty" yaml:"durationApproximate,omitempty"`
	Provider            string `json:"provider" yaml:"provider"`
	Fallback            bool   `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

type Options struct {
	// MinBytes: clips at or below this size are rejected as empty.
	MinBytes int64
	MaxBytes int64
	Language string
	// Formats lists accepted MIME types; empty accepts everything.
	Formats []string
	// Timeout bounds each provider call.
	Timeout time.Duration
}

// Adapter calls the primary provider and, on any provider failure, makes
// exactly one fallback attempt. A nil fallback means the degraded strategy:
// the primary provider again without a language hint.
type Adapter struct {
	primary   ai.TranscriptionProvider
	fallback  ai.TranscriptionProvider
	durations media.DurationLookup
	opts      Options
	logger    *zap.Logger
}

func New(primary, fallback ai.TranscriptionProvider, durations media.DurationLookup, opts Options, log *zap.Logger) *Adapter {
	if durations == nil {
		durations = media.HeaderDuration{Default: 30 * time.Second}
	}
	return &Adapter{
		primary:   primary,
		fallback:  fallback,
		durations: durations,
		opts:      opts,
		logger:    logger.ForComponent(log, component),
	}
}

func (a *Adapter) Transcribe(ctx context.Context, clip *media.AudioClip) (*Transcript, error) {
	if clip == nil {
		return nil, ai.InputError(component, ai.ReasonEmpty, errors.New("audio clip is missing"))
	}

	size := clip.SizeBytes
	if size == 0 {
		size = int64(len(clip.Data))
	}
	if size <= a.opts.MinBytes {
		return nil, ai.InputError(component, ai.ReasonEmpty,
			fmt.Errorf("audio clip has %d bytes, minimum is more than %d", size, a.opts.MinBytes))
	}
	if a.opts.MaxBytes > 0 && size > a.opts.MaxBytes {
		return nil, ai.InputError(component, ai.ReasonTooLarge,
			fmt.Errorf("audio clip has %d bytes, maximum is %d", size, a.opts.MaxBytes))
	}

	data, err := clip.Bytes()
	if err != nil {
		return nil, ai.InputError(component, "", err)
	}
	if int64(len(data)) <= a.opts.MinBytes {
		return nil, ai.InputError(component, ai.ReasonEmpty, fmt.Errorf("audio clip has %d bytes", len(data)))
	}

	mimeType := clip.MIMEHint
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = media.DetectMIME(clip.Path, data)
	}
	if len(a.opts.Formats) > 0 && !slices.Contains(a.opts.Formats, mimeType) {
		return nil, ai.InputError(component, ai.ReasonUnsupportedFormat, fmt.Errorf("audio format %q is not supported", mimeType))
	}

	req := ai.TranscriptionRequest{Audio: data, MIMEHint: mimeType, LanguageHint: a.opts.Language}

	raw, provider, err := a.attempt(ctx, a.primary, req)
	fallback := false
	if err != nil {
		if ctx.Err() != nil {
			return nil, ai.WithComponent(component, err)
		}
		raw, provider, err = a.retryWithFallback(ctx, req, err)
		if err != nil {
			return nil, err
		}
		fallback = true
	}

	duration, exact := a.durations.Duration(clip, data)

	transcript := &Transcript{
		Text:                raw.Text,
		LanguageCode:        raw.LanguageCode,
		Confidence:          Confidence(raw.Text, raw.Segments),
		Segments:            raw.Segments,
		Words:               raw.Words,
		Duration:            duration,
		DurationApproximate: !exact,
		Provider:            provider,
		Fallback:            fallback,
	}
	if transcript.LanguageCode == "" {
		transcript.LanguageCode = a.opts.Language
	}

	a.logger.Info("transcribed answer",
		zap.String("provider", provider),
		zap.Bool("fallback", fallback),
		zap.Int("segments", len(raw.Segments)),
		zap.Float64("confidence", transcript.Confidence),
		zap.Duration("duration", duration),
	)

	return transcript, nil
}

// retryWithFallback makes the single fallback attempt. When it also fails the
// original error is returned, never the fallback's own.
func (a *Adapter) retryWithFallback(ctx context.Context, req ai.TranscriptionRequest, original error) (*ai.RawTranscript, string, error) {
	fallback := a.fallback
	if fallback == nil {
		fallback = a.primary
		req.LanguageHint = ""
	}

	a.logger.Warn("primary transcription failed, trying fallback",
		zap.String("fallback", providerName(fallback)),
		zap.Error(original),
	)

	raw, provider, err := a.attempt(ctx, fallback, req)
	if err == nil {
		return raw, provider, nil
	}

	a.logger.Warn("fallback transcription failed", zap.Error(err))

	return nil, "", ai.WithComponent(component, fmt.Errorf(
		"transcribe with %s (fallback %s also failed: %v): %w",
		providerName(a.primary), providerName(fallback), err, original,
	))
}

func (a *Adapter) attempt(ctx context.Context, provider ai.TranscriptionProvider, req ai.TranscriptionRequest) (*ai.RawTranscript, string, error) {
	if provider == nil {
		return nil, "", ai.Unavailable(component, "")
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	raw, err := provider.Transcribe(ctx, req)
	if err != nil {
		return nil, provider.Name(), err
	}
	if raw == nil {
		return nil, provider.Name(), ai.ProviderError(provider.Name(), 0, "", errors.New("provider returned no transcript"))
	}
	return raw, provider.Name(), nil
}

func providerName(p ai.TranscriptionProvider) string {
	if p == nil {
		return "none"
	}
	return p.Name()
}
