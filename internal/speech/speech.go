// Package speech reads interview questions aloud on a best-effort basis.
package speech

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/logger"
	"github.com/spigell/interview-proctor/internal/media"
)

const (
	component = "speech"

	placeholderLength     = 500 * time.Millisecond
	placeholderSampleRate = 16000
)

type Audio struct {
	Data     []byte `json:"-" yaml:"-"`
	MIMEType string `json:"mimeType" yaml:"mimeType"`
	// Placeholder is set when Data is silence standing in for failed synthesis.
	Placeholder bool `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// Placeholder is 500ms of 16-bit mono silence.
func Placeholder() Audio {
	return Audio{
		Data:        media.SilentWAV(placeholderLength, placeholderSampleRate),
		MIMEType:    "audio/wav",
		Placeholder: true,
	}
}

type Synthesizer struct {
	provider ai.SpeechProvider
	voice    string
	timeout  time.Duration
	logger   *zap.Logger
}

func New(provider ai.SpeechProvider, voice string, timeout time.Duration, log *zap.Logger) *Synthesizer {
	return &Synthesizer{provider: provider, voice: voice, timeout: timeout, logger: logger.ForComponent(log, component)}
}

// Synthesize never fails: any provider problem yields the silent placeholder.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) Audio {
	if s.provider == nil {
		s.logger.Debug("speech provider is not configured, returning placeholder")
		return Placeholder()
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	data, mimeType, err := s.provider.Synthesize(ctx, text, s.voice)
	if err != nil {
		s.logger.Warn("speech synthesis failed, returning placeholder",
			zap.String(logger.FieldProvider, s.provider.Name()),
			zap.Error(err),
		)
		return Placeholder()
	}
	if len(data) == 0 {
		s.logger.Warn("speech provider returned no audio, returning placeholder",
			zap.String(logger.FieldProvider, s.provider.Name()))
		return Placeholder()
	}
	if mimeType == "" {
		mimeType = media.DetectMIME("", data)
	}

	return Audio{Data: data, MIMEType: mimeType}
}
