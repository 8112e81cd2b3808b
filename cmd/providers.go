package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/ai/gemini"
	"github.com/spigell/interview-proctor/internal/ai/whisper"
	"github.com/spigell/interview-proctor/internal/analysis"
	"github.com/spigell/interview-proctor/internal/assessment"
	"github.com/spigell/interview-proctor/internal/config"
	"github.com/spigell/interview-proctor/internal/followup"
	"github.com/spigell/interview-proctor/internal/logger"
	"github.com/spigell/interview-proctor/internal/media"
	"github.com/spigell/interview-proctor/internal/pipeline"
	"github.com/spigell/interview-proctor/internal/proctoring"
	"github.com/spigell/interview-proctor/internal/secrets"
	"github.com/spigell/interview-proctor/internal/speech"
	"github.com/spigell/interview-proctor/internal/transcription"
)

// providers resolves configured backends. A backend whose credentials are
// missing stays nil, which every component treats as unconfigured.
type providers struct {
	cfg    *config.Config
	logger *zap.Logger

	gemini     *gemini.Client
	geminiDone bool
}

func newProviders(cfg *config.Config, log *zap.Logger) *providers {
	return &providers{cfg: cfg, logger: log}
}

func (p *providers) geminiClient(ctx context.Context) *gemini.Client {
	if p.geminiDone {
		return p.gemini
	}
	p.geminiDone = true

	gc := p.cfg.Providers.Gemini
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gc.APIKey,
		File:  gc.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		p.logger.Warn("gemini is not configured",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or providers.gemini.api-key-file"),
		)
		return nil
	}

	client, err := gemini.NewClient(ctx, apiKey, gc.MaxRetries, gc.MaxLogLength,
		logger.WithCommonFields(p.logger, "gemini", gc.Model))
	if err != nil {
		p.logger.Warn("creating gemini client", zap.Error(err))
		return nil
	}
	p.gemini = client
	return client
}

func (p *providers) whisper() ai.TranscriptionProvider {
	wc := p.cfg.Providers.Whisper
	token, err := secrets.Load(secrets.Source{
		Name:  "whisper api key",
		Value: wc.APIKey,
		File:  wc.APIKeyFile,
		Env:   "WHISPER_API_KEY",
	})
	if err != nil {
		p.logger.Warn("whisper is not configured",
			zap.Error(err),
			zap.String("hint", "set WHISPER_API_KEY, WHISPER_API_KEY_FILE or providers.whisper.api-key-file"),
		)
		return nil
	}
	return whisper.New(wc.BaseURL, token, wc.Model, wc.Timeout, logger.WithCommonFields(p.logger, "whisper", wc.Model))
}

func (p *providers) transcription(ctx context.Context, name string) ai.TranscriptionProvider {
	switch name {
	case config.ProviderWhisper:
		if w := p.whisper(); w != nil {
			return w
		}
	case config.ProviderGemini:
		if client := p.geminiClient(ctx); client != nil {
			return gemini.NewTranscriber(client, p.cfg.Providers.Gemini.Model)
		}
	}
	return nil
}

func (p *providers) text(ctx context.Context) ai.TextProvider {
	if p.cfg.Generation.Provider != config.ProviderGemini {
		return nil
	}
	if client := p.geminiClient(ctx); client != nil {
		return gemini.NewGenerator(client, p.cfg.Providers.Gemini.Model)
	}
	return nil
}

func (p *providers) vision(ctx context.Context) ai.VisionProvider {
	if p.cfg.Vision.Provider != config.ProviderGemini {
		return nil
	}
	if client := p.geminiClient(ctx); client != nil {
		return gemini.NewVision(client, p.cfg.Providers.Gemini.VisionModel)
	}
	return nil
}

func (p *providers) speech(ctx context.Context) ai.SpeechProvider {
	if p.cfg.Speech.Provider != config.ProviderGemini {
		return nil
	}
	if client := p.geminiClient(ctx); client != nil {
		return gemini.NewSpeaker(client, p.cfg.Providers.Gemini.SpeechModel)
	}
	return nil
}

func newTranscriber(ctx context.Context, p *providers) *transcription.Adapter {
	tc := p.cfg.Transcription
	primary := p.transcription(ctx, tc.Provider)

	var fallback ai.TranscriptionProvider
	if tc.Fallback != config.FallbackDegraded && tc.Fallback != tc.Provider {
		fallback = p.transcription(ctx, tc.Fallback)
		if fallback == nil {
			p.logger.Warn("transcription fallback is not configured, using degraded strategy",
				zap.String("fallback", tc.Fallback))
		}
	}
	if primary == nil && fallback != nil {
		primary, fallback = fallback, nil
	}

	return transcription.New(primary, fallback,
		media.HeaderDuration{Default: tc.DefaultDuration},
		transcription.Options{
			MinBytes: tc.MinBytes,
			MaxBytes: tc.MaxBytes,
			Language: tc.Language,
			Formats:  tc.Formats,
			Timeout:  p.cfg.Timeouts.Provider,
		},
		p.logger,
	)
}

func newAggregator(ctx context.Context, p *providers) *assessment.Aggregator {
	g := p.cfg.Generation
	return assessment.New(p.text(ctx), assessment.Options{
		MaxTokens:   g.MaxTokens * 2,
		Temperature: g.AnalysisTemperature,
		Timeout:     p.cfg.Timeouts.Provider,
	}, p.logger)
}

func newSynthesizer(ctx context.Context, p *providers) *speech.Synthesizer {
	return speech.New(p.speech(ctx), p.cfg.Speech.Voice, p.cfg.Timeouts.Provider, p.logger)
}

// buildPipeline wires every component from the configuration.
func buildPipeline(ctx context.Context, cfg *config.Config, log *zap.Logger) *pipeline.Orchestrator {
	p := newProviders(cfg, log)
	g := cfg.Generation
	text := p.text(ctx)

	o := pipeline.New(pipeline.Deps{
		Transcriber: newTranscriber(ctx, p),
		Analyzer: analysis.New(text, analysis.Options{
			MaxTokens:   g.MaxTokens,
			Temperature: g.AnalysisTemperature,
			Timeout:     cfg.Timeouts.Provider,
		}, log),
		FollowUps: followup.New(text, followup.Options{
			MaxTokens:   g.MaxTokens,
			Temperature: g.FollowUpTemperature,
			Timeout:     cfg.Timeouts.Provider,
		}, log),
		Aggregator: newAggregator(ctx, p),
		Inspector:  proctoring.NewInspector(p.vision(ctx), cfg.Timeouts.Provider, log),
		Speaker:    newSynthesizer(ctx, p),
		Logger:     log,
	})

	log.Debug("pipeline ready", zap.String("summary", describe(cfg)))
	return o
}

func describe(cfg *config.Config) string {
	return fmt.Sprintf("transcription=%s fallback=%s generation=%s vision=%s speech=%s",
		cfg.Transcription.Provider, cfg.Transcription.Fallback,
		cfg.Generation.Provider, cfg.Vision.Provider, cfg.Speech.Provider)
}
