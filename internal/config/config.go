// Package config holds the single configuration object the pipeline is built from.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	ProviderGemini  = "gemini"
	ProviderWhisper = "whisper"
	ProviderNone    = "none"
	// FallbackDegraded re-runs the primary transcription provider without a language hint.
	FallbackDegraded = "degraded"
)

type Config struct {
	Transcription *TranscriptionConfig `mapstructure:"transcription"`
	Generation    *GenerationConfig    `mapstructure:"generation"`
	Vision        *VisionConfig        `mapstructure:"vision"`
	Speech        *SpeechConfig        `mapstructure:"speech"`
	Timeouts      *TimeoutsConfig      `mapstructure:"timeouts"`
	Providers     *ProvidersConfig     `mapstructure:"providers"`
	Inbox         *InboxConfig         `mapstructure:"inbox"`
}

type TranscriptionConfig struct {
	Provider string `mapstructure:"provider"`
	Fallback string `mapstructure:"fallback"`
	Language string `mapstructure:"language"`
	MinBytes int64  `mapstructure:"min-bytes"`
	MaxBytes int64  `mapstructure:"max-bytes"`
	// DefaultDuration is reported when the clip duration cannot be inspected.
	DefaultDuration time.Duration `mapstructure:"default-duration"`
	Formats         []string      `mapstructure:"formats"`
}

type GenerationConfig struct {
	Provider            string  `mapstructure:"provider"`
	MaxTokens           int     `mapstructure:"max-tokens"`
	FollowUpTemperature float64 `mapstructure:"followup-temperature"`
	AnalysisTemperature float64 `mapstructure:"analysis-temperature"`
}

type VisionConfig struct {
	Provider string `mapstructure:"provider"`
}

type SpeechConfig struct {
	Provider string `mapstructure:"provider"`
	Voice    string `mapstructure:"voice"`
}

type TimeoutsConfig struct {
	Provider time.Duration `mapstructure:"provider"`
}

type ProvidersConfig struct {
	Gemini  *GeminiConfig  `mapstructure:"gemini"`
	Whisper *WhisperConfig `mapstructure:"whisper"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	VisionModel  string `mapstructure:"vision-model"`
	SpeechModel  string `mapstructure:"speech-model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type WhisperConfig struct {
	BaseURL    string        `mapstructure:"base-url"`
	APIKey     string        `mapstructure:"api-key"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type InboxConfig struct {
	Dir    string `mapstructure:"dir"`
	OutDir string `mapstructure:"out-dir"`
}

// DefaultFormats lists the audio MIME types accepted for transcription.
var DefaultFormats = []string{
	"audio/webm",
	"audio/wav",
	"audio/x-wav",
	"audio/wave",
	"audio/mpeg",
	"audio/mp4",
	"audio/ogg",
	"audio/flac",
}

// Default returns a configuration with every recognized option populated.
func Default() *Config {
	return &Config{
		Transcription: &TranscriptionConfig{
			Provider:        ProviderWhisper,
			Fallback:        ProviderGemini,
			Language:        "en",
			MinBytes:        1024,
			MaxBytes:        25 << 20,
			DefaultDuration: 30 * time.Second,
			Formats:         slices.Clone(DefaultFormats),
		},
		Generation: &GenerationConfig{
			Provider:            ProviderGemini,
			MaxTokens:           1024,
			FollowUpTemperature: 0.7,
			AnalysisTemperature: 0.3,
		},
		Vision:   &VisionConfig{Provider: ProviderGemini},
		Speech:   &SpeechConfig{Provider: ProviderGemini, Voice: "Kore"},
		Timeouts: &TimeoutsConfig{Provider: 60 * time.Second},
		Providers: &ProvidersConfig{
			Gemini: &GeminiConfig{
				Model:        "gemini-2.5-flash",
				VisionModel:  "gemini-2.5-flash",
				SpeechModel:  "gemini-2.5-flash-preview-tts",
				MaxRetries:   2,
				MaxLogLength: 200,
			},
			Whisper: &WhisperConfig{
				BaseURL: "https://api.openai.com",
				Model:   "whisper-1",
				Timeout: 120 * time.Second,
			},
		},
		Inbox: &InboxConfig{Dir: "inbox", OutDir: "outbox"},
	}
}

// Normalize fills every unset section or option with its default and
// lower-cases provider names.
func (c *Config) Normalize() {
	def := Default()

	if c.Transcription == nil {
		c.Transcription = def.Transcription
	}
	t := c.Transcription
	t.Provider = normalizeName(t.Provider, def.Transcription.Provider)
	t.Fallback = normalizeName(t.Fallback, def.Transcription.Fallback)
	if t.Language == "" {
		t.Language = def.Transcription.Language
	}
	if t.MinBytes <= 0 {
		t.MinBytes = def.Transcription.MinBytes
	}
	if t.MaxBytes <= 0 {
		t.MaxBytes = def.Transcription.MaxBytes
	}
	if t.DefaultDuration <= 0 {
		t.DefaultDuration = def.Transcription.DefaultDuration
	}
	if len(t.Formats) == 0 {
		t.Formats = def.Transcription.Formats
	}

	if c.Generation == nil {
		c.Generation = def.Generation
	}
	g := c.Generation
	g.Provider = normalizeName(g.Provider, def.Generation.Provider)
	if g.MaxTokens <= 0 {
		g.MaxTokens = def.Generation.MaxTokens
	}
	if g.FollowUpTemperature <= 0 {
		g.FollowUpTemperature = def.Generation.FollowUpTemperature
	}
	if g.AnalysisTemperature <= 0 {
		g.AnalysisTemperature = def.Generation.AnalysisTemperature
	}

	if c.Vision == nil {
		c.Vision = def.Vision
	}
	c.Vision.Provider = normalizeName(c.Vision.Provider, def.Vision.Provider)

	if c.Speech == nil {
		c.Speech = def.Speech
	}
	c.Speech.Provider = normalizeName(c.Speech.Provider, def.Speech.Provider)
	if c.Speech.Voice == "" {
		c.Speech.Voice = def.Speech.Voice
	}

	if c.Timeouts == nil || c.Timeouts.Provider <= 0 {
		c.Timeouts = def.Timeouts
	}

	if c.Providers == nil {
		c.Providers = def.Providers
	}
	if c.Providers.Gemini == nil {
		c.Providers.Gemini = def.Providers.Gemini
	}
	gm := c.Providers.Gemini
	if gm.Model == "" {
		gm.Model = def.Providers.Gemini.Model
	}
	if gm.VisionModel == "" {
		gm.VisionModel = gm.Model
	}
	if gm.SpeechModel == "" {
		gm.SpeechModel = def.Providers.Gemini.SpeechModel
	}
	if gm.MaxRetries <= 0 {
		gm.MaxRetries = def.Providers.Gemini.MaxRetries
	}
	if gm.MaxLogLength <= 0 {
		gm.MaxLogLength = def.Providers.Gemini.MaxLogLength
	}

	if c.Providers.Whisper == nil {
		c.Providers.Whisper = def.Providers.Whisper
	}
	w := c.Providers.Whisper
	if w.BaseURL == "" {
		w.BaseURL = def.Providers.Whisper.BaseURL
	}
	w.BaseURL = strings.TrimRight(w.BaseURL, "/")
	if w.Model == "" {
		w.Model = def.Providers.Whisper.Model
	}
	if w.Timeout <= 0 {
		w.Timeout = def.Providers.Whisper.Timeout
	}

	if c.Inbox == nil {
		c.Inbox = def.Inbox
	}
	if c.Inbox.Dir == "" {
		c.Inbox.Dir = def.Inbox.Dir
	}
	if c.Inbox.OutDir == "" {
		c.Inbox.OutDir = def.Inbox.OutDir
	}
}

// Validate rejects provider names outside the enumerated options.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is required")
	}

	var errs []error
	check := func(key, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: unsupported value %q (allowed: %s)", key, value, strings.Join(allowed, ", ")))
		}
	}

	if c.Transcription != nil {
		check("transcription.provider", c.Transcription.Provider, ProviderWhisper, ProviderGemini)
		check("transcription.fallback", c.Transcription.Fallback, ProviderWhisper, ProviderGemini, FallbackDegraded)
		if c.Transcription.MaxBytes > 0 && c.Transcription.MinBytes >= c.Transcription.MaxBytes {
			errs = append(errs, errors.New("transcription.min-bytes must be lower than transcription.max-bytes"))
		}
	}
	if c.Generation != nil {
		check("generation.provider", c.Generation.Provider, ProviderGemini, ProviderNone)
		if c.Generation.FollowUpTemperature > 2 || c.Generation.AnalysisTemperature > 2 {
			errs = append(errs, errors.New("generation temperatures must be within [0, 2]"))
		}
	}
	if c.Vision != nil {
		check("vision.provider", c.Vision.Provider, ProviderGemini, ProviderNone)
	}
	if c.Speech != nil {
		check("speech.provider", c.Speech.Provider, ProviderGemini, ProviderNone)
	}

	return errors.Join(errs...)
}

func normalizeName(value, def string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return def
	}
	return value
}
