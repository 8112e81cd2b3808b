package ai

import (
	"context"
	"time"
)

// CompletionRequest is a single structured-text generation call.
type CompletionRequest struct {
	Prompt            string
	SystemInstruction string
	MaxTokens         int
	Temperature       float64
}

// TextProvider produces free-form text for a prompt.
type TextProvider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Segment is a timed piece of a transcript. AvgLogProb is nil when the
// provider does not report token log-probabilities.
type Segment struct {
	Start      time.Duration `json:"start" yaml:"start"`
	End        time.Duration `json:"end" yaml:"end"`
	Text       string        `json:"text" yaml:"text"`
	AvgLogProb *float64      `json:"avgLogProb,omitempty" yaml:"avgLogProb,omitempty"`
}

// Word is a single recognized word with timing.
type Word struct {
	Text  string        `json:"text" yaml:"text"`
	Start time.Duration `json:"start" yaml:"start"`
	End   time.Duration `json:"end" yaml:"end"`
}

// RawTranscript is what a transcription backend returns before confidence is derived.
type RawTranscript struct {
	Text         string
	LanguageCode string
	Segments     []Segment
	Words        []Word
}

// TranscriptionRequest carries the audio payload for a single transcription call.
// An empty LanguageHint asks the provider to auto-detect.
type TranscriptionRequest struct {
	Audio        []byte
	MIMEHint     string
	LanguageHint string
}

type TranscriptionProvider interface {
	Name() string
	Transcribe(ctx context.Context, req TranscriptionRequest) (*RawTranscript, error)
}

// Likelihood follows the usual vision API buckets.
type Likelihood string

const (
	LikelihoodUnknown      Likelihood = "UNKNOWN"
	LikelihoodVeryUnlikely Likelihood = "VERY_UNLIKELY"
	LikelihoodUnlikely     Likelihood = "UNLIKELY"
	LikelihoodPossible     Likelihood = "POSSIBLE"
	LikelihoodLikely       Likelihood = "LIKELY"
	LikelihoodVeryLikely   Likelihood = "VERY_LIKELY"
)

// AtLeastLikely reports whether the likelihood is LIKELY or VERY_LIKELY.
func (l Likelihood) AtLeastLikely() bool {
	return l == LikelihoodLikely || l == LikelihoodVeryLikely
}

type BoundingBox struct {
	X      float64 `json:"x" mapstructure:"x"`
	Y      float64 `json:"y" mapstructure:"y"`
	Width  float64 `json:"width" mapstructure:"width"`
	Height float64 `json:"height" mapstructure:"height"`
}

type Landmark struct {
	Type string  `json:"type" mapstructure:"type"`
	X    float64 `json:"x" mapstructure:"x"`
	Y    float64 `json:"y" mapstructure:"y"`
}

type Emotions struct {
	Joy      Likelihood `json:"joy" mapstructure:"joy"`
	Sorrow   Likelihood `json:"sorrow" mapstructure:"sorrow"`
	Anger    Likelihood `json:"anger" mapstructure:"anger"`
	Surprise Likelihood `json:"surprise" mapstructure:"surprise"`
}

// FaceObservation is one face reported by a vision backend.
type FaceObservation struct {
	Confidence             float64      `json:"confidence" mapstructure:"confidence"`
	BoundingBox            *BoundingBox `json:"boundingBox,omitempty" mapstructure:"bounding_box"`
	Landmarks              []Landmark   `json:"landmarks,omitempty" mapstructure:"landmarks"`
	Emotions               Emotions     `json:"emotions" mapstructure:"emotions"`
	HeadwearLikelihood     Likelihood   `json:"headwearLikelihood" mapstructure:"headwear"`
	BlurredLikelihood      Likelihood   `json:"blurredLikelihood" mapstructure:"blurred"`
	UnderExposedLikelihood Likelihood   `json:"underExposedLikelihood" mapstructure:"under_exposed"`
	// Fallback marks a synthetic observation produced when no vision backend answered.
	Fallback bool `json:"fallback,omitempty" mapstructure:"-"`
}

type DetectedObject struct {
	Name  string  `json:"name" mapstructure:"name"`
	Score float64 `json:"score" mapstructure:"score"`
}

type TextBlock struct {
	Description string `json:"description" mapstructure:"description"`
}

type VisionProvider interface {
	Name() string
	DetectFaces(ctx context.Context, image []byte) ([]FaceObservation, error)
	DetectObjects(ctx context.Context, image []byte) ([]DetectedObject, error)
	DetectText(ctx context.Context, image []byte) ([]TextBlock, error)
}

// SpeechProvider turns text into audio bytes of the returned MIME type.
type SpeechProvider interface {
	Name() string
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error)
}
