package gemini

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/media"
)

const (
	defaultSpeechModel = "gemini-2.5-flash-preview-tts"
	defaultVoice       = "Kore"
	// Gemini TTS streams 16-bit mono PCM at 24kHz unless the MIME type says otherwise.
	defaultSampleRate = 24000
)

// Speaker implements ai.SpeechProvider with a Gemini TTS model.
type Speaker struct {
	client *Client
	model  string
}

func NewSpeaker(client *Client, model string) *Speaker {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultSpeechModel
	}
	return &Speaker{client: client, model: model}
}

func (s *Speaker) Name() string { return providerName }

// Synthesize returns WAV audio for text spoken with voiceID.
func (s *Speaker) Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error) {
	if s == nil || s.client == nil {
		return nil, "", ai.Unavailable("", providerName)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", ai.InputError("", ai.ReasonEmpty, errors.New("text is empty"))
	}
	if voiceID = strings.TrimSpace(voiceID); voiceID == "" {
		voiceID = defaultVoice
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceID},
			},
		},
	}

	resp, err := s.client.generate(ctx, s.model, genai.Text(text), cfg)
	if err != nil {
		return nil, "", err
	}

	blob := responseBlob(resp)
	if blob == nil {
		return nil, "", ai.ProviderError(providerName, 0, "", errors.New("gemini api returned no audio"))
	}

	if strings.HasPrefix(strings.ToLower(blob.MIMEType), "audio/wav") {
		return blob.Data, "audio/wav", nil
	}
	return media.WrapPCM(blob.Data, sampleRate(blob.MIMEType), 1, 16), "audio/wav", nil
}

// sampleRate reads the rate parameter of a MIME type like "audio/L16;codec=pcm;rate=24000".
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return defaultSampleRate
}
