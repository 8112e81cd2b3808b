package gemini

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/utils"
)

const defaultModel = "gemini-2.5-flash"

// Generator implements ai.TextProvider on top of a Gemini model.
type Generator struct {
	client *Client
	model  string
}

func NewGenerator(client *Client, model string) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Generator{client: client, model: model}
}

func (g *Generator) Name() string { return providerName }

// Complete sends the prompt with its system instruction and returns the joined text parts.
func (g *Generator) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	if g == nil || g.client == nil {
		return "", ai.Unavailable("", providerName)
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", ai.InputError("", ai.ReasonEmpty, errors.New("prompt must not be empty"))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if system := strings.TrimSpace(req.SystemInstruction); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	g.client.logger.Debug("gemini generate content request",
		zap.String("model", g.model),
		zap.Float64("temperature", req.Temperature),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.client.maxLogLen)),
	)

	resp, err := g.client.generate(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}

	output := responseText(resp)
	if output == "" {
		return "", ai.ProviderError(providerName, 0, "", errors.New("gemini api returned empty response"))
	}

	g.client.logger.Debug("gemini generate content response",
		zap.String("model", g.model),
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.client.maxLogLen)),
	)

	return output, nil
}
