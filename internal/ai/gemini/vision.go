package gemini

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/ai/parse"
)

var (
	//go:embed prompts/faces.md
	facesPrompt string
	//go:embed prompts/objects.md
	objectsPrompt string
	//go:embed prompts/text.md
	textPrompt string
)

// Vision implements ai.VisionProvider with JSON-answering multimodal prompts.
type Vision struct {
	client *Client
	model  string
}

func NewVision(client *Client, model string) *Vision {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Vision{client: client, model: model}
}

func (v *Vision) Name() string { return providerName }

func (v *Vision) DetectFaces(ctx context.Context, image []byte) ([]ai.FaceObservation, error) {
	var out struct {
		Faces []ai.FaceObservation `mapstructure:"faces"`
	}
	if err := v.ask(ctx, facesPrompt, image, &out); err != nil {
		return nil, err
	}
	for i := range out.Faces {
		normalizeFace(&out.Faces[i])
	}
	return out.Faces, nil
}

func (v *Vision) DetectObjects(ctx context.Context, image []byte) ([]ai.DetectedObject, error) {
	var out struct {
		Objects []ai.DetectedObject `mapstructure:"objects"`
	}
	if err := v.ask(ctx, objectsPrompt, image, &out); err != nil {
		return nil, err
	}
	return out.Objects, nil
}

func (v *Vision) DetectText(ctx context.Context, image []byte) ([]ai.TextBlock, error) {
	var out struct {
		Blocks []ai.TextBlock `mapstructure:"blocks"`
	}
	if err := v.ask(ctx, textPrompt, image, &out); err != nil {
		return nil, err
	}
	blocks := out.Blocks[:0]
	for _, block := range out.Blocks {
		if strings.TrimSpace(block.Description) != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

func (v *Vision) ask(ctx context.Context, prompt string, image []byte, out any) error {
	if v == nil || v.client == nil {
		return ai.Unavailable("", providerName)
	}
	if len(image) == 0 {
		return ai.InputError("", ai.ReasonEmpty, errors.New("image is empty"))
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, http.DetectContentType(image)),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0)),
		ResponseMIMEType: "application/json",
	}

	resp, err := v.client.generate(ctx, v.model, contents, cfg)
	if err != nil {
		return err
	}

	raw := responseText(resp)
	v.client.logger.Debug("gemini vision response",
		zap.String("model", v.model),
		zap.Int("response_length", len(raw)),
	)

	data, err := parse.Object(raw)
	if err != nil {
		return ai.ParseError("", providerName, err)
	}
	if err := parse.Decode(data, out); err != nil {
		return ai.ParseError("", providerName, err)
	}
	return nil
}

func normalizeFace(face *ai.FaceObservation) {
	face.HeadwearLikelihood = normalizeLikelihood(face.HeadwearLikelihood)
	face.BlurredLikelihood = normalizeLikelihood(face.BlurredLikelihood)
	face.UnderExposedLikelihood = normalizeLikelihood(face.UnderExposedLikelihood)
	face.Emotions.Joy = normalizeLikelihood(face.Emotions.Joy)
	face.Emotions.Sorrow = normalizeLikelihood(face.Emotions.Sorrow)
	face.Emotions.Anger = normalizeLikelihood(face.Emotions.Anger)
	face.Emotions.Surprise = normalizeLikelihood(face.Emotions.Surprise)
}

func normalizeLikelihood(l ai.Likelihood) ai.Likelihood {
	value := strings.ToUpper(strings.TrimSpace(string(l)))
	value = strings.ReplaceAll(value, " ", "_")
	switch ai.Likelihood(value) {
	case ai.LikelihoodVeryUnlikely, ai.LikelihoodUnlikely, ai.LikelihoodPossible, ai.LikelihoodLikely, ai.LikelihoodVeryLikely:
		return ai.Likelihood(value)
	default:
		return ai.LikelihoodUnknown
	}
}
