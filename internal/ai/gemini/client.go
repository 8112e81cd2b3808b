package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/utils"
)

const (
	providerName = "gemini"

	defaultMaxRetries = 2
	// maxQuotaDelay is the longest server-suggested delay worth waiting for.
	maxQuotaDelay = 10 * time.Second
)

var (
	wait = utils.WaitFor

	retryDelayPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*(s|sec|secs|second|seconds)\b`)
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client is the shared transport behind every Gemini-backed capability.
type Client struct {
	models     modelsAPI
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, maxRetries, maxLogLen int, logger *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, maxRetries, maxLogLen, logger), nil
}

func newClient(models modelsAPI, maxRetries, maxLogLen int, logger *zap.Logger) *Client {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if maxLogLen <= 0 {
		maxLogLen = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{models: models, maxRetries: maxRetries, maxLogLen: maxLogLen, logger: logger}
}

// generate calls the model, retrying transient failures. Errors are
// returned already classified into the ai taxonomy.
func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if c == nil || c.models == nil {
		return nil, ai.Unavailable("", providerName)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == c.maxRetries {
			break
		}

		c.logger.Warn("gemini request failed, retrying",
			zap.String("model", model),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return nil, classify(err)
		}
	}

	return nil, classify(lastErr)
}

// retryDelay decides whether err is transient and how long to back off.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	backoff := time.Duration(attempt) * time.Second

	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		delay, found := parseRetryDelay(apiErr.Message)
		if !found {
			return backoff, true
		}
		if delay > maxQuotaDelay {
			return 0, false
		}
		return delay, true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}

func parseRetryDelay(message string) (time.Duration, bool) {
	match := retryDelayPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiPtr *genai.APIError
	if errors.As(err, &apiPtr) && apiPtr != nil {
		return *apiPtr, true
	}
	return genai.APIError{}, false
}

func classify(err error) error {
	if err == nil {
		return nil
	}

	apiErr, ok := asAPIError(err)
	if !ok {
		return ai.ProviderError(providerName, 0, "", err)
	}

	var reason ai.Reason
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		reason = ai.ReasonAuthInvalid
	case http.StatusTooManyRequests:
		reason = ai.ReasonQuota
	case http.StatusRequestEntityTooLarge:
		return &ai.Error{Kind: ai.KindInput, Reason: ai.ReasonTooLarge, Provider: providerName, Status: apiErr.Code, Err: err}
	case http.StatusGatewayTimeout:
		reason = ai.ReasonTimeout
	}
	if apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "api key") {
		reason = ai.ReasonAuthInvalid
	}

	return ai.ProviderError(providerName, apiErr.Code, reason, err)
}

// responseText joins all textual parts of every candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// responseBlob returns the first inline data part.
func responseBlob(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}
