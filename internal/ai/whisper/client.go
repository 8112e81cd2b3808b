// Package whisper talks to OpenAI-compatible /v1/audio/transcriptions endpoints.
package whisper

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/media"
	"github.com/spigell/interview-proctor/internal/utils"
)

const (
	providerName = "whisper"

	transcriptionsPath = "/v1/audio/transcriptions"
	userAgent          = "spigell/interview-proctor"
	contentEncoding    = "gzip"
	defaultModel       = "whisper-1"
)

// Client implements ai.TranscriptionProvider. Responses are requested in
// verbose_json so every segment carries avg_logprob.
type Client struct {
	APIURL     string
	HTTPClient *http.Client
	UserAgent  string

	token  string
	model  string
	logger *zap.Logger
}

func New(baseURL, token, model string, timeout time.Duration, logger *zap.Logger) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		APIURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
		token:     token,
		model:     model,
		logger:    logger,
	}
}

func (c *Client) Name() string { return providerName }

type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		AvgLogProb float64 `json:"avg_logprob"`
	} `json:"segments"`
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (c *Client) Transcribe(ctx context.Context, req ai.TranscriptionRequest) (*ai.RawTranscript, error) {
	if len(req.Audio) == 0 {
		return nil, ai.InputError("", ai.ReasonEmpty, errors.New("audio payload is empty"))
	}

	body, contentType, err := c.buildForm(req)
	if err != nil {
		return nil, ai.ProviderError(providerName, 0, "", fmt.Errorf("build form: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+transcriptionsPath, body)
	if err != nil {
		return nil, ai.ProviderError(providerName, 0, "", err)
	}
	httpReq = c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.request(httpReq)
	if err != nil {
		return nil, ai.ProviderError(providerName, 0, "", err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, ai.ProviderError(providerName, resp.StatusCode, "", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, data)
	}

	var parsed verboseResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, ai.ParseError("", providerName, fmt.Errorf("decode verbose_json: %w", err))
	}

	return parsed.toTranscript(), nil
}

func (c *Client) buildForm(req ai.TranscriptionRequest) (io.Reader, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	part, err := w.CreateFormFile("file", "answer"+media.ExtensionFor(req.MIMEHint))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"model":           c.model,
		"response_format": "verbose_json",
	}
	if lang := strings.TrimSpace(req.LanguageHint); lang != "" {
		fields["language"] = lang
	}
	for key, val := range fields {
		if err := w.WriteField(key, val); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("timestamp_granularities[]", "segment"); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("timestamp_granularities[]", "word"); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &b, w.FormDataContentType(), nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("Accept", "application/json")

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(reader)
}

// statusError maps an upstream HTTP failure onto the taxonomy.
func statusError(resp *http.Response, data []byte) error {
	message := strings.TrimSpace(string(data))
	var parsed errorResponse
	if json.Unmarshal(data, &parsed) == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}
	err := fmt.Errorf("bad status: %s: %s", resp.Status, utils.TruncateForLog(message, 200))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ai.ProviderError(providerName, resp.StatusCode, ai.ReasonAuthInvalid, err)
	case http.StatusRequestEntityTooLarge:
		return &ai.Error{Kind: ai.KindInput, Reason: ai.ReasonTooLarge, Provider: providerName, Status: resp.StatusCode, Err: err}
	case http.StatusUnsupportedMediaType:
		return &ai.Error{Kind: ai.KindInput, Reason: ai.ReasonUnsupportedFormat, Provider: providerName, Status: resp.StatusCode, Err: err}
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(message), "format") {
			return &ai.Error{Kind: ai.KindInput, Reason: ai.ReasonUnsupportedFormat, Provider: providerName, Status: resp.StatusCode, Err: err}
		}
		return ai.ProviderError(providerName, resp.StatusCode, "", err)
	case http.StatusTooManyRequests:
		return ai.ProviderError(providerName, resp.StatusCode, ai.ReasonQuota, err)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ai.ProviderError(providerName, resp.StatusCode, ai.ReasonTimeout, err)
	default:
		return ai.ProviderError(providerName, resp.StatusCode, "", err)
	}
}

func (r *verboseResponse) toTranscript() *ai.RawTranscript {
	out := &ai.RawTranscript{
		Text:         strings.TrimSpace(r.Text),
		LanguageCode: languageCode(r.Language),
	}

	for _, seg := range r.Segments {
		logProb := seg.AvgLogProb
		out.Segments = append(out.Segments, ai.Segment{
			Start:      seconds(seg.Start),
			End:        seconds(seg.End),
			Text:       strings.TrimSpace(seg.Text),
			AvgLogProb: &logProb,
		})
	}
	for _, w := range r.Words {
		out.Words = append(out.Words, ai.Word{
			Text:  strings.TrimSpace(w.Word),
			Start: seconds(w.Start),
			End:   seconds(w.End),
		})
	}

	return out
}

var languageCodes = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"russian":    "ru",
	"portuguese": "pt",
	"italian":    "it",
	"hindi":      "hi",
	"japanese":   "ja",
	"chinese":    "zh",
}

// languageCode maps the full language names whisper reports onto ISO 639-1 codes.
func languageCode(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if code, ok := languageCodes[language]; ok {
		return code
	}
	return language
}

func seconds(v float64) time.Duration {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
