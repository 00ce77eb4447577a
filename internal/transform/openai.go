package transform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/mkandasamy/deedflow/internal/model"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI transformer.
type OpenAIConfig struct {
	APIKey     string
	Model      string        // default "gpt-4o-mini"
	RateLimit  int           // requests per minute (default 60)
	Timeout    time.Duration // HTTP timeout (default 120s)
	BaseURL    string        // optional (tests)
	HTTPClient *http.Client  // optional (tests)
}

// OpenAI implements Transformer using the official OpenAI SDK.
type OpenAI struct {
	model   string
	limiter *RateLimiter
	client  openai.Client
}

var _ Transformer = (*OpenAI)(nil)

// NewOpenAI creates a new OpenAI transformer.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 60
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		model:   cfg.Model,
		limiter: NewRateLimiter(cfg.RateLimit),
		client:  openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAI) Name() string { return OpenAIName }

// Limiter exposes the rate limiter, for status reporting.
func (c *OpenAI) Limiter() *RateLimiter { return c.limiter }

// Transform runs one staged model call. The limiter is consulted before
// the request; a 429 from the provider drains the bucket.
func (c *OpenAI) Transform(ctx context.Context, req Request) (string, error) {
	if !req.Mode.Valid() {
		return "", &model.TransformationError{Mode: string(req.Mode), Reason: "unknown mode"}
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", &model.TransformationError{Mode: string(req.Mode), Reason: "empty input text"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &model.TransformationError{Mode: string(req.Mode), Reason: "rate limiter wait cancelled", Err: err}
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
	}

	switch req.Mode {
	case ModeLegalEnglish:
		params.Messages = []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(legalEnglishSystem),
			openai.UserMessage(legalEnglishPrompt(req.Text)),
		}
		params.Temperature = openai.Float(legalEnglishTemperature)
	case ModeSimpleEnglish:
		params.Messages = []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(simpleEnglishSystem),
			openai.UserMessage(simpleEnglishPrompt(req.Text, req.PageNumber)),
		}
		params.Temperature = openai.Float(simpleEnglishTemperature)
	case ModeSummary:
		params.Messages = []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarySystem),
			openai.UserMessage(summaryPrompt(req.Text)),
		}
		params.Temperature = openai.Float(summaryTemperature)
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", c.mapError(req.Mode, err)
	}
	if len(resp.Choices) == 0 {
		return "", &model.TransformationError{Mode: string(req.Mode), Reason: "no choices in response"}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &model.TransformationError{Mode: string(req.Mode), Reason: "empty completion"}
	}

	if req.Mode == ModeSummary {
		summary, err := parseSummary(content)
		if err != nil {
			return "", &model.TransformationError{Mode: string(req.Mode), Reason: "invalid summary payload", Err: err}
		}
		return summary, nil
	}

	return content, nil
}

// mapError converts SDK errors into the pipeline's error type, noting 429s
// on the limiter.
func (c *OpenAI) mapError(mode Mode, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			c.limiter.Record429()
		}
		return &model.TransformationError{
			Mode:   string(mode),
			Reason: fmt.Sprintf("OpenAI error (status %d)", apiErr.StatusCode),
			Err:    err,
		}
	}
	return &model.TransformationError{Mode: string(mode), Reason: "request failed", Err: err}
}
