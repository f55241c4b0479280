// Package openai implements disease extraction on an OpenAI-compatible
// chat-completion API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pipelinex/trialscope/internal/domain"
	"github.com/pipelinex/trialscope/internal/metrics"
)

const systemPrompt = `You are an expert in parsing clinical trial data. Your task is to extract ONLY the primary disease or specific clinical condition being studied from the provided information.

Follow these steps:
1. First, analyze the "Condition Text". This field may contain multiple terms. Identify and extract the specific disease. For example, if the text is "Mpox (Monkeypox), Vaccination, Immunogenicity, Safety, Infants, Children", you must extract only "Mpox (Monkeypox)". Ignore general concepts like "Vaccination" or "Safety", and ignore patient populations like "Infants" or "Children".

2. If the "Condition Text" does NOT contain a specific disease (e.g., it only says "Neonate", "Healthy Volunteers", "Safety Study"), then you MUST analyze the "Brief Title" and "Brief Summary" to find the actual disease being studied. The title or summary will often contain the specific disease.

3. If, after analyzing all fields, you cannot find a specific disease, return an empty string for the disease name.

Respond with a JSON object of the form {"diseaseName": "<name or empty string>"}.`

// Extractor extracts disease names via an OpenAI-compatible chat API.
type Extractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the extraction provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewExtractor creates an OpenAI-compatible disease extractor.
func NewExtractor(cfg *Config) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Extractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// ExtractDisease implements domain.DiseaseExtractor. Returns the
// extracted disease name, or an empty string when no specific disease
// is named.
func (e *Extractor) ExtractDisease(ctx context.Context, in domain.ExtractionInput) (string, error) {
	userPrompt := fmt.Sprintf(
		"Condition Text: %s\nBrief Title: %s\nBrief Summary: %s",
		in.ConditionText, in.BriefTitle, in.BriefSummary,
	)

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()

	resp, err := e.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
		metrics.ExtractionErrorsTotal.WithLabelValues(e.model, "api_error").Inc()
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
		metrics.ExtractionErrorsTotal.WithLabelValues(e.model, "empty_response").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrExtractionProviderError)
	}

	var parsed struct {
		DiseaseName string `json:"diseaseName"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
		metrics.ExtractionErrorsTotal.WithLabelValues(e.model, "bad_json").Inc()
		return "", fmt.Errorf("parse extraction response: %w", domain.ErrExtractionProviderError)
	}

	metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "success").Inc()
	metrics.ExtractionRequestDuration.WithLabelValues(e.model).Observe(duration.Seconds())

	return parsed.DiseaseName, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Extractor) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrExtractionProviderError so the
// pipeline can degrade per record without inspecting provider types.
func parseAPIError(err error) error {
	wrap := domain.ErrExtractionProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("extraction API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("extraction API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("extraction request failed: %w", wrap)
}
