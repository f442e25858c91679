package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// SynthesizerOptions configures the delegated meta-summary backend
type SynthesizerOptions struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// OpenAISynthesizer asks an OpenAI model for a JSON object summary
type OpenAISynthesizer struct {
	client *openai.Client
	opts   SynthesizerOptions
}

// NewOpenAISynthesizer creates a synthesizer bound to apiKey
func NewOpenAISynthesizer(apiKey string, httpClient *http.Client, opts SynthesizerOptions) *OpenAISynthesizer {
	opts.BaseURL = baseURLOrDefault(opts.BaseURL, OpenAIBaseURL)
	opts.Model = pickModel(opts.Model, DefaultOpenAIModel)
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 900
	}
	return &OpenAISynthesizer{
		client: newOpenAIClient(apiKey, opts.BaseURL, httpClientOrDefault(httpClient)),
		opts:   opts,
	}
}

// Complete returns the raw model output for the given system and user content
func (s *OpenAISynthesizer) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: s.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if isReasoningModel(s.opts.Model) {
		req.MaxCompletionTokens = s.opts.MaxTokens
	} else {
		req.MaxTokens = s.opts.MaxTokens
		req.Temperature = wireTemperature(s.opts.Temperature)
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("meta-summary call: %w", vendorError("OpenAI", err))
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
