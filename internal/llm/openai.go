package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/chorus/internal/model"
)

// OpenAIProvider calls an OpenAI-compatible chat completions endpoint.
// The same type serves OpenAI and xAI.
type OpenAIProvider struct {
	name         model.ProviderName
	label        string // Vendor name used in error messages
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewOpenAIProvider creates the OpenAI adapter. An empty baseURL selects the public API.
func NewOpenAIProvider(baseURL string, client *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		name:         model.ProviderOpenAI,
		label:        "OpenAI",
		baseURL:      baseURLOrDefault(baseURL, OpenAIBaseURL),
		defaultModel: DefaultOpenAIModel,
		httpClient:   httpClientOrDefault(client),
	}
}

// NewXAIProvider creates the xAI adapter, which speaks the OpenAI wire format
func NewXAIProvider(baseURL string, client *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		name:         model.ProviderXAI,
		label:        "xAI",
		baseURL:      baseURLOrDefault(baseURL, XAIBaseURL),
		defaultModel: DefaultXAIModel,
		httpClient:   httpClientOrDefault(client),
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() model.ProviderName {
	return p.name
}

// DefaultModel returns the model used when a request names none
func (p *OpenAIProvider) DefaultModel() string {
	return p.defaultModel
}

// Call sends one chat completion
func (p *OpenAIProvider) Call(ctx context.Context, req model.ProviderRequest, apiKey string) model.ProviderAnswer {
	modelName := pickModel(req.Model, p.defaultModel)
	text, err := p.complete(ctx, p.chatRequest(req, modelName), strings.TrimSpace(apiKey))
	return answer(p.name, modelName, text, err)
}

func (p *OpenAIProvider) chatRequest(req model.ProviderRequest, modelName string) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: messages,
	}

	maxTokens := pickMaxTokens(req.MaxTokens)
	if isReasoningModel(modelName) {
		// Reasoning families reject max_tokens and fix temperature at 1
		chatReq.MaxCompletionTokens = maxTokens
	} else {
		chatReq.MaxTokens = maxTokens
		chatReq.Temperature = wireTemperature(req.Temperature)
	}
	return chatReq
}

func (p *OpenAIProvider) complete(ctx context.Context, chatReq openai.ChatCompletionRequest, apiKey string) (string, error) {
	client := newOpenAIClient(apiKey, p.baseURL, p.httpClient)

	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", vendorError(p.label, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func newOpenAIClient(apiKey, baseURL string, httpClient *http.Client) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = httpClient
	return openai.NewClientWithConfig(cfg)
}

// wireTemperature converts t for go-openai, whose temperature field is
// omitted when zero. An explicit 0 is sent as the smallest positive float32.
func wireTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// isReasoningModel reports whether modelName takes max_completion_tokens
func isReasoningModel(modelName string) bool {
	m := strings.ToLower(modelName)
	for _, prefix := range []string{"gpt-5", "o1", "o3", "o4"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

// vendorError renders go-openai errors as "<Vendor> <status>: <message>"
func vendorError(label string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s %d: %s", label, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s %d: %v", label, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("%s request failed: %w", label, err)
}
