package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ppiankov/chorus/internal/model"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider calls the Anthropic Messages API
type AnthropicProvider struct {
	baseURL    string
	httpClient *http.Client
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates the Anthropic adapter. An empty baseURL selects the public API.
func NewAnthropicProvider(baseURL string, client *http.Client) *AnthropicProvider {
	return &AnthropicProvider{
		baseURL:    baseURLOrDefault(baseURL, AnthropicBaseURL),
		httpClient: httpClientOrDefault(client),
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() model.ProviderName {
	return model.ProviderAnthropic
}

// DefaultModel returns the model used when a request names none
func (p *AnthropicProvider) DefaultModel() string {
	return DefaultAnthropicModel
}

// Call sends one Messages API request
func (p *AnthropicProvider) Call(ctx context.Context, req model.ProviderRequest, apiKey string) model.ProviderAnswer {
	modelName := pickModel(req.Model, DefaultAnthropicModel)

	apiReq := anthropicRequest{
		Model:       modelName,
		MaxTokens:   pickMaxTokens(req.MaxTokens),
		System:      strings.TrimSpace(req.SystemPrompt),
		Temperature: req.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: strings.TrimSpace(req.Prompt)},
		},
	}

	var resp anthropicResponse
	err := postJSON(ctx, p.httpClient, vendorCall{
		vendor:   "Anthropic",
		endpoint: p.baseURL + "/v1/messages",
		header: http.Header{
			"x-api-key":         {strings.TrimSpace(apiKey)},
			"anthropic-version": {anthropicVersion},
		},
		errorMessage: anthropicErrorMessage,
	}, apiReq, &resp)
	if err != nil {
		return answer(model.ProviderAnthropic, modelName, "", err)
	}
	return answer(model.ProviderAnthropic, modelName, resp.text(), nil)
}

// text concatenates the text blocks, skipping tool use and empty blocks
func (r anthropicResponse) text() string {
	var parts []string
	for _, block := range r.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func anthropicErrorMessage(body []byte) string {
	var apiErr anthropicError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		return ""
	}
	return apiErr.Error.Type + " - " + apiErr.Error.Message
}
