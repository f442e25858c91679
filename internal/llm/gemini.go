package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ppiankov/chorus/internal/model"
)

// GeminiProvider calls the Gemini v1beta generateContent endpoint.
// systemInstruction is only accepted by v1beta.
type GeminiProvider struct {
	baseURL    string
	httpClient *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiProvider creates the Gemini adapter. An empty baseURL selects the public API.
func NewGeminiProvider(baseURL string, client *http.Client) *GeminiProvider {
	return &GeminiProvider{
		baseURL:    baseURLOrDefault(baseURL, GeminiBaseURL),
		httpClient: httpClientOrDefault(client),
	}
}

// Name returns the provider name
func (p *GeminiProvider) Name() model.ProviderName {
	return model.ProviderGemini
}

// DefaultModel returns the model used when a request names none
func (p *GeminiProvider) DefaultModel() string {
	return DefaultGeminiModel
}

// Call sends one generateContent request
func (p *GeminiProvider) Call(ctx context.Context, req model.ProviderRequest, apiKey string) model.ProviderAnswer {
	modelName := pickModel(req.Model, DefaultGeminiModel)

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: strings.TrimSpace(req.Prompt)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: pickMaxTokens(req.MaxTokens),
		},
	}
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		p.baseURL, url.PathEscape(modelName), url.QueryEscape(strings.TrimSpace(apiKey)))

	var resp geminiResponse
	err := postJSON(ctx, p.httpClient, vendorCall{
		vendor:       "Gemini",
		endpoint:     endpoint,
		errorMessage: geminiErrorMessage,
	}, body, &resp)
	if err != nil {
		return answer(model.ProviderGemini, modelName, "", err)
	}
	return answer(model.ProviderGemini, modelName, resp.text(), nil)
}

// text joins the parts of the first candidate
func (r geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func geminiErrorMessage(body []byte) string {
	var apiErr geminiError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return ""
	}
	return apiErr.Error.Message
}
