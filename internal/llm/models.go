package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// chatModelFallbacks are listed after the gpt-5 family, in this order
var chatModelFallbacks = []string{"gpt-4.1", "gpt-4.1-mini", "gpt-4o", "gpt-4o-mini", "gpt-4"}

// ListOpenAIModels returns the chat model ids visible to apiKey, filtered by FilterChatModels
func ListOpenAIModels(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) ([]string, error) {
	client := newOpenAIClient(strings.TrimSpace(apiKey), baseURLOrDefault(baseURL, OpenAIBaseURL), httpClientOrDefault(httpClient))

	list, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", vendorError("OpenAI", err))
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return FilterChatModels(ids), nil
}

// FilterChatModels keeps gpt-5 ids first, then ids matching the gpt-4 family
// prefixes, without duplicates.
func FilterChatModels(ids []string) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(ids))
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, id := range ids {
		if id != "" && strings.HasPrefix(strings.ToLower(id), "gpt-5") {
			add(id)
		}
	}
	for _, id := range ids {
		lower := strings.ToLower(id)
		for _, prefix := range chatModelFallbacks {
			if id != "" && strings.HasPrefix(lower, prefix) {
				add(id)
				break
			}
		}
	}
	return out
}
