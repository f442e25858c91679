package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/ppiankov/chorus/internal/credential"
	"github.com/ppiankov/chorus/internal/metrics"
	"github.com/ppiankov/chorus/internal/model"
)

// TavilyBaseURL is the public Tavily API
const TavilyBaseURL = "https://api.tavily.com"

// Tavily searches the web through the Tavily search API
type Tavily struct {
	baseURL    string
	httpClient *http.Client
	creds      credential.Resolver
	logger     *zap.Logger
}

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// NewTavily creates a Tavily collector. The API key is resolved on every search.
func NewTavily(baseURL string, client *http.Client, creds credential.Resolver, logger *zap.Logger) *Tavily {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = TavilyBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tavily{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
		creds:      creds,
		logger:     logger,
	}
}

// Search implements Collector
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) []model.RetrievalSource {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	key, err := credential.Require(t.creds, credential.Tavily)
	if err != nil {
		metrics.RetrievalSearches.WithLabelValues(metrics.OutcomeError).Inc()
		t.logger.Warn("TAVILY_API_KEY is not set; skipping web retrieval")
		return nil
	}

	resp, err := t.search(ctx, query, maxResults, key)
	if err != nil {
		metrics.RetrievalSearches.WithLabelValues(metrics.OutcomeError).Inc()
		t.logger.Warn("Tavily search failed", zap.Error(err))
		return nil
	}

	sources := toSources(resp)
	if len(sources) > maxResults {
		sources = sources[:maxResults]
	}

	outcome := metrics.OutcomeOK
	if len(sources) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.RetrievalSearches.WithLabelValues(outcome).Inc()
	t.logger.Debug("Tavily search completed", zap.Int("sources", len(sources)))

	return sources
}

func (t *Tavily) search(ctx context.Context, query string, maxResults int, apiKey string) (*tavilyResponse, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out tavilyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// toSources drops results without content, then numbers the rest from 1
func toSources(resp *tavilyResponse) []model.RetrievalSource {
	var sources []model.RetrievalSource
	for _, r := range resp.Results {
		content := plainText(r.Content)
		if content == "" {
			continue
		}
		id := len(sources) + 1
		title := plainText(r.Title)
		if title == "" {
			title = fmt.Sprintf("Source %d", id)
		}
		sources = append(sources, model.RetrievalSource{
			ID:      id,
			Title:   title,
			URL:     strings.TrimSpace(r.URL),
			Snippet: content,
		})
	}
	return sources
}

// plainText strips markup and entities from a search snippet
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.ContainsAny(s, "<&") {
		return s
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(visibleText(doc)), " ")
}

func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}
