package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	tavilyAPIURL         = "https://api.tavily.com/search"
	tavilyDefaultDepth   = "basic"
	tavilyDefaultResults = 3
	tavilyDefaultTimeout = 15 * time.Second
	tavilyDefaultRetries = 3
	tavilyRetryBackoff   = 500 * time.Millisecond
)

// TavilyConfig configures the Tavily search client.
type TavilyConfig struct {
	APIKey      string
	SearchDepth string
	MaxResults  int
	Timeout     time.Duration
	MaxRetries  int
	BaseURL     string
}

func DefaultTavilyConfig() TavilyConfig {
	return TavilyConfig{
		SearchDepth: tavilyDefaultDepth,
		MaxResults:  tavilyDefaultResults,
		Timeout:     tavilyDefaultTimeout,
		MaxRetries:  tavilyDefaultRetries,
	}
}

type tavilyRequest struct {
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

type tavilyErrorResponse struct {
	Detail struct {
		Error string `json:"error"`
	} `json:"detail"`
}

// TavilyClient implements Searcher against the Tavily HTTP API.
type TavilyClient struct {
	config  TavilyConfig
	client  *http.Client
	baseURL string

	mu         sync.RWMutex
	totalCalls int64
	lastError  error
}

func NewTavilyClient(cfg TavilyConfig) (*TavilyClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("tavily: API key required")
	}

	if cfg.SearchDepth == "" {
		cfg.SearchDepth = tavilyDefaultDepth
	}

	if cfg.MaxResults == 0 {
		cfg.MaxResults = tavilyDefaultResults
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = tavilyDefaultTimeout
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = tavilyDefaultRetries
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = tavilyAPIURL
	}

	return &TavilyClient{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: baseURL,
	}, nil
}

// Search runs a web search with exponential backoff on transient failures.
func (c *TavilyClient) Search(ctx context.Context, query string) (*Response, error) {
	if query == "" {
		return nil, errors.New("tavily: empty query")
	}

	var lastErr error

	for attempt := range c.config.MaxRetries {
		resp, err := c.doSearch(ctx, query)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			break
		}

		backoff := tavilyRetryBackoff * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	c.mu.Lock()
	c.lastError = lastErr
	c.mu.Unlock()

	return nil, lastErr
}

// Stats returns call totals for diagnostics.
func (c *TavilyClient) Stats() (calls int64, lastErr error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalCalls, c.lastError
}

func (c *TavilyClient) doSearch(ctx context.Context, query string) (*Response, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:         query,
		SearchDepth:   c.config.SearchDepth,
		MaxResults:    c.config.MaxResults,
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	c.mu.Lock()
	c.totalCalls++
	c.mu.Unlock()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tavily: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseTavilyError(resp.StatusCode, respBody)
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("tavily: unmarshal response: %w", err)
	}

	out := &Response{
		Answer:  parsed.Answer,
		Results: make([]SearchResult, 0, len(parsed.Results)),
	}
	for _, r := range parsed.Results {
		out.Results = append(out.Results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		})
	}
	return out, nil
}

func parseTavilyError(statusCode int, body []byte) error {
	var errResp tavilyErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Detail.Error == "" {
		return &TavilyError{StatusCode: statusCode, Message: string(body)}
	}
	return &TavilyError{StatusCode: statusCode, Message: errResp.Detail.Error}
}

func isRetryableError(err error) bool {
	var tavilyErr *TavilyError
	if errors.As(err, &tavilyErr) {
		return tavilyErr.Temporary()
	}
	return false
}

// TavilyError is a non-2xx response from the search API.
type TavilyError struct {
	StatusCode int
	Message    string
}

func (e *TavilyError) Error() string {
	return fmt.Sprintf("tavily: (%d): %s", e.StatusCode, e.Message)
}

func (e *TavilyError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}
