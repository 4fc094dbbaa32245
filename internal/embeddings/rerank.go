// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Reranker is the external cross-encoder contract. Implementations score
// each document against the query; callers replace their candidate scores
// with the returned relevance scores.
type Reranker interface {
	ID() string
	Model() string
	Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error)
}

// RerankResult scores one input document by its original index.
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RerankerConfig selects and parameterizes an external reranker.
type RerankerConfig struct {
	Provider string // none, openai, jina, cohere
	Model    string
	APIKey   string
	BaseURL  string
}

// NewReranker builds the configured reranker, or nil when unset or "none".
// Jina, Cohere and OpenAI-compatible rerank endpoints all share the same
// request and response shape, so one HTTP client serves them all.
func NewReranker(cfg RerankerConfig) (Reranker, error) {
	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case "", "none":
		return nil, nil
	case "jina":
		return newRerankClient(provider, orDefault(cfg.BaseURL, "https://api.jina.ai/v1"),
			cfg.APIKey, orDefault(cfg.Model, "jina-reranker-v2-base-multilingual")), nil
	case "cohere":
		return newRerankClient(provider, orDefault(cfg.BaseURL, "https://api.cohere.com/v1"),
			cfg.APIKey, orDefault(cfg.Model, "rerank-multilingual-v3.0")), nil
	case "openai":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai-compatible reranker requires a base URL")
		}
		return newRerankClient(provider, cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported rerank provider: %s", cfg.Provider)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type rerankClient struct {
	id         string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func newRerankClient(id, baseURL, apiKey, model string) *rerankClient {
	return &rerankClient{
		id:         id,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *rerankClient) ID() string    { return c.id }
func (c *rerankClient) Model() string { return c.model }

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []RerankResult `json:"results"`
}

func (c *rerankClient) Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      len(documents),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank API returned status %d", resp.StatusCode)
	}

	var parsed rerankResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return parsed.Results, nil
}
