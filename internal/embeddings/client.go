// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package embeddings holds the provider capability contracts for dense
// embeddings and external reranking, plus their HTTP clients. Providers are
// optional enrichments: every caller must keep working when they fail.
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

// QwenInstruction is the default query instruction for Qwen embedding
// models. Retrieval quality measurably improves for Qwen with the prefix
// and degrades for Gemini, so Gemini defaults to none.
const QwenInstruction = "Given a query, retrieve the most semantically relevant document"

// Provider is the embedding capability contract. Embed produces document
// vectors and is never prefixed; EmbedQuery wraps the query with the
// instruction prefix when one is configured.
type Provider interface {
	ID() string
	Model() string
	Dimension() int
	InstructionPrefix() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// ProviderConfig selects and parameterizes an embedding provider.
type ProviderConfig struct {
	Provider    string // none, openai, gemini, google, qwen, dashscope, tongyi
	Model       string
	Instruction string // explicit override; "none" disables the prefix
	APIKey      string
	BaseURL     string
	Dimension   int
}

// ResolveInstruction applies the instruction-prefix policy: an explicit
// override (or the literal "none") wins, Qwen models default to
// QwenInstruction, everything else to no prefix.
func ResolveInstruction(model, override string) string {
	if override == "none" {
		return ""
	}
	if override != "" {
		return override
	}
	lower := strings.ToLower(model)
	if strings.Contains(lower, "qwen") {
		return QwenInstruction
	}
	return ""
}

// NewProvider builds the configured embedding provider, or nil when the
// provider is unset or "none".
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return nil, nil
	case "openai":
		model := cfg.Model
		if model == "" {
			model = "text-embedding-3-small"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return newOpenAICompatible("openai", baseURL, cfg.APIKey, model, cfg.Dimension,
			ResolveInstruction(model, cfg.Instruction)), nil
	case "qwen", "dashscope", "tongyi":
		model := cfg.Model
		if model == "" {
			model = "text-embedding-v3"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		}
		return newOpenAICompatible("qwen", baseURL, cfg.APIKey, model, cfg.Dimension,
			ResolveInstruction(model, cfg.Instruction)), nil
	case "gemini", "google":
		model := cfg.Model
		if model == "" {
			model = "gemini-embedding-001"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com"
		}
		return &geminiClient{
			baseURL:     strings.TrimRight(baseURL, "/"),
			apiKey:      cfg.APIKey,
			model:       model,
			dimension:   cfg.Dimension,
			instruction: ResolveInstruction(model, cfg.Instruction),
			httpClient:  &http.Client{Timeout: 30 * time.Second},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// wrapQuery applies the instruction-prefix rule shared by all providers.
func wrapQuery(prefix, query string) string {
	if prefix == "" {
		return query
	}
	return fmt.Sprintf("Instruct: %s\nQuery: %s", prefix, query)
}

// openAICompatible speaks the OpenAI embeddings wire format, which the
// DashScope compatible-mode endpoint shares.
type openAICompatible struct {
	id          string
	baseURL     string
	apiKey      string
	model       string
	dimension   int
	instruction string
	httpClient  *http.Client
}

func newOpenAICompatible(id, baseURL, apiKey, model string, dimension int, instruction string) *openAICompatible {
	return &openAICompatible{
		id:          id,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		dimension:   dimension,
		instruction: instruction,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *openAICompatible) ID() string                { return c.id }
func (c *openAICompatible) Model() string             { return c.model }
func (c *openAICompatible) Dimension() int            { return c.dimension }
func (c *openAICompatible) InstructionPrefix() string { return c.instruction }

type openAIEmbeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *openAICompatible) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := openAIEmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	}
	if c.dimension > 0 {
		reqBody.Dimensions = c.dimension
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp openAIErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("embedding API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("embedding API returned status %d", resp.StatusCode)
	}

	var parsed openAIEmbeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return parsed.Data[0].Embedding, nil
}

func (c *openAICompatible) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return c.Embed(ctx, wrapQuery(c.instruction, query))
}

// geminiClient speaks the Gemini embedContent API.
type geminiClient struct {
	baseURL     string
	apiKey      string
	model       string
	dimension   int
	instruction string
	httpClient  *http.Client
}

func (c *geminiClient) ID() string                { return "gemini" }
func (c *geminiClient) Model() string             { return c.model }
func (c *geminiClient) Dimension() int            { return c.dimension }
func (c *geminiClient) InstructionPrefix() string { return c.instruction }

type geminiEmbedRequest struct {
	Model   string `json:"model"`
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
	OutputDimensionality int `json:"outputDimensionality,omitempty"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (c *geminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := geminiEmbedRequest{Model: "models/" + c.model}
	reqBody.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: text}}
	if c.dimension > 0 {
		reqBody.OutputDimensionality = c.dimension
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d", resp.StatusCode)
	}

	var parsed geminiEmbedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return parsed.Embedding.Values, nil
}

func (c *geminiClient) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return c.Embed(ctx, wrapQuery(c.instruction, query))
}
