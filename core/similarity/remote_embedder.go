package similarity

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

const defaultEmbeddingTimeout = 10 * time.Second

// RemoteEmbedderConfig contains configuration for an OpenAI-compatible embeddings API.
type RemoteEmbedderConfig struct {
	APIBaseURL string
	APIKey     string
	Model      string
	Timeout    time.Duration
}

// RemoteEmbedder calls the /embeddings endpoint of an OpenAI-compatible API.
type RemoteEmbedder struct {
	config     RemoteEmbedderConfig
	httpClient *http.Client
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// NewRemoteEmbedder creates a RemoteEmbedder. The timeout bounds every call.
func NewRemoteEmbedder(config RemoteEmbedderConfig) *RemoteEmbedder {
	if config.Timeout <= 0 {
		config.Timeout = defaultEmbeddingTimeout
	}
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")
	return &RemoteEmbedder{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Embed implements EmbeddingProvider.
func (e *RemoteEmbedder) Embed(ctx context.Context, descriptor string) ([]float64, error) {
	if e == nil || e.config.APIKey == "" || e.config.APIBaseURL == "" {
		return nil, ErrEmbeddingDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	jsonBody, err := json.Marshal(embeddingRequest{Model: e.config.Model, Input: descriptor})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.APIBaseURL+"/embeddings", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) != Dimensions {
		return nil, fmt.Errorf("malformed embedding payload")
	}

	return embResp.Data[0].Embedding, nil
}

// ServiceEmbedder talks to a SampleFinder server's /api/embeddings endpoint,
// which answers either {"embedding": [...]} or {"disabled": true}.
type ServiceEmbedder struct {
	endpoint   string
	httpClient *http.Client
}

type serviceEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Source    string    `json:"source"`
	Disabled  bool      `json:"disabled"`
}

// NewServiceEmbedder creates a ServiceEmbedder for the given server base URL.
func NewServiceEmbedder(baseURL string, timeout time.Duration) *ServiceEmbedder {
	if timeout <= 0 {
		timeout = defaultEmbeddingTimeout
	}
	return &ServiceEmbedder{
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/embeddings",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Embed implements EmbeddingProvider. Every failure mode is reported as
// ErrEmbeddingDisabled wrapped with the cause.
func (e *ServiceEmbedder) Embed(ctx context.Context, descriptor string) ([]float64, error) {
	body, err := json.Marshal(map[string]string{"descriptor": descriptor})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingDisabled, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingDisabled, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingDisabled, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrEmbeddingDisabled, resp.StatusCode)
	}
	var payload serviceEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingDisabled, err)
	}
	if payload.Disabled || len(payload.Embedding) != Dimensions {
		return nil, ErrEmbeddingDisabled
	}
	return payload.Embedding, nil
}
