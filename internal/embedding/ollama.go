package embedding

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

// OllamaGenerator calls a local Ollama server's /api/embeddings endpoint.
type OllamaGenerator struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

func NewOllamaGenerator(baseURL, model string, dimensions int, timeout time.Duration) *OllamaGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OllamaGenerator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *OllamaGenerator) Dimensions() int   { return g.dimensions }
func (g *OllamaGenerator) ModelName() string { return g.model }

func (g *OllamaGenerator) Embed(ctx context.Context, text string) ([]float32, error) {
	bodyBytes, err := json.Marshal(map[string]string{
		"model":  g.model,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/embeddings", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build ollama request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse ollama json failed: %w", err)
	}
	vec := make([]float32, len(parsed.Embedding))
	for i, v := range parsed.Embedding {
		vec[i] = float32(v)
	}
	if err := checkDimensions(vec, g.dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}
