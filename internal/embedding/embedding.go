// Package embedding turns text into fixed-size vectors for similarity search.
package embedding

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"researchhub/internal/config"
)

// Generator is safe for concurrent use.
type Generator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	ModelName() string
}

// New builds the configured provider. The ONNX provider loads its model here,
// so New is meant to be called once at startup.
func New(cfg config.EmbeddingConfig, logger *logrus.Logger) (Generator, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case config.EmbeddingProviderONNX:
		return NewONNXGenerator(ONNXOptions{
			ModelPath:     cfg.ModelPath,
			TokenizerPath: cfg.TokenizerPath,
			SharedLibPath: cfg.ONNXSharedLibPath,
			MaxTokens:     cfg.MaxTokens,
			Dimensions:    cfg.Dimensions,
		}, logger)
	case config.EmbeddingProviderOpenAI:
		return NewOpenAIGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimensions, timeout), nil
	case config.EmbeddingProviderOllama:
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, cfg.Dimensions, timeout), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Truncate returns at most n runes of text.
func Truncate(text string, n int) string {
	if n <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

func checkDimensions(vec []float32, want int) error {
	if len(vec) != want {
		return fmt.Errorf("embedding has %d dimensions, want %d", len(vec), want)
	}
	return nil
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
