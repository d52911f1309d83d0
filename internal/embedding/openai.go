package embedding

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/ragstore/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey string
	// BaseURL points at an OpenAI-compatible API (e.g. a local server). Empty uses api.openai.com.
	BaseURL string
	Model   string
	// Dimensions is required for models not in the built-in table.
	Dimensions int
	CacheSize  int
}

// DefaultOpenAIModel is used when OpenAIConfig.Model is empty.
const DefaultOpenAIModel = "text-embedding-3-small"

var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder produces embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	cache      *EmbeddingCache
}

// NewOpenAIEmbedder creates an embedder for the configured model. A missing API key or an
// unknown dimension returns an error wrapping ErrProviderUnavailable.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not set", ErrProviderUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = openAIModelDimensions[cfg.Model]
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: unknown dimensions for model %q; set embedding.dimensions", ErrProviderUnavailable, cfg.Model)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: dims,
		cache:      NewEmbeddingCache(cfg.CacheSize),
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch sends all uncached texts in one request. Results are ordered by the response
// index, checked against Dimensions, and L2-normalized, so they match per-item Embed calls.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if text == "" {
			return nil, ErrEmptyText
		}
		if cached, ok := e.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: missing,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", ErrProviderUnavailable, err)
	}
	if len(resp.Data) != len(missing) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs", ErrProviderUnavailable, len(resp.Data), len(missing))
	}
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		if err := checkDimensions(vec, e.dimensions); err != nil {
			return nil, err
		}
		if utils.NormalizeL2(vec) == 0 {
			return nil, fmt.Errorf("%w: openai returned a zero vector for input %d", ErrProviderUnavailable, missingIdx[i])
		}
		e.cache.Set(missing[i], vec)
		out[missingIdx[i]] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "openai:<model>".
func (e *OpenAIEmbedder) Name() string {
	return "openai:" + e.model
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
