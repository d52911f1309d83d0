//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/ragstore/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a T5-style encoder through ONNX Runtime. It requires CGO and the onnxruntime library.
type ONNXEmbedder struct {
	session   *ort.AdvancedSession
	cfg       ONNXConfig
	cache     *EmbeddingCache
	tokenizer Tokenizer

	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder creates an ONNX embedder. The runtime environment is initialized on first use.
// Any failure wraps ErrProviderUnavailable.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	cfg.applyDefaults()
	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: initialize ONNX runtime: %v", ErrProviderUnavailable, err)
		}
	}

	tokenizer := &HashTokenizer{}
	inputIDs, attentionMask := tokenizer.Tokenize("", cfg.MaxTokens)
	seq := int64(cfg.MaxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, seq), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: create input_ids tensor: %v", ErrProviderUnavailable, err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, seq), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("%w: create attention_mask tensor: %v", ErrProviderUnavailable, err)
	}
	outputShape := ort.NewShape(1, int64(cfg.Dimensions))
	if cfg.OutputName == lastHiddenState {
		outputShape = ort.NewShape(1, seq, int64(cfg.Dimensions))
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("%w: create output tensor: %v", ErrProviderUnavailable, err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("%w: create ONNX session: %v", ErrProviderUnavailable, err)
	}

	return &ONNXEmbedder{
		session:             session,
		cfg:                 cfg,
		cache:               NewEmbeddingCache(cfg.CacheSize),
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Embed returns the embedding for text, using cache when available. Inference failures
// are returned as errors wrapping ErrProviderUnavailable; there is no random fallback.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("%w: embedder closed", ErrProviderUnavailable)
	}

	inputIDs, attentionMask := e.tokenizer.Tokenize(text, e.cfg.MaxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: inference failed: %v", ErrProviderUnavailable, err)
	}

	output := e.outputTensor.GetData()
	var embedding []float32
	if e.cfg.OutputName == lastHiddenState {
		embedding = meanPool(output, attentionMask, e.cfg.Dimensions)
	} else {
		embedding = make([]float32, e.cfg.Dimensions)
		copy(embedding, output[:e.cfg.Dimensions])
	}
	utils.NormalizeL2(embedding)
	e.cache.Set(text, embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return EmbedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.cfg.Dimensions
}

// Name returns "onnx".
func (e *ONNXEmbedder) Name() string {
	return "onnx"
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
