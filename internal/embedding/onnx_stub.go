//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"fmt"
)

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns ErrProviderUnavailable when built without CGO.
func NewONNXEmbedder(_ ONNXConfig) (*ONNXEmbedder, error) {
	return nil, fmt.Errorf("%w: ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime", ErrProviderUnavailable)
}

// Embed always fails without CGO.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrProviderUnavailable
}

// EmbedBatch always fails without CGO.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrProviderUnavailable
}

// Dimensions returns 0 without CGO.
func (e *ONNXEmbedder) Dimensions() int {
	return 0
}

// Name returns "onnx".
func (e *ONNXEmbedder) Name() string {
	return "onnx"
}

// Close is a no-op without CGO.
func (e *ONNXEmbedder) Close() error {
	return nil
}
