package embedding

// ONNXConfig configures an ONNXEmbedder.
type ONNXConfig struct {
	// ModelPath is the exported encoder (.onnx).
	ModelPath string
	// SharedLibraryPath optionally points at the onnxruntime shared library.
	SharedLibraryPath string
	Dimensions        int
	MaxTokens         int
	CacheSize         int
	// OutputName is the encoder output. "last_hidden_state" ([1, tokens, dim]) is mean-pooled
	// over the attention mask; any other name is read as an already pooled [1, dim] vector.
	OutputName string
}

const lastHiddenState = "last_hidden_state"

func (c *ONNXConfig) applyDefaults() {
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.MaxTokens <= 1 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.OutputName == "" {
		c.OutputName = lastHiddenState
	}
}

// meanPool averages hidden states of positions whose mask is 1. hidden is laid out
// as tokens*dim values.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var n float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n > 0 {
		for i := range out {
			out[i] /= n
		}
	}
	return out
}
