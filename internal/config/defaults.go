package config

// Defaults shared with callers that build components without a config file.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
	DefaultTopK         = 5
	DefaultMaxTopK      = 50
	DefaultDimensions   = 768
	DefaultMaxTokens    = 256
)

// Relative defaults resolve against the home directory.
const (
	defaultSnapshotPath = ".ragstore/store.json"
	defaultCatalogPath  = ".ragstore/catalog.db"
	defaultModelsDir    = ".ragstore/models"
	defaultModelFile    = "t5-base-encoder.onnx"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = defaultSnapshotPath
	}
	if cfg.Storage.CatalogPath == "" {
		cfg.Storage.CatalogPath = defaultCatalogPath
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelsDir == "" {
		cfg.Embedding.ModelsDir = defaultModelsDir
	}
	if cfg.Embedding.ModelPath == "" && cfg.Embedding.Provider == "onnx" {
		cfg.Embedding.ModelPath = defaultModelFile
	}
	if cfg.Embedding.Dimensions == 0 && cfg.Embedding.Provider != "openai" {
		cfg.Embedding.Dimensions = DefaultDimensions
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = DefaultMaxTokens
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OpenAI.APIKeyEnv == "" {
		cfg.Embedding.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "cosine"
	}
	if cfg.Store.L2Backend == "" {
		cfg.Store.L2Backend = "auto"
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = DefaultChunkSize
	}
	if cfg.Chunking.Overlap == nil {
		o := DefaultChunkOverlap
		cfg.Chunking.Overlap = &o
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = DefaultTopK
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = DefaultMaxTopK
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx", ".pptx", ".odp", ".ods", ".odt", ".rtf"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
