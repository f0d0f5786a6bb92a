// Package config provides configuration for the Red Panda backend.
//
// Configuration is loaded from an optional YAML file, then overridden by
// REDPANDA_* environment variables, on top of hardcoded defaults.
package config

import (
	"fmt"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/logging"
)

// Config holds the complete backend configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    logging.Config   `koanf:"logging"`
	Storage    StorageConfig    `koanf:"storage"`
	Ollama     OllamaConfig     `koanf:"ollama"`
	Ingestion  IngestionConfig  `koanf:"ingestion"`
	Query      QueryConfig      `koanf:"query"`
	VectorPath string           `koanf:"vector_path"`
	Extraction ExtractionConfig `koanf:"extraction"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// StorageConfig holds file and metadata storage paths.
type StorageConfig struct {
	// TempDir receives uploads before extraction. Files here are always
	// removed when an ingestion request finishes, whatever the outcome.
	TempDir string `koanf:"temp_dir"`

	// DocsDir holds the permanent copies of uploaded originals.
	DocsDir string `koanf:"docs_dir"`

	// DatabasePath is the SQLite file for document and knowledge-base rows.
	DatabasePath string `koanf:"database_path"`
}

// OllamaConfig holds model backend configuration.
type OllamaConfig struct {
	// ServerURL is the Ollama HTTP endpoint.
	ServerURL string `koanf:"server_url"`

	// LLMModel is the chat model used for query expansion and answering.
	LLMModel string `koanf:"llm_model"`

	// EmbeddingModel is the text embedding model.
	EmbeddingModel string `koanf:"embedding_model"`
}

// IngestionConfig holds chunking parameters.
type IngestionConfig struct {
	// ChunkSize is the target chunk size in characters.
	ChunkSize int `koanf:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive chunks in characters.
	ChunkOverlap int `koanf:"chunk_overlap"`
}

// QueryConfig holds retrieval pipeline parameters.
type QueryConfig struct {
	// Expansions is the number of alternative phrasings generated per
	// question. The original question is always queried as well.
	Expansions int `koanf:"expansions"`

	// RetrievalK is the number of candidates fetched per expanded query.
	RetrievalK int `koanf:"retrieval_k"`

	// ContextSize is the number of reranked candidates passed to the model.
	ContextSize int `koanf:"context_size"`

	// PreviewLength is the length of source excerpts in characters.
	PreviewLength int `koanf:"preview_length"`
}

// ExtractionConfig holds extraction cascade parameters.
type ExtractionConfig struct {
	// OCRLanguages is the language set an OCR-capable extraction engine
	// would use. The fast text mode in use ignores it; see
	// extraction.Config.
	OCRLanguages []string `koanf:"ocr_languages"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	c.Logging.ApplyDefaults()
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "./_temp"
	}
	if c.Storage.DocsDir == "" {
		c.Storage.DocsDir = "./documents"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "./documents.db"
	}
	if c.VectorPath == "" {
		c.VectorPath = "./chroma"
	}
	if c.Ollama.ServerURL == "" {
		c.Ollama.ServerURL = "http://localhost:11434"
	}
	if c.Ollama.LLMModel == "" {
		c.Ollama.LLMModel = "mistral"
	}
	if c.Ollama.EmbeddingModel == "" {
		c.Ollama.EmbeddingModel = "nomic-embed-text"
	}
	if c.Ingestion.ChunkSize == 0 {
		c.Ingestion.ChunkSize = 7500
	}
	if c.Ingestion.ChunkOverlap == 0 {
		c.Ingestion.ChunkOverlap = 100
	}
	if c.Query.Expansions == 0 {
		c.Query.Expansions = 5
	}
	if c.Query.RetrievalK == 0 {
		c.Query.RetrievalK = 8
	}
	if c.Query.ContextSize == 0 {
		c.Query.ContextSize = 4
	}
	if c.Query.PreviewLength == 0 {
		c.Query.PreviewLength = 100
	}
	if len(c.Extraction.OCRLanguages) == 0 {
		c.Extraction.OCRLanguages = []string{"eng", "chi_sim"}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Ingestion.ChunkSize)
	}
	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be non-negative and smaller than chunk size %d",
			c.Ingestion.ChunkOverlap, c.Ingestion.ChunkSize)
	}
	if c.Query.Expansions < 0 {
		return fmt.Errorf("expansions must be non-negative, got %d", c.Query.Expansions)
	}
	if c.Query.RetrievalK <= 0 {
		return fmt.Errorf("retrieval k must be positive, got %d", c.Query.RetrievalK)
	}
	if c.Query.ContextSize <= 0 {
		return fmt.Errorf("context size must be positive, got %d", c.Query.ContextSize)
	}
	return nil
}
