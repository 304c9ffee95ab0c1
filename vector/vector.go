package vector

import "context"

type Config struct {
	Path          string       `yaml:"path"`
	Compress      bool         `yaml:"compress"`
	EncryptionKey string       `yaml:"encryptionKey"`
	Remote        RemoteConfig `yaml:"remote"`
}

// RemoteConfig points at an exported store snapshot kept in an
// S3-compatible bucket.
type RemoteConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Object    string `yaml:"object"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Secure    bool   `yaml:"secure"`
}

func (cfg RemoteConfig) Enabled() bool {
	return cfg.Bucket != "" && cfg.Object != ""
}

type EmbeddingProvider string

const (
	EmbeddingProviderNone         EmbeddingProvider = ""
	EmbeddingProviderOllama       EmbeddingProvider = "ollama"
	EmbeddingProviderOpenAI       EmbeddingProvider = "openai"
	EmbeddingProviderOpenAICompat EmbeddingProvider = "openai-compat"
)

type EmbeddingConfig struct {
	Provider EmbeddingProvider `yaml:"provider"`
	Model    string            `yaml:"model"`
	BaseURL  string            `yaml:"baseURL"`
	APIKey   string            `yaml:"apiKey"`
}

// Store is an opened, read-only vector store.
type Store interface {
	// ListCollections returns the collection names in ascending order.
	ListCollections(ctx context.Context) ([]string, error)

	// Collection opens the named collection, or fails with ErrNotFound.
	Collection(ctx context.Context, name string) (Collection, error)

	// Close releases the store. Calling it more than once is a no-op.
	Close() error
}

// Collection is a read-only view over one named collection.
//
// Storage order is the order Page and Scan visit records in; it is fixed
// for the lifetime of the handle.
type Collection interface {
	Name() string
	Count() int
	Schema() Schema

	// Page returns up to limit documents starting at offset in storage order.
	Page(ctx context.Context, offset, limit int) ([]Document, error)

	// Scan visits every document in storage order until fn returns false.
	Scan(ctx context.Context, fn func(Document) bool) error

	// Get returns a single document, or fails with ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// Query ranks documents against the embedding using the store's own
	// distance computation and returns at most n matches ordered by
	// ascending distance. Only documents whose metadata equals every
	// entry of where are considered.
	Query(ctx context.Context, embedding []float32, n int, where map[string]string) ([]Match, error)
}

type Schema struct {
	Dimension    int    `json:"dimension"`
	Metric       Metric `json:"-"`
	HasDocuments bool   `json:"has_documents"`
	HasMetadata  bool   `json:"has_metadata"`
}

// Metric converts the store-native score of a match into a distance,
// where smaller means closer.
type Metric interface {
	Name() string
	Distance(score float32) float64
}

// Embedder derives a query embedding from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

type Document struct {
	ID        string            `json:"id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding,omitempty"`
}

type Match struct {
	Document
	Distance float64 `json:"distance"`
}
