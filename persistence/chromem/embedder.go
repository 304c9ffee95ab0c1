package chromem

import (
	"errors"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/vecview/vector"
)

var (
	ErrUnsupportedEmbeddingProvider = errors.New("unsupported embedding provider")
	ErrEmbeddingModelRequired       = errors.New("embedding model is required")
)

// NewEmbedder builds a query embedder from chromem-go's embedding functions.
// It returns nil when no provider is configured.
func NewEmbedder(cfg vector.EmbeddingConfig) (vector.Embedder, error) {
	var fn chromem.EmbeddingFunc

	switch cfg.Provider {
	case vector.EmbeddingProviderNone:
		return nil, nil

	case vector.EmbeddingProviderOllama:
		if cfg.Model == "" {
			return nil, ErrEmbeddingModelRequired
		}

		fn = chromem.NewEmbeddingFuncOllama(cfg.Model, cfg.BaseURL)

	case vector.EmbeddingProviderOpenAI:
		model := chromem.EmbeddingModelOpenAI3Small
		if cfg.Model != "" {
			model = chromem.EmbeddingModelOpenAI(cfg.Model)
		}

		fn = chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, model)

	case vector.EmbeddingProviderOpenAICompat:
		if cfg.Model == "" {
			return nil, ErrEmbeddingModelRequired
		}

		fn = chromem.NewEmbeddingFuncOpenAICompat(cfg.BaseURL, cfg.APIKey, cfg.Model, nil)

	default:
		return nil, ErrUnsupportedEmbeddingProvider
	}

	return vector.EmbedderFunc(fn), nil
}
