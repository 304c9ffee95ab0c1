package vecview

import (
	"encoding/json"
	"errors"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/vecview/vector"
)

var (
	ErrConnection        = vector.ErrConnection
	ErrNotFound          = vector.ErrNotFound
	ErrInvalidArgument   = vector.ErrInvalidArgument
	ErrDimensionMismatch = vector.ErrDimensionMismatch

	ErrEmbedderNotSet   = errors.New("text embedder not set")
	ErrQueryRequired    = errors.New("query embedding or text is required")
	ErrStoreNotSet      = errors.New("vector store not set")
	ErrInvalidWindow    = errors.New("offset must be >= 0 and limit > 0")
	ErrLimitTooLarge    = errors.New("limit exceeds the configured maximum")
	ErrInvalidK         = errors.New("k must be > 0")
	ErrUnknownOperator  = errors.New("unknown filter operator")
	ErrInvalidClause    = errors.New("invalid filter clause")
	ErrInvalidEmbedding = errors.New("embedding contains NaN or Inf")
	ErrZeroEmbedding    = errors.New("embedding has zero magnitude")
)

type DimensionMismatchError = vector.DimensionMismatchError

type ContextKey string

const (
	RequestID ContextKey = "request_id"
)

type Config struct {
	Store     vector.Config          `yaml:"store"`
	Embedding vector.EmbeddingConfig `yaml:"embedding"`
	Query     QueryConfig            `yaml:"query"`
	Table     TableOptions           `yaml:"table"`
}

type QueryConfig struct {
	DefaultLimit int        `yaml:"defaultLimit"`
	MaxLimit     int        `yaml:"maxLimit"`
	DefaultK     int        `yaml:"defaultK"`
	Operators    []Operator `yaml:"operators"`
	Timeout      Duration   `yaml:"timeout"`
}

const (
	DefaultLimit = 20
	DefaultK     = 5
)

// Normalize fills in unset values.
func (cfg QueryConfig) Normalize() QueryConfig {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}

	if cfg.DefaultK <= 0 {
		cfg.DefaultK = DefaultK
	}

	if cfg.MaxLimit > 0 && cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}

	return cfg
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

type CollectionInfo struct {
	Name         string `json:"name"`
	Count        int    `json:"count"`
	Dimension    int    `json:"dimension"`
	Metric       string `json:"metric"`
	HasDocuments bool   `json:"has_documents"`
	HasMetadata  bool   `json:"has_metadata"`
}

type Record struct {
	ID        string            `json:"id"`
	Document  string            `json:"document,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float32         `json:"embedding,omitempty"`
}

func RecordFromDocument(doc vector.Document) Record {
	return Record{
		ID:        doc.ID,
		Document:  doc.Content,
		Metadata:  doc.Metadata,
		Embedding: doc.Embedding,
	}
}

type ResultKind string

const (
	ResultKindListing    ResultKind = "listing"
	ResultKindSimilarity ResultKind = "similarity"
)

// ResultSet holds records in storage order for listings and in relevance
// order for similarity results, where Distances runs parallel to Records.
type ResultSet struct {
	Kind       ResultKind `json:"kind"`
	Collection string     `json:"collection"`
	Records    []Record   `json:"records"`
	Distances  []float64  `json:"distances,omitempty"`
}

func (rs *ResultSet) Len() int {
	return len(rs.Records)
}

type ListQuery struct {
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
	Filter Filter `json:"filter,omitempty"`
}

// SimilarityQuery searches by Embedding, or by Text when no embedding is
// given.
type SimilarityQuery struct {
	Embedding []float32 `json:"embedding,omitempty"`
	Text      string    `json:"text,omitempty"`
	K         int       `json:"k"`
	Filter    Filter    `json:"filter,omitempty"`
}
