package chromem

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"slices"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/vecview/vector"
)

// CosineMetric turns chromem-go's cosine similarity into a cosine distance.
type CosineMetric struct{}

func (CosineMetric) Name() string {
	return "cosine"
}

func (CosineMetric) Distance(similarity float32) float64 {
	return 1 - float64(similarity)
}

// index is the fixed storage order and schema of a collection.
type index struct {
	ids    []string
	schema vector.Schema
}

// Field names mirror the structs chromem-go encodes in DB.ExportToWriter.
type exportedCollection struct {
	Name      string
	Metadata  map[string]string
	Documents map[string]*chromem.Document
}

type exportedDB struct {
	Collections map[string]*exportedCollection
}

// buildIndex exports the collection through the store and records its ids
// in ascending order together with the schema flags.
func buildIndex(ctx context.Context, db *chromem.DB, name string) (*index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := db.ExportToWriter(&buf, false, "", name); err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	var export exportedDB
	if err := gob.NewDecoder(&buf).Decode(&export); err != nil {
		return nil, fmt.Errorf("%w: decode collection %q: %w", vector.ErrConnection, name, err)
	}

	exported, ok := export.Collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", name, vector.ErrNotFound)
	}

	idx := &index{
		ids: make([]string, 0, len(exported.Documents)),
		schema: vector.Schema{
			Metric: CosineMetric{},
		},
	}

	for id, doc := range exported.Documents {
		idx.ids = append(idx.ids, id)

		if doc.Content != "" {
			idx.schema.HasDocuments = true
		}

		if len(doc.Metadata) > 0 {
			idx.schema.HasMetadata = true
		}
	}

	slices.Sort(idx.ids)

	if len(idx.ids) > 0 {
		idx.schema.Dimension = len(exported.Documents[idx.ids[0]].Embedding)
	}

	return idx, nil
}

type collection struct {
	c     *chromem.Collection
	index *index
	owner *store
}

// open fails once the owning store has been closed.
func (c *collection) open() error {
	_, err := c.owner.handle()
	return err
}

func (c *collection) Name() string {
	return c.c.Name
}

func (c *collection) Count() int {
	return c.c.Count()
}

func (c *collection) Schema() vector.Schema {
	return c.index.schema
}

func (c *collection) Page(ctx context.Context, offset, limit int) ([]vector.Document, error) {
	if err := c.open(); err != nil {
		return nil, err
	}

	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: offset %d, limit %d", vector.ErrInvalidArgument, offset, limit)
	}

	ids := c.index.ids
	if offset >= len(ids) {
		return []vector.Document{}, nil
	}

	end := min(offset+limit, len(ids))

	docs := make([]vector.Document, 0, end-offset)
	for _, id := range ids[offset:end] {
		doc, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func (c *collection) Scan(ctx context.Context, fn func(vector.Document) bool) error {
	if err := c.open(); err != nil {
		return err
	}

	for _, id := range c.index.ids {
		doc, err := c.Get(ctx, id)
		if err != nil {
			return err
		}

		if !fn(doc) {
			return nil
		}
	}

	return nil
}

func (c *collection) Get(ctx context.Context, id string) (vector.Document, error) {
	if err := ctx.Err(); err != nil {
		return vector.Document{}, err
	}

	if err := c.open(); err != nil {
		return vector.Document{}, err
	}

	if _, found := slices.BinarySearch(c.index.ids, id); !found {
		return vector.Document{}, fmt.Errorf("document %q: %w", id, vector.ErrNotFound)
	}

	document, err := c.c.GetByID(ctx, id)
	if err != nil {
		return vector.Document{}, fmt.Errorf("document %q: %w: %w", id, vector.ErrNotFound, err)
	}

	return toDocument(document), nil
}

func (c *collection) Query(ctx context.Context, embedding []float32, n int, where map[string]string) ([]vector.Match, error) {
	if err := c.open(); err != nil {
		return nil, err
	}

	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be > 0", vector.ErrInvalidArgument)
	}

	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", vector.ErrInvalidArgument)
	}

	count := c.c.Count()
	if count == 0 {
		return []vector.Match{}, nil
	}

	if n > count {
		n = count
	}

	results, err := c.c.QueryEmbedding(ctx, embedding, n, where, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: query collection %q: %w", vector.ErrConnection, c.c.Name, err)
	}

	metric := c.index.schema.Metric

	matches := make([]vector.Match, len(results))
	for i, result := range results {
		matches[i] = vector.Match{
			Document: vector.Document{
				ID:        result.ID,
				Metadata:  result.Metadata,
				Embedding: result.Embedding,
				Content:   result.Content,
			},
			Distance: metric.Distance(result.Similarity),
		}
	}

	return matches, nil
}

func toDocument(document chromem.Document) vector.Document {
	return vector.Document{
		ID:        document.ID,
		Metadata:  document.Metadata,
		Embedding: document.Embedding,
		Content:   document.Content,
	}
}
