package vecview

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/flarexio/vecview/vector"
)

// Engine runs listings and similarity searches against a collection. It
// keeps no state between calls.
type Engine struct {
	operators Operators
	embedder  vector.Embedder
}

type EngineOption func(*Engine)

// WithOperators replaces the filter operator registry.
func WithOperators(ops Operators) EngineOption {
	return func(e *Engine) {
		e.operators = ops
	}
}

// WithEmbedder sets the function used to embed query text.
func WithEmbedder(embedder vector.Embedder) EngineOption {
	return func(e *Engine) {
		e.embedder = embedder
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		operators: DefaultOperators(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func validateWindow(offset, limit int) error {
	if offset < 0 || limit <= 0 {
		return fmt.Errorf("%w: %w: offset %d, limit %d", ErrInvalidArgument, ErrInvalidWindow, offset, limit)
	}

	return nil
}

// Page returns up to limit records from offset in storage order.
func (e *Engine) Page(ctx context.Context, c vector.Collection, offset, limit int) (*ResultSet, error) {
	if err := validateWindow(offset, limit); err != nil {
		return nil, err
	}

	rs := &ResultSet{
		Kind:       ResultKindListing,
		Collection: c.Name(),
		Records:    []Record{},
	}

	if offset >= c.Count() {
		return rs, nil
	}

	docs, err := c.Page(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	for _, doc := range docs {
		rs.Records = append(rs.Records, RecordFromDocument(doc))
	}

	return rs, nil
}

// List applies the filter to every record in storage order, then pages
// over the matching records.
func (e *Engine) List(ctx context.Context, c vector.Collection, q ListQuery) (*ResultSet, error) {
	if err := validateWindow(q.Offset, q.Limit); err != nil {
		return nil, err
	}

	if len(q.Filter) == 0 {
		return e.Page(ctx, c, q.Offset, q.Limit)
	}

	match, err := e.operators.Compile(q.Filter)
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{
		Kind:       ResultKindListing,
		Collection: c.Name(),
		Records:    []Record{},
	}

	skipped := 0
	err = c.Scan(ctx, func(doc vector.Document) bool {
		if !match(doc.Metadata) {
			return true
		}

		if skipped < q.Offset {
			skipped++
			return true
		}

		rs.Records = append(rs.Records, RecordFromDocument(doc))
		return len(rs.Records) < q.Limit
	})

	if err != nil {
		return nil, err
	}

	return rs, nil
}

// SimilaritySearch returns the k nearest records by ascending distance,
// ties broken by id. Distances come from the collection's own metric.
func (e *Engine) SimilaritySearch(ctx context.Context, c vector.Collection, q SimilarityQuery) (*ResultSet, error) {
	if q.K <= 0 {
		return nil, fmt.Errorf("%w: %w: %d", ErrInvalidArgument, ErrInvalidK, q.K)
	}

	match, err := e.operators.Compile(q.Filter)
	if err != nil {
		return nil, err
	}

	embedding, err := e.queryEmbedding(ctx, q)
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{
		Kind:       ResultKindSimilarity,
		Collection: c.Name(),
		Records:    []Record{},
		Distances:  []float64{},
	}

	total := c.Count()
	if total == 0 {
		return rs, nil
	}

	if dim := c.Schema().Dimension; dim > 0 && len(embedding) != dim {
		return nil, &DimensionMismatchError{
			Collection: c.Name(),
			Expected:   dim,
			Actual:     len(embedding),
		}
	}

	where := q.Filter.pushdown()

	// The window grows until the k-th and (k+1)-th candidates are at
	// different distances, so ties at the cut-off are resolved by id
	// over every tied record.
	n := min(q.K+1, total)
	for {
		matches, err := c.Query(ctx, embedding, n, where)
		if err != nil {
			return nil, err
		}

		exhausted := len(matches) < n || n >= total

		kept := slices.DeleteFunc(matches, func(m vector.Match) bool {
			return !match(m.Metadata)
		})

		slices.SortStableFunc(kept, func(a, b vector.Match) int {
			return cmp.Or(
				cmp.Compare(a.Distance, b.Distance),
				cmp.Compare(a.ID, b.ID),
			)
		})

		if exhausted || (len(kept) > q.K && kept[q.K-1].Distance < kept[q.K].Distance) {
			for _, m := range kept[:min(q.K, len(kept))] {
				rs.Records = append(rs.Records, RecordFromDocument(m.Document))
				rs.Distances = append(rs.Distances, m.Distance)
			}

			return rs, nil
		}

		n = min(n*2, total)
	}
}

func (e *Engine) queryEmbedding(ctx context.Context, q SimilarityQuery) ([]float32, error) {
	embedding := q.Embedding

	if len(embedding) == 0 {
		if q.Text == "" {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrQueryRequired)
		}

		if e.embedder == nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmbedderNotSet)
		}

		v, err := e.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, fmt.Errorf("embed query text: %w", err)
		}

		embedding = v
	}

	zero := true
	for _, x := range embedding {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrInvalidEmbedding)
		}

		if f != 0 {
			zero = false
		}
	}

	// Cosine distance is undefined against a zero vector.
	if zero {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrZeroEmbedding)
	}

	return embedding, nil
}
