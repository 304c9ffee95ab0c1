package vecview

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/flarexio/vecview/vector"
)

// Service defines the core logic of VecView.
type Service interface {

	// Close releases the underlying vector store.
	Close() error

	// ListCollections returns the collection names in ascending order.
	ListCollections(ctx context.Context) ([]string, error)

	// DescribeCollection returns the count and schema of a collection.
	DescribeCollection(ctx context.Context, collection string) (*CollectionInfo, error)

	// GetRecord returns a single record by id.
	GetRecord(ctx context.Context, collection string, id string) (*Record, error)

	// Page returns records in storage order.
	Page(ctx context.Context, collection string, offset int, limit int) (*ResultSet, error)

	// List returns records in storage order that satisfy the query filter.
	List(ctx context.Context, collection string, query ListQuery) (*ResultSet, error)

	// SimilaritySearch returns the nearest records with their distances.
	SimilaritySearch(ctx context.Context, collection string, query SimilarityQuery) (*ResultSet, error)
}

type ServiceMiddleware func(Service) Service

func NewService(cfg Config, store vector.Store, embedder vector.Embedder) (Service, error) {
	if store == nil {
		return nil, ErrStoreNotSet
	}

	log := zap.L().With(
		zap.String("service", "vecview"),
	)

	ops, err := DefaultOperators().Select(cfg.Query.Operators...)
	if err != nil {
		return nil, err
	}

	opts := []EngineOption{
		WithOperators(ops),
	}

	if embedder != nil {
		opts = append(opts, WithEmbedder(embedder))
	}

	svc := &service{
		store:  store,
		engine: NewEngine(opts...),
		cfg:    cfg.Query.Normalize(),
		log:    log,
	}

	log.Info("filter operators enabled", zap.Any("operators", ops.Names()))

	return svc, nil
}

type service struct {
	// Store handles are safe for concurrent use
	store  vector.Store
	engine *Engine

	cfg QueryConfig
	log *zap.Logger
}

func (svc *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := svc.cfg.Timeout.Duration(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}

	return context.WithCancel(ctx)
}

func (svc *service) checkLimit(limit int) error {
	if svc.cfg.MaxLimit > 0 && limit > svc.cfg.MaxLimit {
		return fmt.Errorf("%w: %w: %d > %d", ErrInvalidArgument, ErrLimitTooLarge, limit, svc.cfg.MaxLimit)
	}

	return nil
}

func (svc *service) Close() error {
	return svc.store.Close()
}

func (svc *service) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	return svc.store.ListCollections(ctx)
}

func (svc *service) DescribeCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	c, err := svc.store.Collection(ctx, name)
	if err != nil {
		return nil, err
	}

	schema := c.Schema()

	info := &CollectionInfo{
		Name:         c.Name(),
		Count:        c.Count(),
		Dimension:    schema.Dimension,
		HasDocuments: schema.HasDocuments,
		HasMetadata:  schema.HasMetadata,
	}

	if schema.Metric != nil {
		info.Metric = schema.Metric.Name()
	}

	return info, nil
}

func (svc *service) GetRecord(ctx context.Context, name string, id string) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: record id is empty", ErrInvalidArgument)
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	c, err := svc.store.Collection(ctx, name)
	if err != nil {
		return nil, err
	}

	doc, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	record := RecordFromDocument(doc)
	return &record, nil
}

func (svc *service) Page(ctx context.Context, name string, offset int, limit int) (*ResultSet, error) {
	if err := svc.checkLimit(limit); err != nil {
		return nil, err
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	c, err := svc.store.Collection(ctx, name)
	if err != nil {
		return nil, err
	}

	return svc.engine.Page(ctx, c, offset, limit)
}

func (svc *service) List(ctx context.Context, name string, query ListQuery) (*ResultSet, error) {
	if err := svc.checkLimit(query.Limit); err != nil {
		return nil, err
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	c, err := svc.store.Collection(ctx, name)
	if err != nil {
		return nil, err
	}

	return svc.engine.List(ctx, c, query)
}

func (svc *service) SimilaritySearch(ctx context.Context, name string, query SimilarityQuery) (*ResultSet, error) {
	if err := svc.checkLimit(query.K); err != nil {
		return nil, err
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	c, err := svc.store.Collection(ctx, name)
	if err != nil {
		return nil, err
	}

	return svc.engine.SimilaritySearch(ctx, c, query)
}
