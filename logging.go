package vecview

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "vecview"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) logger(ctx context.Context, action string) *zap.Logger {
	log := mw.log.With(
		zap.String("action", action),
	)

	requestID, ok := ctx.Value(RequestID).(string)
	if ok {
		log = log.With(
			zap.String("request_id", requestID),
		)
	}

	return log
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) ListCollections(ctx context.Context) ([]string, error) {
	log := mw.logger(ctx, "list_collections")

	names, err := mw.next.ListCollections(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("collections listed", zap.Int("count", len(names)))
	return names, nil
}

func (mw *loggingMiddleware) DescribeCollection(ctx context.Context, collection string) (*CollectionInfo, error) {
	log := mw.logger(ctx, "describe_collection").With(
		zap.String("collection", collection),
	)

	info, err := mw.next.DescribeCollection(ctx, collection)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("collection described",
		zap.Int("count", info.Count),
		zap.Int("dimension", info.Dimension),
	)

	return info, nil
}

func (mw *loggingMiddleware) GetRecord(ctx context.Context, collection string, id string) (*Record, error) {
	log := mw.logger(ctx, "get_record").With(
		zap.String("collection", collection),
		zap.String("id", id),
	)

	record, err := mw.next.GetRecord(ctx, collection, id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("record fetched")
	return record, nil
}

func (mw *loggingMiddleware) Page(ctx context.Context, collection string, offset int, limit int) (*ResultSet, error) {
	log := mw.logger(ctx, "page").With(
		zap.String("collection", collection),
		zap.Int("offset", offset),
		zap.Int("limit", limit),
	)

	start := time.Now()

	rs, err := mw.next.Page(ctx, collection, offset, limit)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("page fetched",
		zap.Int("count", rs.Len()),
		zap.Duration("took", time.Since(start)),
	)

	return rs, nil
}

func (mw *loggingMiddleware) List(ctx context.Context, collection string, query ListQuery) (*ResultSet, error) {
	log := mw.logger(ctx, "list").With(
		zap.String("collection", collection),
		zap.Int("offset", query.Offset),
		zap.Int("limit", query.Limit),
	)

	if len(query.Filter) > 0 {
		log = log.With(
			zap.Int("clauses", len(query.Filter)),
		)
	}

	start := time.Now()

	rs, err := mw.next.List(ctx, collection, query)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("records listed",
		zap.Int("count", rs.Len()),
		zap.Duration("took", time.Since(start)),
	)

	return rs, nil
}

func (mw *loggingMiddleware) SimilaritySearch(ctx context.Context, collection string, query SimilarityQuery) (*ResultSet, error) {
	log := mw.logger(ctx, "similarity_search").With(
		zap.String("collection", collection),
		zap.Int("k", query.K),
	)

	if query.Text != "" && len(query.Embedding) == 0 {
		log = log.With(
			zap.String("text", query.Text),
		)
	}

	if len(query.Filter) > 0 {
		log = log.With(
			zap.Int("clauses", len(query.Filter)),
		)
	}

	start := time.Now()

	rs, err := mw.next.SimilaritySearch(ctx, collection, query)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("similarity searched",
		zap.Int("count", rs.Len()),
		zap.Duration("took", time.Since(start)),
	)

	return rs, nil
}
