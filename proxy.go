package vecview

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidResponseType = errors.New("invalid response type")

func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return nil
}

func (mw *proxyMiddleware) ListCollections(ctx context.Context) ([]string, error) {
	resp, err := mw.endpoints.ListCollections(ctx, nil)
	if err != nil {
		return nil, err
	}

	names, ok := resp.([]string)
	if !ok {
		return nil, ErrInvalidResponseType
	}

	return names, nil
}

func (mw *proxyMiddleware) DescribeCollection(ctx context.Context, collection string) (*CollectionInfo, error) {
	resp, err := mw.endpoints.DescribeCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	info, ok := resp.(*CollectionInfo)
	if !ok {
		return nil, ErrInvalidResponseType
	}

	return info, nil
}

func (mw *proxyMiddleware) GetRecord(ctx context.Context, collection string, id string) (*Record, error) {
	req := GetRecordRequest{
		Collection: collection,
		ID:         id,
	}

	resp, err := mw.endpoints.GetRecord(ctx, req)
	if err != nil {
		return nil, err
	}

	record, ok := resp.(*Record)
	if !ok {
		return nil, ErrInvalidResponseType
	}

	return record, nil
}

func (mw *proxyMiddleware) Page(ctx context.Context, collection string, offset int, limit int) (*ResultSet, error) {
	if err := validateWindow(offset, limit); err != nil {
		return nil, err
	}

	req := ListRecordsRequest{
		Collection: collection,
		Offset:     offset,
		Limit:      limit,
	}

	return mw.resultSet(mw.endpoints.ListRecords(ctx, req))
}

func (mw *proxyMiddleware) List(ctx context.Context, collection string, query ListQuery) (*ResultSet, error) {
	if err := validateWindow(query.Offset, query.Limit); err != nil {
		return nil, err
	}

	req := ListRecordsRequest{
		Collection: collection,
		Offset:     query.Offset,
		Limit:      query.Limit,
		Filter:     query.Filter,
	}

	return mw.resultSet(mw.endpoints.ListRecords(ctx, req))
}

func (mw *proxyMiddleware) SimilaritySearch(ctx context.Context, collection string, query SimilarityQuery) (*ResultSet, error) {
	if query.K <= 0 {
		return nil, fmt.Errorf("%w: %w: %d", ErrInvalidArgument, ErrInvalidK, query.K)
	}

	req := SimilaritySearchRequest{
		Collection: collection,
		Embedding:  query.Embedding,
		Text:       query.Text,
		K:          query.K,
		Filter:     query.Filter,
	}

	return mw.resultSet(mw.endpoints.SimilaritySearch(ctx, req))
}

func (mw *proxyMiddleware) resultSet(resp any, err error) (*ResultSet, error) {
	if err != nil {
		return nil, err
	}

	rs, ok := resp.(*ResultSet)
	if !ok {
		return nil, ErrInvalidResponseType
	}

	return rs, nil
}
