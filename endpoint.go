package vecview

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	ListCollections    endpoint.Endpoint
	DescribeCollection endpoint.Endpoint
	GetRecord          endpoint.Endpoint
	ListRecords        endpoint.Endpoint
	SimilaritySearch   endpoint.Endpoint
}

func MakeEndpoints(svc Service, cfg QueryConfig) EndpointSet {
	cfg = cfg.Normalize()

	return EndpointSet{
		ListCollections:    ListCollectionsEndpoint(svc),
		DescribeCollection: DescribeCollectionEndpoint(svc),
		GetRecord:          GetRecordEndpoint(svc),
		ListRecords:        ListRecordsEndpoint(svc, cfg.DefaultLimit),
		SimilaritySearch:   SimilaritySearchEndpoint(svc, cfg.DefaultK),
	}
}

func ListCollectionsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.ListCollections(ctx)
	}
}

func DescribeCollectionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		collection, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.DescribeCollection(ctx, collection)
	}
}

type GetRecordRequest struct {
	Collection string `json:"collection" uri:"collection"`
	ID         string `json:"id" uri:"id"`
}

func GetRecordEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(GetRecordRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.GetRecord(ctx, req.Collection, req.ID)
	}
}

// ListRecordsRequest accepts a filter either as Chroma style Where or as
// explicit clauses; both are combined. A zero Limit is replaced by the
// configured default limit instead of being rejected; negative values still
// fail with ErrInvalidArgument.
type ListRecordsRequest struct {
	Collection string         `json:"collection"`
	Offset     int            `json:"offset,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	Where      map[string]any `json:"where,omitempty"`
	Filter     Filter         `json:"filter,omitempty"`
}

func ListRecordsEndpoint(svc Service, defaultLimit int) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ListRecordsRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		filter, err := mergeFilter(req.Where, req.Filter)
		if err != nil {
			return nil, err
		}

		limit := req.Limit
		if limit == 0 {
			limit = defaultLimit
		}

		if len(filter) == 0 {
			return svc.Page(ctx, req.Collection, req.Offset, limit)
		}

		query := ListQuery{
			Offset: req.Offset,
			Limit:  limit,
			Filter: filter,
		}

		return svc.List(ctx, req.Collection, query)
	}
}

// SimilaritySearchRequest searches by Embedding, or by Text when no
// embedding is given. A zero K is replaced by the configured default K.
type SimilaritySearchRequest struct {
	Collection string         `json:"collection"`
	Embedding  []float32      `json:"embedding,omitempty"`
	Text       string         `json:"text,omitempty"`
	K          int            `json:"k,omitempty"`
	Where      map[string]any `json:"where,omitempty"`
	Filter     Filter         `json:"filter,omitempty"`
}

func SimilaritySearchEndpoint(svc Service, defaultK int) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SimilaritySearchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		filter, err := mergeFilter(req.Where, req.Filter)
		if err != nil {
			return nil, err
		}

		k := req.K
		if k == 0 {
			k = defaultK
		}

		query := SimilarityQuery{
			Embedding: req.Embedding,
			Text:      req.Text,
			K:         k,
			Filter:    filter,
		}

		return svc.SimilaritySearch(ctx, req.Collection, query)
	}
}

func mergeFilter(where map[string]any, clauses Filter) (Filter, error) {
	filter, err := ParseWhere(where)
	if err != nil {
		return nil, err
	}

	return append(filter, clauses...), nil
}
