package vecview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubService struct {
	pages    [][2]int
	lists    []ListQuery
	searches []SimilarityQuery
}

func (s *stubService) Close() error { return nil }

func (s *stubService) ListCollections(ctx context.Context) ([]string, error) {
	return []string{"docs"}, nil
}

func (s *stubService) DescribeCollection(ctx context.Context, collection string) (*CollectionInfo, error) {
	if collection != "docs" {
		return nil, ErrNotFound
	}

	return &CollectionInfo{Name: collection, Count: 3}, nil
}

func (s *stubService) GetRecord(ctx context.Context, collection string, id string) (*Record, error) {
	return &Record{ID: id}, nil
}

func (s *stubService) Page(ctx context.Context, collection string, offset int, limit int) (*ResultSet, error) {
	s.pages = append(s.pages, [2]int{offset, limit})
	return &ResultSet{Kind: ResultKindListing, Collection: collection}, nil
}

func (s *stubService) List(ctx context.Context, collection string, query ListQuery) (*ResultSet, error) {
	s.lists = append(s.lists, query)
	return &ResultSet{Kind: ResultKindListing, Collection: collection}, nil
}

func (s *stubService) SimilaritySearch(ctx context.Context, collection string, query SimilarityQuery) (*ResultSet, error) {
	s.searches = append(s.searches, query)
	return &ResultSet{Kind: ResultKindSimilarity, Collection: collection}, nil
}

func TestListRecordsEndpoint(t *testing.T) {
	assert := assert.New(t)

	svc := new(stubService)
	endpoints := MakeEndpoints(svc, QueryConfig{DefaultLimit: 7})

	ctx := context.Background()

	_, err := endpoints.ListRecords(ctx, ListRecordsRequest{Collection: "docs", Offset: 2})
	assert.NoError(err)
	assert.Equal([][2]int{{2, 7}}, svc.pages, "unfiltered listings page directly with the default limit")

	_, err = endpoints.ListRecords(ctx, ListRecordsRequest{Collection: "docs", Limit: -1})
	assert.NoError(err)
	assert.Equal([2]int{0, -1}, svc.pages[1], "only a zero limit takes the default")

	req := ListRecordsRequest{
		Collection: "docs",
		Limit:      3,
		Where:      map[string]any{"source": "web"},
		Filter:     Filter{{Field: "page", Operator: OpGreaterThan, Value: 1}},
	}

	_, err = endpoints.ListRecords(ctx, req)
	assert.NoError(err)

	if assert.Len(svc.lists, 1) {
		assert.Equal(ListQuery{
			Limit: 3,
			Filter: Filter{
				{Field: "source", Operator: OpEquals, Value: "web"},
				{Field: "page", Operator: OpGreaterThan, Value: 1},
			},
		}, svc.lists[0])
	}

	_, err = endpoints.ListRecords(ctx, ListRecordsRequest{
		Collection: "docs",
		Where:      map[string]any{"$or": []any{}},
	})

	assert.ErrorIs(err, ErrInvalidArgument)

	_, err = endpoints.ListRecords(ctx, "docs")
	assert.Error(err)
}

func TestSimilaritySearchEndpoint(t *testing.T) {
	assert := assert.New(t)

	svc := new(stubService)
	endpoints := MakeEndpoints(svc, QueryConfig{})

	_, err := endpoints.SimilaritySearch(context.Background(), SimilaritySearchRequest{
		Collection: "docs",
		Text:       "hello",
	})

	assert.NoError(err)

	if assert.Len(svc.searches, 1) {
		assert.Equal(DefaultK, svc.searches[0].K)
		assert.Equal("hello", svc.searches[0].Text)
		assert.Empty(svc.searches[0].Filter)
	}
}

func TestProxyMiddleware(t *testing.T) {
	assert := assert.New(t)

	backend := new(stubService)
	endpoints := MakeEndpoints(backend, QueryConfig{})

	var svc Service
	svc = ProxyMiddleware(&endpoints)(svc)

	ctx := context.Background()

	names, err := svc.ListCollections(ctx)
	assert.NoError(err)
	assert.Equal([]string{"docs"}, names)

	info, err := svc.DescribeCollection(ctx, "docs")
	assert.NoError(err)
	assert.Equal(3, info.Count)

	_, err = svc.DescribeCollection(ctx, "missing")
	assert.ErrorIs(err, ErrNotFound)

	record, err := svc.GetRecord(ctx, "docs", "a")
	assert.NoError(err)
	assert.Equal("a", record.ID)

	rs, err := svc.Page(ctx, "docs", 1, 2)
	assert.NoError(err)
	assert.Equal(ResultKindListing, rs.Kind)
	assert.Equal([][2]int{{1, 2}}, backend.pages)

	_, err = svc.Page(ctx, "docs", 0, 0)
	assert.ErrorIs(err, ErrInvalidWindow)
	assert.Len(backend.pages, 1, "invalid windows never reach the backend")

	_, err = svc.SimilaritySearch(ctx, "docs", SimilarityQuery{Text: "hello"})
	assert.ErrorIs(err, ErrInvalidK)
	assert.Empty(backend.searches)

	rs, err = svc.SimilaritySearch(ctx, "docs", SimilarityQuery{Text: "hello", K: 2})
	assert.NoError(err)
	assert.Equal(ResultKindSimilarity, rs.Kind)
}
