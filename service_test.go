package vecview

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	chromemgo "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/vecview/persistence/chromem"
	"github.com/flarexio/vecview/vector"
)

func createFixtureStore(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chroma")

	db, err := chromemgo.NewPersistentDB(path, false)
	require.NoError(t, err)

	docs, err := db.CreateCollection("docs", nil, nil)
	require.NoError(t, err)

	fixtures := []chromemgo.Document{
		{
			ID:        "a",
			Content:   "first",
			Embedding: []float32{0, 1, 0, 0},
			Metadata:  map[string]string{"source": "pdf", "page": "1"},
		},
		{
			ID:        "b",
			Content:   "second",
			Embedding: []float32{1, 0, 0, 0},
			Metadata:  map[string]string{"source": "web", "page": "2"},
		},
		{
			ID:        "c",
			Content:   "third",
			Embedding: []float32{1, 1, 0, 0},
			Metadata:  map[string]string{"source": "web", "page": "3"},
		},
	}

	for _, doc := range fixtures {
		require.NoError(t, docs.AddDocument(ctx, doc))
	}

	_, err = db.CreateCollection("empty", nil, nil)
	require.NoError(t, err)

	// t1 and t2 are equidistant from any query on the [0, 1, 1, 0] diagonal.
	ties, err := db.CreateCollection("ties", nil, nil)
	require.NoError(t, err)

	tied := []chromemgo.Document{
		{ID: "t2", Content: "tied", Embedding: []float32{0, 1, 0, 0}},
		{ID: "t1", Content: "tied", Embedding: []float32{0, 0, 1, 0}},
		{ID: "t3", Content: "far", Embedding: []float32{1, 0, 0, 0}},
	}

	for _, doc := range tied {
		require.NoError(t, ties.AddDocument(ctx, doc))
	}

	return path
}

func ids(rs *ResultSet) []string {
	ids := make([]string, len(rs.Records))
	for i, r := range rs.Records {
		ids[i] = r.ID
	}

	return ids
}

type vecViewTestSuite struct {
	suite.Suite
	ctx context.Context
	svc Service
}

func (suite *vecViewTestSuite) SetupSuite() {
	ctx := context.Background()

	path := createFixtureStore(suite.T())

	store, err := chromem.NewStore(ctx, vector.Config{Path: path})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	embedder := vector.EmbedderFunc(func(ctx context.Context, text string) ([]float32, error) {
		switch text {
		case "second":
			return []float32{1, 0, 0, 0}, nil
		default:
			return nil, errors.New("unknown text")
		}
	})

	cfg := Config{
		Query: QueryConfig{
			MaxLimit: 100,
		},
	}

	svc, err := NewService(cfg, store, embedder)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.ctx = ctx
	suite.svc = svc
}

func (suite *vecViewTestSuite) TestListCollections() {
	names, err := suite.svc.ListCollections(suite.ctx)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]string{"docs", "empty", "ties"}, names)
}

func (suite *vecViewTestSuite) TestDescribeCollection() {
	info, err := suite.svc.DescribeCollection(suite.ctx, "docs")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("docs", info.Name)
	suite.Equal(3, info.Count)
	suite.Equal(4, info.Dimension)
	suite.Equal("cosine", info.Metric)
	suite.True(info.HasDocuments)
	suite.True(info.HasMetadata)

	_, err = suite.svc.DescribeCollection(suite.ctx, "missing")
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *vecViewTestSuite) TestGetRecord() {
	record, err := suite.svc.GetRecord(suite.ctx, "docs", "a")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("first", record.Document)
	suite.Equal("pdf", record.Metadata["source"])
	suite.Len(record.Embedding, 4)

	_, err = suite.svc.GetRecord(suite.ctx, "docs", "z")
	suite.ErrorIs(err, ErrNotFound)

	_, err = suite.svc.GetRecord(suite.ctx, "docs", "")
	suite.ErrorIs(err, ErrInvalidArgument)
}

func (suite *vecViewTestSuite) TestPage() {
	rs, err := suite.svc.Page(suite.ctx, "docs", 1, 2)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(ResultKindListing, rs.Kind)
	suite.Equal([]string{"b", "c"}, ids(rs))
	suite.Empty(rs.Distances)
}

func (suite *vecViewTestSuite) TestPageInvalidWindow() {
	windows := [][2]int{{-1, 2}, {0, 0}, {0, -3}}

	for _, w := range windows {
		_, err := suite.svc.Page(suite.ctx, "docs", w[0], w[1])
		suite.ErrorIs(err, ErrInvalidArgument)
		suite.ErrorIs(err, ErrInvalidWindow)
	}
}

func (suite *vecViewTestSuite) TestPageBeyondEnd() {
	rs, err := suite.svc.Page(suite.ctx, "docs", 3, 10)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Empty(rs.Records)

	rs, err = suite.svc.Page(suite.ctx, "empty", 0, 10)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Empty(rs.Records)
}

func (suite *vecViewTestSuite) TestPageLimitTooLarge() {
	_, err := suite.svc.Page(suite.ctx, "docs", 0, 101)
	suite.ErrorIs(err, ErrInvalidArgument)
	suite.ErrorIs(err, ErrLimitTooLarge)
}

func (suite *vecViewTestSuite) TestPageIdempotent() {
	first, err := suite.svc.Page(suite.ctx, "docs", 0, 3)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	second, err := suite.svc.Page(suite.ctx, "docs", 0, 3)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(first, second)
}

func (suite *vecViewTestSuite) TestPagesConcatenate() {
	full, err := suite.svc.Page(suite.ctx, "docs", 0, 3)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	var joined []string
	for offset := 0; offset < 3; offset += 2 {
		rs, err := suite.svc.Page(suite.ctx, "docs", offset, 2)
		if err != nil {
			suite.Fail(err.Error())
			return
		}

		joined = append(joined, ids(rs)...)
	}

	suite.Equal(ids(full), joined)
}

func (suite *vecViewTestSuite) TestList() {
	query := ListQuery{
		Limit:  10,
		Filter: Filter{{Field: "source", Operator: OpEquals, Value: "web"}},
	}

	rs, err := suite.svc.List(suite.ctx, "docs", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]string{"b", "c"}, ids(rs))

	query = ListQuery{
		Offset: 1,
		Limit:  1,
		Filter: Filter{{Field: "page", Operator: OpGreaterThan, Value: 1}},
	}

	rs, err = suite.svc.List(suite.ctx, "docs", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]string{"c"}, ids(rs))
}

func (suite *vecViewTestSuite) TestListUnknownOperator() {
	query := ListQuery{
		Limit:  10,
		Filter: Filter{{Field: "source", Operator: "$regex", Value: "w.*"}},
	}

	_, err := suite.svc.List(suite.ctx, "docs", query)
	suite.ErrorIs(err, ErrInvalidArgument)
	suite.ErrorIs(err, ErrUnknownOperator)
}

func (suite *vecViewTestSuite) TestSimilaritySearch() {
	query := SimilarityQuery{
		Embedding: []float32{1, 0, 0, 0},
		K:         2,
	}

	rs, err := suite.svc.SimilaritySearch(suite.ctx, "docs", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(ResultKindSimilarity, rs.Kind)
	suite.Equal([]string{"b", "c"}, ids(rs))
	suite.Len(rs.Distances, 2)
	suite.InDelta(0.0, rs.Distances[0], 1e-6)
	suite.InDelta(0.292893, rs.Distances[1], 1e-5)
}

func (suite *vecViewTestSuite) TestSimilaritySearchByText() {
	query := SimilarityQuery{
		Text: "second",
		K:    1,
	}

	rs, err := suite.svc.SimilaritySearch(suite.ctx, "docs", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]string{"b"}, ids(rs))
}

func (suite *vecViewTestSuite) TestSimilaritySearchWithFilter() {
	query := SimilarityQuery{
		Embedding: []float32{0, 1, 0, 0},
		K:         1,
		Filter:    Filter{{Field: "page", Operator: OpGreaterThan, Value: "1"}},
	}

	rs, err := suite.svc.SimilaritySearch(suite.ctx, "docs", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]string{"c"}, ids(rs))
}

func (suite *vecViewTestSuite) TestSimilaritySearchKBeyondCount() {
	query := SimilarityQuery{
		Embedding: []float32{1, 0, 0, 0},
		K:         10,
	}

	rs, err := suite.svc.SimilaritySearch(suite.ctx, "docs", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]string{"b", "c", "a"}, ids(rs))
	suite.IsNonDecreasing(rs.Distances)
}

func (suite *vecViewTestSuite) TestListIdempotent() {
	query := ListQuery{
		Limit: 10,
		Filter: Filter{
			{Field: "source", Operator: OpEquals, Value: "web"},
			{Field: "page", Operator: OpGreaterThan, Value: 1},
		},
	}

	first, err := suite.svc.List(suite.ctx, "docs", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	second, err := suite.svc.List(suite.ctx, "docs", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]string{"b", "c"}, ids(first))
	suite.Equal(first, second)
}

func (suite *vecViewTestSuite) TestSimilaritySearchIdempotent() {
	query := SimilarityQuery{
		Embedding: []float32{1, 1, 1, 0},
		K:         3,
		Filter:    Filter{{Field: "page", Operator: OpLessThan, Value: 10}},
	}

	first, err := suite.svc.SimilaritySearch(suite.ctx, "docs", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	for range 5 {
		again, err := suite.svc.SimilaritySearch(suite.ctx, "docs", query)
		if err != nil {
			suite.Fail(err.Error())
			return
		}

		suite.Equal(first, again)
	}
}

func (suite *vecViewTestSuite) TestSimilaritySearchBreaksTiesByID() {
	query := SimilarityQuery{
		Embedding: []float32{0, 1, 1, 0},
		K:         1,
	}

	for range 5 {
		rs, err := suite.svc.SimilaritySearch(suite.ctx, "ties", query)
		if err != nil {
			suite.Fail(err.Error())
			return
		}

		suite.Equal([]string{"t1"}, ids(rs))
	}

	query.K = 2

	rs, err := suite.svc.SimilaritySearch(suite.ctx, "ties", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]string{"t1", "t2"}, ids(rs))

	if suite.Len(rs.Distances, 2) {
		suite.InDelta(rs.Distances[0], rs.Distances[1], 1e-6)
	}
}

func (suite *vecViewTestSuite) TestSimilaritySearchZeroEmbedding() {
	query := SimilarityQuery{
		Embedding: []float32{0, 0, 0, 0},
		K:         3,
	}

	rs, err := suite.svc.SimilaritySearch(suite.ctx, "docs", query)
	suite.Nil(rs)
	suite.ErrorIs(err, ErrInvalidArgument)
	suite.ErrorIs(err, ErrZeroEmbedding)
}

func (suite *vecViewTestSuite) TestSimilaritySearchDimensionMismatch() {
	query := SimilarityQuery{
		Embedding: []float32{1, 0, 0},
		K:         1,
	}

	_, err := suite.svc.SimilaritySearch(suite.ctx, "docs", query)
	suite.ErrorIs(err, ErrDimensionMismatch)

	var mismatch *DimensionMismatchError
	if suite.ErrorAs(err, &mismatch) {
		suite.Equal(4, mismatch.Expected)
		suite.Equal(3, mismatch.Actual)
	}
}

func (suite *vecViewTestSuite) TestSimilaritySearchInvalidK() {
	query := SimilarityQuery{
		Embedding: []float32{1, 0, 0, 0},
	}

	_, err := suite.svc.SimilaritySearch(suite.ctx, "docs", query)
	suite.ErrorIs(err, ErrInvalidArgument)
	suite.ErrorIs(err, ErrInvalidK)
}

func (suite *vecViewTestSuite) TestSimilaritySearchEmptyCollection() {
	query := SimilarityQuery{
		Embedding: []float32{1, 0, 0, 0},
		K:         3,
	}

	rs, err := suite.svc.SimilaritySearch(suite.ctx, "empty", query)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Empty(rs.Records)
}

func (suite *vecViewTestSuite) TearDownSuite() {
	if suite.svc != nil {
		suite.svc.Close()
	}

	suite.ctx = nil
	suite.svc = nil
}

func TestVecViewTestSuite(t *testing.T) {
	suite.Run(t, new(vecViewTestSuite))
}

func TestNewServiceWithoutStore(t *testing.T) {
	_, err := NewService(Config{}, nil, nil)
	require.ErrorIs(t, err, ErrStoreNotSet)
}

func TestNewServiceUnknownOperator(t *testing.T) {
	path := createFixtureStore(t)

	store, err := chromem.NewStore(context.Background(), vector.Config{Path: path})
	require.NoError(t, err)
	defer store.Close()

	cfg := Config{
		Query: QueryConfig{
			Operators: []Operator{OpEquals, "$regex"},
		},
	}

	_, err = NewService(cfg, store, nil)
	require.ErrorIs(t, err, ErrUnknownOperator)
}

func TestTextSearchWithoutEmbedder(t *testing.T) {
	path := createFixtureStore(t)

	store, err := chromem.NewStore(context.Background(), vector.Config{Path: path})
	require.NoError(t, err)

	svc, err := NewService(Config{}, store, nil)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.SimilaritySearch(context.Background(), "docs", SimilarityQuery{Text: "second", K: 1})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorIs(t, err, ErrEmbedderNotSet)
}

func TestOpenUnreachableStore(t *testing.T) {
	_, err := chromem.NewStore(context.Background(), vector.Config{
		Path: filepath.Join(t.TempDir(), "missing"),
	})

	require.ErrorIs(t, err, ErrConnection)
}

func TestClosedStore(t *testing.T) {
	path := createFixtureStore(t)

	store, err := chromem.NewStore(context.Background(), vector.Config{Path: path})
	require.NoError(t, err)

	svc, err := NewService(Config{}, store, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Close())

	_, err = svc.Page(context.Background(), "docs", 0, 1)
	require.ErrorIs(t, err, ErrConnection)
}
