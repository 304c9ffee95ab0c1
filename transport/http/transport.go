package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/vecview"
)

const FormatTable = "table"

// StatusCode maps service errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, vecview.ErrInvalidArgument),
		errors.Is(err, vecview.ErrDimensionMismatch):
		return http.StatusBadRequest

	case errors.Is(err, vecview.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, vecview.ErrConnection):
		return http.StatusServiceUnavailable

	default:
		return http.StatusExpectationFailed
	}
}

func abort(c *gin.Context, code int, err error) {
	c.String(code, err.Error())
	c.Error(err)
	c.Abort()
}

func ListCollectionsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abort(c, StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func DescribeCollectionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		collection := c.Param("collection")
		if collection == "" {
			abort(c, http.StatusBadRequest, errors.New("collection is required"))
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, collection)
		if err != nil {
			abort(c, StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func GetRecordHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req vecview.GetRecordRequest
		if err := c.ShouldBindUri(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

type listRecordsQuery struct {
	Offset int    `form:"offset"`
	Limit  int    `form:"limit"`
	Where  string `form:"where"`
	Format string `form:"format"`
}

// ListRecordsHandler serves GET requests with the window and a JSON encoded
// where document in the query string.
func ListRecordsHandler(endpoint endpoint.Endpoint, opts vecview.TableOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query listRecordsQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		req := vecview.ListRecordsRequest{
			Collection: c.Param("collection"),
			Offset:     query.Offset,
			Limit:      query.Limit,
		}

		if query.Where != "" {
			if err := json.Unmarshal([]byte(query.Where), &req.Where); err != nil {
				abort(c, http.StatusBadRequest, err)
				return
			}
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusCode(err), err)
			return
		}

		respond(c, resp, query.Format, opts)
	}
}

func QueryRecordsHandler(endpoint endpoint.Endpoint, opts vecview.TableOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req vecview.ListRecordsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		req.Collection = c.Param("collection")

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusCode(err), err)
			return
		}

		respond(c, resp, c.Query("format"), opts)
	}
}

func SimilaritySearchHandler(endpoint endpoint.Endpoint, opts vecview.TableOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req vecview.SimilaritySearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		req.Collection = c.Param("collection")

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusCode(err), err)
			return
		}

		respond(c, resp, c.Query("format"), opts)
	}
}

func respond(c *gin.Context, resp any, format string, opts vecview.TableOptions) {
	rs, ok := resp.(*vecview.ResultSet)
	if !ok {
		abort(c, http.StatusInternalServerError, vecview.ErrInvalidResponseType)
		return
	}

	if format == FormatTable {
		table := vecview.ToTable(rs, opts)
		c.JSON(http.StatusOK, &table)
		return
	}

	c.JSON(http.StatusOK, rs)
}
