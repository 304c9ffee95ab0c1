package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/vecview"
)

const (
	CodeBadRequest        = "400"
	CodeNotFound          = "404"
	CodeDimensionMismatch = "422"
	CodeInternal          = "500"
	CodeUnavailable       = "503"
	CodeFailed            = "417"
)

const HeaderRequestID = "request_id"

// ErrorCode maps service errors to micro error codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, vecview.ErrDimensionMismatch):
		return CodeDimensionMismatch

	case errors.Is(err, vecview.ErrInvalidArgument):
		return CodeBadRequest

	case errors.Is(err, vecview.ErrNotFound):
		return CodeNotFound

	case errors.Is(err, vecview.ErrConnection):
		return CodeUnavailable

	default:
		return CodeFailed
	}
}

func requestContext(r micro.Request) context.Context {
	ctx := context.Background()

	requestID := r.Headers().Get(HeaderRequestID)
	if requestID != "" {
		ctx = context.WithValue(ctx, vecview.RequestID, requestID)
	}

	return ctx
}

func ListCollectionsHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := requestContext(r)
		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(ErrorCode(err), err.Error(), nil)
			return
		}

		names, ok := resp.([]string)
		if !ok {
			r.Error(CodeInternal, "invalid response type", nil)
			return
		}

		r.RespondJSON(&names)
	}
}

func DescribeCollectionHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		collection := string(r.Data())
		if collection == "" {
			r.Error(CodeBadRequest, "collection is required", nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, collection)
		if err != nil {
			r.Error(ErrorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func GetRecordHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req vecview.GetRecordRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error(CodeBadRequest, err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(ErrorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func ListRecordsHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req vecview.ListRecordsRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error(CodeBadRequest, err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(ErrorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func SimilaritySearchHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req vecview.SimilaritySearchRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error(CodeBadRequest, err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(ErrorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}
