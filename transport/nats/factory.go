package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/vecview"
)

func MakeEndpoints(nc *nats.Conn, prefix string) *vecview.EndpointSet {
	return &vecview.EndpointSet{
		ListCollections:    ListCollectionsEndpoint(nc, prefix+".list_collections"),
		DescribeCollection: DescribeCollectionEndpoint(nc, prefix+".describe_collection"),
		GetRecord:          GetRecordEndpoint(nc, prefix+".get_record"),
		ListRecords:        ListRecordsEndpoint(nc, prefix+".list_records"),
		SimilaritySearch:   SimilaritySearchEndpoint(nc, prefix+".similarity_search"),
	}
}

func request(ctx context.Context, nc *nats.Conn, topic string, data []byte) (*nats.Msg, error) {
	msg := nats.NewMsg(topic)
	msg.Data = data

	requestID, ok := ctx.Value(vecview.RequestID).(string)
	if ok {
		msg.Header.Set(HeaderRequestID, requestID)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, nats.DefaultTimeout)
		defer cancel()
	}

	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", vecview.ErrConnection, err)
	}

	if err := Error(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func ListCollectionsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		resp, err := requestJSON(ctx, nc, topic, nil)
		if err != nil {
			return nil, err
		}

		var names []string
		if err := json.Unmarshal(resp.Data, &names); err != nil {
			return nil, err
		}

		return names, nil
	}
}

func DescribeCollectionEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		collection, ok := req.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := request(ctx, nc, topic, []byte(collection))
		if err != nil {
			return nil, err
		}

		var info *vecview.CollectionInfo
		if err := json.Unmarshal(resp.Data, &info); err != nil {
			return nil, err
		}

		return info, nil
	}
}

func GetRecordEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r, ok := req.(vecview.GetRecordRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := requestJSON(ctx, nc, topic, &r)
		if err != nil {
			return nil, err
		}

		var record *vecview.Record
		if err := json.Unmarshal(resp.Data, &record); err != nil {
			return nil, err
		}

		return record, nil
	}
}

func ListRecordsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r, ok := req.(vecview.ListRecordsRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := requestJSON(ctx, nc, topic, &r)
		if err != nil {
			return nil, err
		}

		var rs *vecview.ResultSet
		if err := json.Unmarshal(resp.Data, &rs); err != nil {
			return nil, err
		}

		return rs, nil
	}
}

func SimilaritySearchEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r, ok := req.(vecview.SimilaritySearchRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := requestJSON(ctx, nc, topic, &r)
		if err != nil {
			return nil, err
		}

		var rs *vecview.ResultSet
		if err := json.Unmarshal(resp.Data, &rs); err != nil {
			return nil, err
		}

		return rs, nil
	}
}

func requestJSON(ctx context.Context, nc *nats.Conn, topic string, v any) (*nats.Msg, error) {
	var data []byte
	if v != nil {
		bs, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}

		data = bs
	}

	return request(ctx, nc, topic, data)
}

// Error converts a micro error response back into a service error.
func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	switch code {
	case CodeBadRequest:
		return fmt.Errorf("%w: %s", vecview.ErrInvalidArgument, description)

	case CodeDimensionMismatch:
		return fmt.Errorf("%w: %s", vecview.ErrDimensionMismatch, description)

	case CodeNotFound:
		return fmt.Errorf("%w: %s", vecview.ErrNotFound, description)

	case CodeUnavailable:
		return fmt.Errorf("%w: %s", vecview.ErrConnection, description)

	default:
		return errors.New(code + ":" + description)
	}
}
