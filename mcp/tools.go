package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/vecview"
)

const (
	ToolListCollections    = "list_collections"
	ToolDescribeCollection = "describe_collection"
	ToolGetRecord          = "get_record"
	ToolListRecords        = "list_records"
	ToolSimilaritySearch   = "similarity_search"
)

var ErrUnknownTool = errors.New("unknown tool")

func whereProperty() mcp.ToolOption {
	return mcp.WithObject("where",
		mcp.Description(`Metadata filter, e.g. {"source": "web", "page": {"$gt": 3}}`),
	)
}

// Tools describes the viewer operations as read-only MCP tools. Argument
// names follow the JSON fields of the endpoint requests.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolListCollections,
			mcp.WithDescription("List the collections of the vector store"),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		mcp.NewTool(ToolDescribeCollection,
			mcp.WithDescription("Show the record count, embedding dimension and schema of a collection"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("collection", mcp.Required()),
		),
		mcp.NewTool(ToolGetRecord,
			mcp.WithDescription("Fetch one record by id"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("collection", mcp.Required()),
			mcp.WithString("id", mcp.Required()),
		),
		mcp.NewTool(ToolListRecords,
			mcp.WithDescription("Page through the records of a collection, optionally filtered by metadata"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("collection", mcp.Required()),
			mcp.WithNumber("offset", mcp.Min(0)),
			mcp.WithNumber("limit", mcp.Min(1)),
			whereProperty(),
		),
		mcp.NewTool(ToolSimilaritySearch,
			mcp.WithDescription("Find the k records nearest to a query text or embedding"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("collection", mcp.Required()),
			mcp.WithString("text", mcp.Description("Query text, embedded by the configured model")),
			mcp.WithArray("embedding",
				mcp.Description("Query embedding, used instead of text when given"),
				mcp.Items(map[string]any{"type": "number"}),
			),
			mcp.WithNumber("k", mcp.Min(1)),
			whereProperty(),
		),
	}
}

// CallTool dispatches a tool call to the endpoints. Service failures are
// reported as tool results with IsError set; malformed arguments fail the
// call.
func CallTool(ctx context.Context, endpoints vecview.EndpointSet, opts vecview.TableOptions, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		resp any
		err  error
	)

	switch req.Params.Name {
	case ToolListCollections:
		resp, err = endpoints.ListCollections(ctx, nil)

	case ToolDescribeCollection:
		var args struct {
			Collection string `json:"collection"`
		}

		if err := req.BindArguments(&args); err != nil {
			return nil, err
		}

		resp, err = endpoints.DescribeCollection(ctx, args.Collection)

	case ToolGetRecord:
		var args vecview.GetRecordRequest
		if err := req.BindArguments(&args); err != nil {
			return nil, err
		}

		resp, err = endpoints.GetRecord(ctx, args)

	case ToolListRecords:
		var args vecview.ListRecordsRequest
		if err := req.BindArguments(&args); err != nil {
			return nil, err
		}

		resp, err = endpoints.ListRecords(ctx, args)

	case ToolSimilaritySearch:
		var args vecview.SimilaritySearchRequest
		if err := req.BindArguments(&args); err != nil {
			return nil, err
		}

		resp, err = endpoints.SimilaritySearch(ctx, args)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, req.Params.Name)
	}

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if rs, ok := resp.(*vecview.ResultSet); ok {
		resp = vecview.ToTable(rs, opts)
	}

	bs, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(bs)), nil
}
