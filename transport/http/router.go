package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/vecview"

	mcpE "github.com/flarexio/vecview/mcp"
)

func AddRouters(r *gin.Engine, endpoints vecview.EndpointSet, opts vecview.TableOptions) {
	// RESTful API routes
	api := r.Group("/api", RequestIDMiddleware())
	{
		api.GET("/collections", ListCollectionsHandler(endpoints.ListCollections))
		api.GET("/collections/:collection", DescribeCollectionHandler(endpoints.DescribeCollection))
		api.GET("/collections/:collection/records", ListRecordsHandler(endpoints.ListRecords, opts))
		api.POST("/collections/:collection/records/query", QueryRecordsHandler(endpoints.ListRecords, opts))
		api.GET("/collections/:collection/records/:id", GetRecordHandler(endpoints.GetRecord))
		api.POST("/collections/:collection/search", SimilaritySearchHandler(endpoints.SimilaritySearch, opts))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp", RequestIDMiddleware())
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
