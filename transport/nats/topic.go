package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/vecview"
)

func AddEndpoints(group micro.Group, endpoints vecview.EndpointSet) {
	group.AddEndpoint("list_collections", ListCollectionsHandler(endpoints.ListCollections))
	group.AddEndpoint("describe_collection", DescribeCollectionHandler(endpoints.DescribeCollection))
	group.AddEndpoint("get_record", GetRecordHandler(endpoints.GetRecord))
	group.AddEndpoint("list_records", ListRecordsHandler(endpoints.ListRecords))
	group.AddEndpoint("similarity_search", SimilaritySearchHandler(endpoints.SimilaritySearch))
}
