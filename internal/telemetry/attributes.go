package telemetry

import "go.opentelemetry.io/otel/attribute"

var (
	// AttrRoute is the logical endpoint a RED metric belongs to (e.g. "/process")
	AttrRoute = attribute.Key("route")

	// AttrTaskIndex is the index of a simulated internal task
	AttrTaskIndex = attribute.Key("task.index")

	// AttrComputeCount is the number of iterations requested from /compute
	AttrComputeCount = attribute.Key("compute.count")

	// AttrRequestID carries the X-Request-ID of the inbound request
	AttrRequestID = attribute.Key("http.request_id")
)
