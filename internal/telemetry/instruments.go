package telemetry

const (
	TasksExecutedName   = "internal_tasks_executed"
	RequestsTotalName   = "http_requests_total"
	ErrorsTotalName     = "http_errors_total"
	RequestDurationName = "http_request_duration_ms"
)

type instrumentDefinition struct {
	description string
	unit        string
}

var catalog = map[string]instrumentDefinition{
	TasksExecutedName: {
		description: "Number of internal tasks executed",
		unit:        "{task}",
	},
	RequestsTotalName: {
		description: "Total number of HTTP requests received",
		unit:        "{request}",
	},
	ErrorsTotalName: {
		description: "Total number of HTTP error responses",
		unit:        "{error}",
	},
	RequestDurationName: {
		description: "Duration of HTTP requests in milliseconds",
		unit:        "ms",
	},
}
