package handler

// ProcessResponseDTO reports a completed batch of internal tasks
// @swagger:model ProcessResponseDTO
type ProcessResponseDTO struct {
	// Always "completed"
	Status string `json:"status"`
	// The number of internal tasks run by the request
	TasksExecuted int `json:"tasks_executed"`
	// Wall-clock duration of the request in seconds
	DurationSeconds float64 `json:"duration_s"`
}

// ComputeResponseDTO reports a finished compute loop
// @swagger:model ComputeResponseDTO
type ComputeResponseDTO struct {
	// Always "compute done"
	Status string `json:"status"`
	// The number of simulated tasks performed
	Iterations int `json:"iterations"`
	// Wall-clock duration of the request in seconds
	DurationSeconds float64 `json:"duration_s"`
}

// ExternalCallResponseDTO reports the outcome of a simulated external call
// @swagger:model ExternalCallResponseDTO
type ExternalCallResponseDTO struct {
	// Always "external result"
	Status string `json:"status"`
	// The data returned by the simulated dependency
	Data ExternalResultDTO `json:"data"`
	// Wall-clock duration of the request in seconds
	DurationSeconds float64 `json:"duration_s"`
}

// ExternalResultDTO is the payload of the simulated dependency
// @swagger:model ExternalResultDTO
type ExternalResultDTO struct {
	// The latency of the dependency in seconds, within [0.05, 0.2)
	LatencySeconds float64 `json:"latency_s"`
	// Always "ok"
	Result string `json:"result"`
}

type HealthResponseDTO struct {
	Status string `json:"status"`
}
