package dto

type SubmitResponse struct {
	JobID     string `json:"job_id"`
	State     string `json:"state"`
	StatusURL string `json:"status_url"`
	ResultURL string `json:"result_url"`
}

type StatusResponse struct {
	JobID    string `json:"job_id"`
	State    string `json:"state"`
	Progress int    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// Machine-readable error codes surfaced at the HTTP boundary.
const (
	CodeValidation       = "validation_error"
	CodeQueueUnavailable = "queue_unavailable"
	CodeNotFound         = "not_found"
	CodeNotReady         = "not_ready"
	CodeExpired          = "result_expired"
	CodeInternal         = "internal_error"
)
