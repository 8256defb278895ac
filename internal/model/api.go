package model

// Envelope shapes returned by the API. The list response carries the same
// slice under both "logs" and "results" for compatibility with older
// consumers of the backend.

// ListLogsResponse is the GET /api/logs response body.
type ListLogsResponse struct {
	Status  string     `json:"status"`
	Logs    []LogEntry `json:"logs"`
	Results []LogEntry `json:"results"`
	Count   int        `json:"count"`
}

// SubmitLogResponse is the POST /api/logs response body.
type SubmitLogResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Log     *LogEntry `json:"log"`
}

// KeyResponse is the POST /api/key/generate response body.
type KeyResponse struct {
	Status string `json:"status"`
	APIKey string `json:"api_key"`
}

// StatusResponse is the generic {status, message} envelope used by
// /api/health and by error responses.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
