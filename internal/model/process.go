package model

// ProcessResponse is the body returned by the processing service.
// Both fields are base64-encoded audio.
type ProcessResponse struct {
	Original  string `json:"original"`
	Processed string `json:"processed"`
}

// ProcessResult is the response for POST /api/v1/process.
type ProcessResult struct {
	Original string `json:"original"`
	Mixed    string `json:"mixed"`
}

// ErrorResponse is the body for any failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}
