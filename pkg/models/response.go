package models

import "time"

// ExtractedText is the success body of the resume extraction endpoint
type ExtractedText struct {
	Text string `json:"text"`
}

// ErrorResponse represents an error response.
// Details carries an internal diagnostic string and is omitted when empty.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`

	Stats map[string]interface{} `json:"stats,omitempty"`
}
