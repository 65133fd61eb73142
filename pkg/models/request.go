package models

// ExtractionRequest represents the request payload for extracting text from an uploaded resume
type ExtractionRequest struct {
	FileData string `json:"fileData" validate:"required"`
	FileName string `json:"fileName,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// JobFetchRequest represents the request payload for ingesting a job posting by URL
type JobFetchRequest struct {
	JobURL string `json:"jobUrl" validate:"required,absolute_url"`
}
