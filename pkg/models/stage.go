package models

// Stage is the position of a single request in the ingestion pipeline.
// Transitions only move forward; any failure jumps straight to StageFailed.
type Stage string

const (
	StageReceived   Stage = "RECEIVED"
	StageValidating Stage = "VALIDATING"
	StageFetching   Stage = "FETCHING"
	StageProcessing Stage = "PROCESSING"
	StageParsed     Stage = "PARSED"
	StageFailed     Stage = "FAILED"
)
