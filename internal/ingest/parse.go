package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"fitcheck-ingest/pkg/models"
	"fitcheck-ingest/pkg/utils"
)

// jobPostingReply requires every key to be present; a null or missing value leaves the pointer nil
type jobPostingReply struct {
	Title       *string `json:"title"`
	Company     *string `json:"company"`
	Description *string `json:"description"`
}

// ExtractJSONSpan returns the text from the first '{' through the last '}' of reply
func ExtractJSONSpan(reply string) (string, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return "", false
	}
	return reply[start : end+1], true
}

// ParseJobPosting parses an untrusted model reply into a JobPosting.
// Anything short of one JSON object carrying all three string keys is an extraction failure.
func ParseJobPosting(reply string) (*models.JobPosting, error) {
	span, ok := ExtractJSONSpan(reply)
	if !ok {
		return nil, utils.NewExtractionError("model reply contains no JSON object", nil)
	}

	var parsed jobPostingReply
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return nil, utils.NewExtractionError("model reply is not valid job JSON", err)
	}

	var missing []string
	if parsed.Title == nil {
		missing = append(missing, "title")
	}
	if parsed.Company == nil {
		missing = append(missing, "company")
	}
	if parsed.Description == nil {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, utils.NewExtractionError(fmt.Sprintf("model reply missing %s", strings.Join(missing, ", ")), nil)
	}

	return &models.JobPosting{
		Title:       *parsed.Title,
		Company:     *parsed.Company,
		Description: *parsed.Description,
	}, nil
}
