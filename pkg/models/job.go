package models

// JobPosting is the structured job information extracted from a rendered page.
// All three fields are required in the model output; content is not checked for plausibility.
type JobPosting struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

// RenderedPage is the text snapshot returned by a rendering engine
type RenderedPage struct {
	URL       string `json:"url"`
	RawText   string `json:"raw_text"`
	Engine    string `json:"engine"`
	Truncated bool   `json:"truncated"`
}
