package ingest

import "fmt"

// BuildJobExtractionPrompt creates the prompt asking the model for exactly one
// JSON object with title, company and description
func BuildJobExtractionPrompt(pageText string) string {
	return fmt.Sprintf(`You are a job posting analyzer. The content below is the visible text of a job posting webpage.

Extract the job information and return it as a single JSON object with exactly these fields:

{
  "title": "string - The job title",
  "company": "string - The hiring company's name",
  "description": "string - The job description, including responsibilities and requirements"
}

IMPORTANT RULES:
1. Return ONLY the JSON object, no additional text or explanation
2. All three fields must be present and must be strings
3. If a value cannot be found, use an empty string ""
4. Do not invent information that is not in the content

JOB POSTING CONTENT:
%s`, pageText)
}
