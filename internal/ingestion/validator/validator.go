// Package validator provides input validation for ingestion requests. It
// enforces required form fields and returns per-field error details.
package validator

import (
	"fmt"
	"strings"

	"github.com/docuflow/ai-doc-ingestion/internal/ingestion"
)

const maxFieldLength = 65536

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateRequest checks that every required form field is present and that
// the job ID is usable as a filesystem path component. The job ID is
// normalized in place by trimming surrounding whitespace, so the stored
// filename always matches the ID published to the broker; the free-text
// fields are forwarded verbatim. Uniqueness of the job ID is the caller's
// responsibility and is not checked here.
func ValidateRequest(req *ingestion.Request) error {
	errs := make(map[string]string)

	req.JobID = strings.TrimSpace(req.JobID)
	switch {
	case req.JobID == "":
		errs["job_id"] = "job_id is required"
	case strings.ContainsAny(req.JobID, `/\`) || req.JobID == "." || req.JobID == "..":
		errs["job_id"] = "job_id must be a valid filename component"
	case len(req.JobID) > 255:
		errs["job_id"] = "job_id must be at most 255 characters"
	}

	requireText(errs, "problem_statement", req.ProblemStatement)
	requireText(errs, "user_ideas", req.UserIdeas)
	requireText(errs, "user_techstack", req.UserTechstack)

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func requireText(errs map[string]string, field, value string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		errs[field] = fmt.Sprintf("%s is required and must not be empty", field)
	} else if len(trimmed) > maxFieldLength {
		errs[field] = fmt.Sprintf("%s must be at most %d characters", field, maxFieldLength)
	}
}
