// Package ingestion defines the request/response types and the job message
// schema used by the document ingestion pipeline.
package ingestion

// StatusQueued is the only status this service ever assigns. Downstream
// workers own every later state transition.
const StatusQueued = "queued"

// Request holds the multipart form fields accepted by the /ingest endpoint.
// The uploaded document itself travels separately as the file part.
type Request struct {
	JobID            string
	ProblemStatement string
	UserIdeas        string
	UserTechstack    string
}

// Response is returned to the caller once the file is on shared storage. It
// acknowledges receipt of the file, not delivery of the broker message.
type Response struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Job is the message published to the broker after the document is durably
// written. FilePath points at the stored document on the shared volume and is
// the contract downstream workers rely on.
type Job struct {
	JobID            string `json:"job_id"`
	ProblemStatement string `json:"problem_statement"`
	UserIdeas        string `json:"user_ideas"`
	UserTechstack    string `json:"user_techstack"`
	FilePath         string `json:"file_path"`
	Status           string `json:"status"`
}

// NewJob builds the broker message for a stored document.
func NewJob(req Request, filePath string) Job {
	return Job{
		JobID:            req.JobID,
		ProblemStatement: req.ProblemStatement,
		UserIdeas:        req.UserIdeas,
		UserTechstack:    req.UserTechstack,
		FilePath:         filePath,
		Status:           StatusQueued,
	}
}
