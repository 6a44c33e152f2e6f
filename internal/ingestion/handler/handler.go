// Package handler implements the multipart /ingest HTTP endpoint. A request
// is acknowledged as soon as the document is durably on shared storage; the
// broker publish runs afterwards on the dispatcher and its outcome is never
// part of the response.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/docuflow/ai-doc-ingestion/internal/ingestion"
	"github.com/docuflow/ai-doc-ingestion/internal/ingestion/validator"
	apperrors "github.com/docuflow/ai-doc-ingestion/pkg/errors"
	"github.com/docuflow/ai-doc-ingestion/pkg/logger"
	"github.com/docuflow/ai-doc-ingestion/pkg/metrics"
)

// expectedContentType is the only declared media type accepted for the file
// part. The check is declared-type only; file contents are not inspected.
const expectedContentType = "application/pdf"

// filePartName is the multipart field carrying the document.
const filePartName = "user_resume"

// Placer persists an uploaded byte stream and returns its final path.
type Placer interface {
	Place(jobID string, src io.Reader) (string, error)
}

// Enqueuer schedules a deferred broker publish.
type Enqueuer interface {
	Enqueue(job ingestion.Job)
}

// Handler serves the ingestion endpoint.
type Handler struct {
	placer         Placer
	dispatcher     Enqueuer
	metrics        *metrics.Metrics
	maxUploadBytes int64
	logger         *slog.Logger
}

// New creates a Handler. m may be nil, in which case no metrics are recorded.
func New(placer Placer, dispatcher Enqueuer, m *metrics.Metrics, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Handler{
		placer:         placer,
		dispatcher:     dispatcher,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
		logger:         slog.Default().With("component", "ingestion-handler"),
	}
}

// Ingest accepts a multipart form with the job fields and a single PDF
// attachment. The write to shared storage is synchronous; the broker publish
// is scheduled after the response and never affects it.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.countIngest("invalid")
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := ingestion.Request{
		JobID:            r.FormValue("job_id"),
		ProblemStatement: r.FormValue("problem_statement"),
		UserIdeas:        r.FormValue("user_ideas"),
		UserTechstack:    r.FormValue("user_techstack"),
	}
	if err := validator.ValidateRequest(&req); err != nil {
		h.countIngest("invalid")
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile(filePartName)
	if err != nil {
		h.countIngest("invalid")
		h.writeError(w, http.StatusBadRequest, "file part user_resume is required")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != expectedContentType {
		h.countIngest("invalid")
		h.writeError(w, http.StatusBadRequest, "Invalid file type. Only PDF allowed.")
		return
	}

	path, err := h.placer.Place(req.JobID, file)
	if err != nil {
		h.countIngest("storage_error")
		log.Error("failed to store upload",
			"job_id", req.JobID,
			"error", err,
		)
		h.writeError(w, apperrors.HTTPStatusCode(err), "Could not save the uploaded file.")
		return
	}

	// The response below acknowledges file receipt only. The publish runs on
	// the dispatcher, detached from this request, and a later failure there
	// is observable only in logs and metrics.
	h.dispatcher.Enqueue(ingestion.NewJob(req, path))

	h.countIngest("queued")
	if h.metrics != nil {
		h.metrics.UploadBytes.Observe(float64(header.Size))
	}
	log.Info("document ingested",
		"job_id", req.JobID,
		"file_path", path,
		"size_bytes", header.Size,
	)
	h.writeJSON(w, http.StatusOK, ingestion.Response{
		JobID:  req.JobID,
		Status: ingestion.StatusQueued,
	})
}

func (h *Handler) countIngest(outcome string) {
	if h.metrics != nil {
		h.metrics.IngestsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
