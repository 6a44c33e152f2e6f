// Package ocr extracts plain text from stored documents using Google Cloud
// Document AI. It is a stateless adapter: one synchronous call per document,
// no batching, no partial results.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/docuflow/ai-doc-ingestion/pkg/config"
	apperrors "github.com/docuflow/ai-doc-ingestion/pkg/errors"
)

// mimeTypes maps supported file extensions to the transfer MIME type declared
// to the processing service.
var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".tiff": "image/tiff",
}

// Adapter calls a configured Document AI processor.
type Adapter struct {
	cfg    config.OCRConfig
	logger *slog.Logger
}

// New creates an Adapter. The processor triple must be fully configured;
// a missing value is a startup-time misconfiguration.
func New(cfg config.OCRConfig) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		cfg:    cfg,
		logger: slog.Default().With("component", "ocr-adapter"),
	}, nil
}

// MimeType returns the transfer MIME type for a file path based on its
// extension, or an unsupported-type error for anything outside the table.
func MimeType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := mimeTypes[ext]
	if !ok {
		return "", apperrors.Newf(apperrors.ErrUnsupportedFileType, 400, "unsupported file extension: %s", ext)
	}
	return mime, nil
}

// processorName returns the fully qualified Document AI processor resource.
func (a *Adapter) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		a.cfg.ProjectID, a.cfg.Location, a.cfg.ProcessorID)
}

// endpoint returns the regional Document AI API endpoint.
func (a *Adapter) endpoint() string {
	return fmt.Sprintf("%s-documentai.googleapis.com:443", a.cfg.Location)
}

// ExtractText reads the file at path, sends it to the configured processor,
// and returns the document's extracted text. The extension is mapped to a
// MIME type and the file is read fully into memory before any network call;
// an unsupported extension fails without touching the service. Transport and
// service errors propagate unmodified.
func (a *Adapter) ExtractText(ctx context.Context, path string) (string, error) {
	mime, err := MimeType(path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading document %s: %w", path, err)
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(a.endpoint()))
	if err != nil {
		return "", fmt.Errorf("creating document processor client: %w", err)
	}
	defer client.Close()

	req := &documentaipb.ProcessRequest{
		Name: a.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mime,
			},
		},
	}
	resp, err := client.ProcessDocument(ctx, req)
	if err != nil {
		return "", fmt.Errorf("processing document %s: %w", path, err)
	}

	text := resp.GetDocument().GetText()
	a.logger.Info("document processed",
		"path", path,
		"mime_type", mime,
		"text_length", len(text),
	)
	return text, nil
}
