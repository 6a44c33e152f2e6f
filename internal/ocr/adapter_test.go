package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/docuflow/ai-doc-ingestion/pkg/config"
	apperrors "github.com/docuflow/ai-doc-ingestion/pkg/errors"
)

func testOCRConfig() config.OCRConfig {
	return config.OCRConfig{
		ProjectID:   "proj-123",
		Location:    "us",
		ProcessorID: "proc-456",
	}
}

func TestMimeTypeTable(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/shared_data/job-1.pdf", "application/pdf"},
		{"/shared_data/scan.PDF", "application/pdf"},
		{"photo.jpg", "image/jpeg"},
		{"photo.jpeg", "image/jpeg"},
		{"scan.png", "image/png"},
		{"fax.tiff", "image/tiff"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := MimeType(tt.path)
			if err != nil {
				t.Fatalf("MimeType(%q) returned error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("MimeType(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMimeTypeUnsupported(t *testing.T) {
	for _, path := range []string{"resume.docx", "notes.txt", "archive", "image.gif"} {
		t.Run(path, func(t *testing.T) {
			_, err := MimeType(path)
			if err == nil {
				t.Fatalf("MimeType(%q) = nil error, want unsupported-type error", path)
			}
			if !errors.Is(err, apperrors.ErrUnsupportedFileType) {
				t.Errorf("error = %v, want ErrUnsupportedFileType", err)
			}
		})
	}
}

// An unsupported extension must fail before any file or network I/O, so no
// credentials or connectivity are needed for this path.
func TestExtractTextUnsupportedExtensionFailsEarly(t *testing.T) {
	a, err := New(testOCRConfig())
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.ExtractText(context.Background(), "/nonexistent/resume.docx")
	if !errors.Is(err, apperrors.ErrUnsupportedFileType) {
		t.Errorf("error = %v, want ErrUnsupportedFileType", err)
	}
}

// A supported extension pointing at a missing file fails at the read, still
// before any network call.
func TestExtractTextMissingFile(t *testing.T) {
	a, err := New(testOCRConfig())
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.ExtractText(context.Background(), "/nonexistent/resume.pdf")
	if err == nil {
		t.Fatal("ExtractText should fail for a missing file")
	}
	if errors.Is(err, apperrors.ErrUnsupportedFileType) {
		t.Error("missing file must not be reported as an unsupported type")
	}
}

func TestNewRequiresProcessorTriple(t *testing.T) {
	if _, err := New(config.OCRConfig{ProjectID: "p"}); err == nil {
		t.Fatal("New should fail with an incomplete processor configuration")
	}
}

func TestProcessorNameAndEndpoint(t *testing.T) {
	a, err := New(testOCRConfig())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := a.processorName(), "projects/proj-123/locations/us/processors/proc-456"; got != want {
		t.Errorf("processorName() = %q, want %q", got, want)
	}
	if got, want := a.endpoint(), "us-documentai.googleapis.com:443"; got != want {
		t.Errorf("endpoint() = %q, want %q", got, want)
	}
}
