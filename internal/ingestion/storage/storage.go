// Package storage writes uploaded documents to the shared volume that
// downstream workers read from.
package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/docuflow/ai-doc-ingestion/pkg/errors"
)

// DocumentExt is the extension every stored document carries; the service
// only accepts PDF uploads.
const DocumentExt = ".pdf"

// Placer writes uploaded byte streams to deterministic paths under a shared
// root directory.
type Placer struct {
	root   string
	logger *slog.Logger
}

// NewPlacer creates a Placer rooted at dir, creating the directory if needed.
func NewPlacer(dir string) (*Placer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating shared root %s: %w", dir, err)
	}
	return &Placer{
		root:   dir,
		logger: slog.Default().With("component", "storage-placer"),
	}, nil
}

// Root returns the shared root directory.
func (p *Placer) Root() string {
	return p.root
}

// PathFor returns the final storage path for a job ID. This path is embedded
// in the broker message and is the contract downstream workers rely on.
func (p *Placer) PathFor(jobID string) string {
	return filepath.Join(p.root, jobID+DocumentExt)
}

// Place streams src in full to the path for jobID and returns that path. The
// bytes are first written to a temp file in the same directory, synced, and
// renamed into place, so a crash mid-write never leaves a partial document at
// the final path. Concurrent writes for the same job ID race; the last rename
// wins.
func (p *Placer) Place(jobID string, src io.Reader) (string, error) {
	final := p.PathFor(jobID)

	tmp, err := os.CreateTemp(p.root, ".upload-"+jobID+"-*")
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrStorageIO, 500, "creating temp file: %v", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-ops once the rename has succeeded.
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return "", apperrors.Newf(apperrors.ErrStorageIO, 500, "writing upload: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", apperrors.Newf(apperrors.ErrStorageIO, 500, "syncing upload: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return "", apperrors.Newf(apperrors.ErrStorageIO, 500, "closing upload: %v", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return "", apperrors.Newf(apperrors.ErrStorageIO, 500, "placing upload: %v", err)
	}

	p.logger.Info("document stored", "job_id", jobID, "path", final)
	return final, nil
}

// Writable probes whether the shared root accepts writes. Used by the
// readiness check.
func (p *Placer) Writable() error {
	probe, err := os.CreateTemp(p.root, ".probe-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
