package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"veobatch/internal/domain"
	"veobatch/pkg/zip"
)

// Exporter saves finished videos into a downloads directory, the local
// equivalent of handing the file to the user.
type Exporter struct {
	store *FileStore
}

// NewExporter creates an exporter writing into store.
func NewExporter(store *FileStore) *Exporter {
	return &Exporter{store: store}
}

// FileName is the name a job's video is exported under.
func FileName(jobID string) string {
	return fmt.Sprintf("veo2-%s.mp4", strings.TrimSpace(jobID))
}

// Export writes data for job. Empty payloads are rejected since there is
// nothing to hand over.
func (e *Exporter) Export(ctx context.Context, job domain.Job, data []byte) (string, error) {
	if e == nil || e.store == nil {
		return "", errors.New("storage: exporter not configured")
	}
	if len(data) == 0 {
		return "", errors.New("storage: no video data to export")
	}
	return e.store.Write(ctx, FileName(job.ID), data)
}

// Archive bundles the exported videos of the given jobs into one zip. Jobs
// without an export on disk are skipped; domain.ErrNotFound is returned when
// none could be found.
func (e *Exporter) Archive(ctx context.Context, jobIDs []string) ([]byte, error) {
	if e == nil || e.store == nil {
		return nil, errors.New("storage: exporter not configured")
	}
	assets := make([]zip.Asset, 0, len(jobIDs))
	for _, id := range jobIDs {
		name := FileName(id)
		data, err := e.store.Read(ctx, name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		assets = append(assets, zip.Asset{Filename: name, MIME: "video/mp4", Data: data})
	}
	if len(assets) == 0 {
		return nil, domain.ErrNotFound
	}
	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		return nil, fmt.Errorf("storage: build archive: %w", err)
	}
	return archive, nil
}
