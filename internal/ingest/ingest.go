package ingest

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log"

	"github.com/jbsn-app/file-service/internal/catalog"
	"github.com/jbsn-app/file-service/internal/contentstore"
	"github.com/jbsn-app/file-service/internal/events"
	"github.com/jbsn-app/file-service/internal/models"
)

// Service coordinates uploads and deletions across the content store and
// the catalog.
type Service struct {
	Catalog *catalog.Catalog
	Store   contentstore.Store
	Events  *events.Publisher
}

// IncomingFile is one file of an upload batch.
type IncomingFile struct {
	Filename string
	Content  io.Reader
}

// UploadError pairs a client filename with the reason it was rejected.
type UploadError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Result is the outcome of an upload batch.
type Result struct {
	Uploaded []models.FileRecord
	Errors   []UploadError
}

// OK reports whether at least one file in the batch was accepted. A batch
// where every file failed counts as a failed request; callers inspect
// Errors to detect partial failure.
func (r Result) OK() bool {
	return len(r.Uploaded) > 0
}

// Ingest processes an upload batch. Every file is handled independently:
// a rejected or failed file is recorded in Errors and never blocks its
// siblings. Files without a filename are skipped.
func (s *Service) Ingest(ctx context.Context, files []IncomingFile, notes string, tags []string) Result {
	result := Result{
		Uploaded: []models.FileRecord{},
		Errors:   []UploadError{},
	}

	for _, file := range files {
		if file.Filename == "" {
			continue
		}

		saved, err := s.Store.Save(ctx, file.Content, file.Filename)
		if err != nil {
			result.Errors = append(result.Errors, UploadError{
				Filename: file.Filename,
				Error:    err.Error(),
			})
			continue
		}

		rec := models.FileRecord{
			StoredName:   saved.StoredName,
			OriginalName: file.Filename,
			FileType:     saved.FileType,
			FileSize:     saved.Size,
			FileHash:     saved.Hash,
			UploadDate:   saved.UploadDate,
			Status:       "uploaded",
			Notes:        notes,
		}

		id, err := s.Catalog.Insert(ctx, &rec)
		if err != nil {
			// Keep disk and catalog consistent: content without a row is
			// unreachable, so drop it.
			if rmErr := s.Store.Remove(ctx, saved.StoredName); rmErr != nil {
				log.Printf("warning: failed to clean up %s after catalog failure: %v", saved.StoredName, rmErr)
			}
			result.Errors = append(result.Errors, UploadError{
				Filename: file.Filename,
				Error:    err.Error(),
			})
			continue
		}

		if len(tags) > 0 {
			if err := s.Catalog.SetTags(ctx, id, tags); err != nil {
				log.Printf("warning: failed to tag file %d: %v", id, err)
			} else {
				rec.Tags = tags
			}
		}

		s.Events.FileUploaded(rec)
		result.Uploaded = append(result.Uploaded, rec)
	}

	return result
}

// Delete removes a stored file and its catalog row. Content is removed
// before the row: a crash in between leaves a row pointing at absent
// content, which is recoverable by deleting again, rather than orphaned
// content no row can reach. Missing content is tolerated so a dangling
// row can always be cleaned up.
func (s *Service) Delete(ctx context.Context, id int64) error {
	rec, err := s.Catalog.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.Store.Remove(ctx, rec.StoredName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := s.Catalog.Delete(ctx, id); err != nil {
		return err
	}

	s.Events.FileDeleted(id, rec.StoredName)
	return nil
}
