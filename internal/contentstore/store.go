package contentstore

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jbsn-app/file-service/internal/models"
)

// ErrUnsupportedType is returned when an upload's extension is not in the
// allow-list. Nothing is written to storage in that case.
var ErrUnsupportedType = errors.New("file type not allowed")

// allowedExtensions maps accepted extensions to their file type.
var allowedExtensions = map[string]string{
	".xlsx": models.TypeSpreadsheet,
	".xls":  models.TypeSpreadsheet,
	".csv":  models.TypeSpreadsheet,
	".ofx":  models.TypeOFX,
	".pdf":  models.TypePDF,
}

// SavedFile describes a stored upload. Size and Hash are measured from
// the stored copy, not from anything the client claimed.
type SavedFile struct {
	StoredName string
	Size       int64
	Hash       string
	FileType   string
	UploadDate string
}

// Store persists upload bytes and serves them back by stored name.
type Store interface {
	Save(ctx context.Context, r io.Reader, originalName string) (SavedFile, error)
	Open(ctx context.Context, storedName string) (io.ReadCloser, error)
	Remove(ctx context.Context, storedName string) error
}

// DetectType maps a filename to its file type by extension,
// case-insensitively. Unlisted extensions map to TypeUnknown.
func DetectType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := allowedExtensions[ext]; ok {
		return t
	}
	return models.TypeUnknown
}

// sanitizeFilename replaces every character outside [A-Za-z0-9._-] with
// an underscore. Directory separators never survive, so a stored name
// cannot escape the storage root.
func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// newStoredName builds a unique on-disk name for an upload. The random
// component guards against two uploads of the same filename landing in
// the same second.
func newStoredName(originalName string, now time.Time) string {
	return now.Format("20060102_150405") + "_" + uuid.NewString()[:8] + "_" + sanitizeFilename(originalName)
}
