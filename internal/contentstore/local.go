package contentstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jbsn-app/file-service/internal/models"
)

// Local stores upload bytes as files under a root directory.
type Local struct {
	root string
}

// NewLocal creates the storage root if needed and returns a store over it.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Local{root: root}, nil
}

// Save writes the upload to disk under a generated name and reports the
// size and MD5 hash of the stored copy.
func (l *Local) Save(ctx context.Context, r io.Reader, originalName string) (SavedFile, error) {
	fileType := DetectType(originalName)
	if fileType == models.TypeUnknown {
		return SavedFile{}, ErrUnsupportedType
	}

	now := time.Now()
	storedName := newStoredName(originalName, now)
	path := filepath.Join(l.root, storedName)

	f, err := os.Create(path)
	if err != nil {
		return SavedFile{}, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return SavedFile{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return SavedFile{}, fmt.Errorf("failed to write file: %w", err)
	}

	// Measure the copy that actually landed on disk.
	info, err := os.Stat(path)
	if err != nil {
		return SavedFile{}, fmt.Errorf("failed to stat stored file: %w", err)
	}
	hash, err := hashFile(path)
	if err != nil {
		return SavedFile{}, err
	}

	return SavedFile{
		StoredName: storedName,
		Size:       info.Size(),
		Hash:       hash,
		FileType:   fileType,
		UploadDate: now.Format(time.RFC3339),
	}, nil
}

// Open returns a reader over a stored file.
func (l *Local) Open(ctx context.Context, storedName string) (io.ReadCloser, error) {
	path, err := l.resolve(storedName)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes a stored file. The caller decides whether a missing
// file matters.
func (l *Local) Remove(ctx context.Context, storedName string) error {
	path, err := l.resolve(storedName)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// resolve joins a stored name onto the root, rejecting names that would
// address outside it. Generated names always pass; this only matters
// for names read back from the catalog.
func (l *Local) resolve(storedName string) (string, error) {
	if storedName != filepath.Base(storedName) || strings.HasPrefix(storedName, "..") {
		return "", fmt.Errorf("invalid stored name %q", storedName)
	}
	return filepath.Join(l.root, storedName), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open stored file: %w", err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash stored file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
