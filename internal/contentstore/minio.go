package contentstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jbsn-app/file-service/internal/models"
)

// MinIO stores upload bytes as objects in a MinIO/S3 bucket.
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO connects to MinIO and creates the bucket if it doesn't exist.
func NewMinIO(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIO, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("Created bucket: %s", bucket)
	}

	return &MinIO{client: client, bucket: bucket}, nil
}

// Save spools the upload to a temporary file, measures it, and uploads
// that exact byte stream as an object under a generated name.
func (m *MinIO) Save(ctx context.Context, r io.Reader, originalName string) (SavedFile, error) {
	fileType := DetectType(originalName)
	if fileType == models.TypeUnknown {
		return SavedFile{}, ErrUnsupportedType
	}

	now := time.Now()
	storedName := newStoredName(originalName, now)

	spool, err := os.CreateTemp("", "upload-*")
	if err != nil {
		return SavedFile{}, fmt.Errorf("failed to create spool file: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	h := md5.New()
	size, err := io.Copy(io.MultiWriter(spool, h), r)
	if err != nil {
		return SavedFile{}, fmt.Errorf("failed to write spool file: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return SavedFile{}, fmt.Errorf("failed to rewind spool file: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(originalName)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = m.client.PutObject(ctx, m.bucket, storedName, spool, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return SavedFile{}, fmt.Errorf("failed to upload to storage: %w", err)
	}

	return SavedFile{
		StoredName: storedName,
		Size:       size,
		Hash:       hex.EncodeToString(h.Sum(nil)),
		FileType:   fileType,
		UploadDate: now.Format(time.RFC3339),
	}, nil
}

// Open streams a stored object.
func (m *MinIO) Open(ctx context.Context, storedName string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, storedName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing object now instead of on
	// the first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// Remove deletes a stored object.
func (m *MinIO) Remove(ctx context.Context, storedName string) error {
	return m.client.RemoveObject(ctx, m.bucket, storedName, minio.RemoveObjectOptions{})
}
