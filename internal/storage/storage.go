// Package storage archives exported application documents in object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"strconv"
	"time"
)

// ErrObjectNotFound is returned by Get for unknown keys on every backend.
var ErrObjectNotFound = errors.New("object not found")

// exportPrefix is the key prefix of archived exports.
const exportPrefix = "exports/"

// Object describes an object being written.
type Object struct {
	Key         string
	ContentType string
	// ContentDisposition is served back on download, so a browser saves the
	// archived copy under its export filename.
	ContentDisposition string
	Metadata           map[string]string
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, obj Object, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
	Close() error
}

// Storage wraps an ObjectStorage backend with the export archive layout.
type Storage struct {
	backend ObjectStorage
	now     func() time.Time
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend, now: time.Now}
}

// ExportKey returns the object key of an archived export file.
func ExportKey(filename string) string {
	return exportPrefix + filename
}

// ArchiveExport stores an exported document under ExportKey(filename) with
// attachment disposition and the application id as metadata, replacing any
// earlier export of the same file. It returns the object key.
func (s *Storage) ArchiveExport(ctx context.Context, applicationID int64, filename, contentType string, data []byte) (string, error) {
	obj := Object{
		Key:                ExportKey(filename),
		ContentType:        contentType,
		ContentDisposition: mime.FormatMediaType("attachment", map[string]string{"filename": filename}),
		Metadata: map[string]string{
			"application-id": strconv.FormatInt(applicationID, 10),
			"exported-at":    s.now().UTC().Format(time.RFC3339),
		},
	}
	if err := s.backend.Put(ctx, obj, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", err
	}
	return obj.Key, nil
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Get opens a reader for an object in the configured bucket.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// Close releases the backend.
func (s *Storage) Close() error {
	return s.backend.Close()
}
