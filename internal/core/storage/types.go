package storage

import (
	"context"
	"io"
	"time"
)

// Provider abstracts the blob backend holding lesson material files.
type Provider interface {
	// Upload stores a file and returns its id and public URL.
	Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error)

	// FileURL returns the public URL of a stored file.
	FileURL(ctx context.Context, fileID string) (string, error)

	// PresignedURL returns a temporary download URL.
	PresignedURL(ctx context.Context, fileID string, expiration time.Duration) (string, error)

	// Delete removes a file.
	Delete(ctx context.Context, fileID string) error

	// List returns files under a prefix.
	List(ctx context.Context, prefix string, maxResults int) ([]*FileInfo, error)

	// Info returns metadata of a file.
	Info(ctx context.Context, fileID string) (*FileInfo, error)
}

type UploadRequest struct {
	// FileID is the blob name, generated when empty.
	FileID string

	// FileName is the original filename of the material.
	FileName string

	ContentType   string
	Content       io.Reader
	ContentLength int64

	Metadata map[string]string
}

type UploadResponse struct {
	FileID      string
	PublicURL   string
	Size        int64
	ContentType string
	ETag        string
	UploadedAt  time.Time
}

type FileInfo struct {
	FileID       string
	FileName     string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
	PublicURL    string
	Metadata     map[string]string
}

var (
	ErrFileNotFound  = &StorageError{Code: "FILE_NOT_FOUND", Message: "file not found"}
	ErrInvalidFileID = &StorageError{Code: "INVALID_FILE_ID", Message: "invalid file id"}
	ErrInvalidConfig = &StorageError{Code: "INVALID_CONFIG", Message: "invalid storage configuration"}
)

// StorageError represents a blob storage error.
type StorageError struct {
	Code    string
	Message string
	Cause   error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}
