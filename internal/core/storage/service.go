package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AsliddinWeb/online-course-platform/config"
)

// Materials are addressed as lessons/{lesson_id}/{file}; the prefix makes
// per-lesson listing and cleanup a single List call.
func materialPrefix(lessonID uuid.UUID) string {
	return fmt.Sprintf("lessons/%s/", lessonID)
}

// Service manages lesson material files (PDF handouts, slide decks,
// homework archives) in blob storage.
type Service struct {
	provider Provider
	logger   *slog.Logger
}

func NewService(cfg config.CloudConfig, logger *slog.Logger) (*Service, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage provider: %w", err)
	}

	return &Service{
		provider: provider,
		logger:   logger,
	}, nil
}

// NewProvider builds the blob backend named by the configuration.
func NewProvider(cfg config.CloudConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "azure":
		return NewAzureProvider(cfg.Azure)
	default:
		return nil, &StorageError{
			Code:    "INVALID_PROVIDER",
			Message: fmt.Sprintf("unsupported storage provider: %s", cfg.Provider),
		}
	}
}

// UploadMaterial stores a lesson material file and returns its public URL.
func (s *Service) UploadMaterial(ctx context.Context, lessonID uuid.UUID, fileName string, content io.Reader, contentType string, contentLength int64) (*UploadResponse, error) {
	fileID := materialPrefix(lessonID) + uuid.New().String()
	if ext := fileExt(fileName); ext != "" {
		fileID += ext
	}

	resp, err := s.provider.Upload(ctx, &UploadRequest{
		FileID:        fileID,
		FileName:      fileName,
		ContentType:   contentType,
		Content:       content,
		ContentLength: contentLength,
		Metadata: map[string]string{
			"lesson_id": lessonID.String(),
			"uploaded":  time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		s.logger.Error("failed to upload lesson material",
			slog.String("lesson_id", lessonID.String()),
			slog.String("file_name", fileName),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	s.logger.Info("uploaded lesson material",
		slog.String("lesson_id", lessonID.String()),
		slog.String("file_id", resp.FileID),
		slog.Int64("size", resp.Size))

	return resp, nil
}

// MaterialDownloadURL returns a time-limited download link for a material.
func (s *Service) MaterialDownloadURL(ctx context.Context, fileID string, expiration time.Duration) (string, error) {
	url, err := s.provider.PresignedURL(ctx, fileID, expiration)
	if err != nil {
		s.logger.Error("failed to generate material download url",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to get presigned URL: %w", err)
	}
	return url, nil
}

// ListMaterials returns all files stored for a lesson.
func (s *Service) ListMaterials(ctx context.Context, lessonID uuid.UUID) ([]*FileInfo, error) {
	files, err := s.provider.List(ctx, materialPrefix(lessonID), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	return files, nil
}

// DeleteMaterial removes one material file.
func (s *Service) DeleteMaterial(ctx context.Context, fileID string) error {
	if err := s.provider.Delete(ctx, fileID); err != nil {
		s.logger.Error("failed to delete lesson material",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete material: %w", err)
	}

	s.logger.Info("deleted lesson material", slog.String("file_id", fileID))
	return nil
}

func fileExt(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx <= 0 || idx == len(fileName)-1 {
		return ""
	}
	return fileName[idx:]
}
