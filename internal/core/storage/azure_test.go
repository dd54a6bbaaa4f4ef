package storage

import (
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

func TestFileInfoFromProperties(t *testing.T) {
	modified := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	props := blob.GetPropertiesResponse{
		ContentLength: to.Ptr(int64(2048)),
		ContentType:   to.Ptr("application/pdf"),
		LastModified:  to.Ptr(modified),
		ETag:          to.Ptr(azcore.ETag(`"abc"`)),
		Metadata: map[string]*string{
			"filename":  to.Ptr("syllabus.pdf"),
			"lesson_id": to.Ptr("lesson-1"),
		},
	}

	info := fileInfoFromProperties("lessons/x/file.pdf", "https://example/file.pdf", props)

	if info.Size != 2048 {
		t.Errorf("expected size 2048, got %d", info.Size)
	}
	if info.ContentType != "application/pdf" {
		t.Errorf("expected content type application/pdf, got %q", info.ContentType)
	}
	if !info.LastModified.Equal(modified) {
		t.Errorf("unexpected last modified: %v", info.LastModified)
	}
	if info.FileName != "syllabus.pdf" {
		t.Errorf("expected filename from metadata, got %q", info.FileName)
	}
	if info.Metadata["lesson_id"] != "lesson-1" {
		t.Errorf("expected lesson_id metadata, got %q", info.Metadata["lesson_id"])
	}
}

func TestFileInfoFromPropertiesEmptyResponse(t *testing.T) {
	info := fileInfoFromProperties("lessons/x/file.pdf", "https://example/file.pdf", blob.GetPropertiesResponse{})

	if info.Size != 0 {
		t.Errorf("expected zero size, got %d", info.Size)
	}
	if info.ContentType != "" || info.ETag != "" || info.FileName != "" {
		t.Errorf("expected empty optional fields, got %+v", info)
	}
	if info.FileID != "lessons/x/file.pdf" {
		t.Errorf("unexpected file id %q", info.FileID)
	}
}
