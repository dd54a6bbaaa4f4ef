package storage

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeProvider struct {
	mu      sync.Mutex
	files   map[string]*FileInfo
	deleted []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{files: make(map[string]*FileInfo)}
}

func (f *fakeProvider) Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[req.FileID] = &FileInfo{
		FileID:      req.FileID,
		FileName:    req.FileName,
		Size:        req.ContentLength,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
	}
	return &UploadResponse{
		FileID:      req.FileID,
		PublicURL:   "https://blobs.test/" + req.FileID,
		Size:        req.ContentLength,
		ContentType: req.ContentType,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

func (f *fakeProvider) FileURL(ctx context.Context, fileID string) (string, error) {
	return "https://blobs.test/" + fileID, nil
}

func (f *fakeProvider) PresignedURL(ctx context.Context, fileID string, expiration time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[fileID]; !ok {
		return "", ErrFileNotFound
	}
	return "https://blobs.test/" + fileID + "?sig=tmp", nil
}

func (f *fakeProvider) Delete(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[fileID]; !ok {
		return ErrFileNotFound
	}
	delete(f.files, fileID)
	f.deleted = append(f.deleted, fileID)
	return nil
}

func (f *fakeProvider) List(ctx context.Context, prefix string, maxResults int) ([]*FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*FileInfo
	for id, info := range f.files {
		if strings.HasPrefix(id, prefix) {
			out = append(out, info)
		}
	}
	return out, nil
}

func (f *fakeProvider) Info(ctx context.Context, fileID string) (*FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.files[fileID]
	if !ok {
		return nil, ErrFileNotFound
	}
	return info, nil
}

func newTestService(provider Provider) *Service {
	return &Service{provider: provider, logger: slog.New(slog.DiscardHandler)}
}

func TestUploadMaterialNamespacesByLesson(t *testing.T) {
	provider := newFakeProvider()
	service := newTestService(provider)
	lessonID := uuid.New()

	resp, err := service.UploadMaterial(context.Background(), lessonID, "handout.pdf",
		bytes.NewReader([]byte("pdf bytes")), "application/pdf", 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPrefix := "lessons/" + lessonID.String() + "/"
	if !strings.HasPrefix(resp.FileID, wantPrefix) {
		t.Errorf("file id %q missing lesson prefix %q", resp.FileID, wantPrefix)
	}
	if !strings.HasSuffix(resp.FileID, ".pdf") {
		t.Errorf("file id %q missing extension", resp.FileID)
	}

	stored := provider.files[resp.FileID]
	if stored == nil {
		t.Fatal("file not stored in provider")
	}
	if stored.Metadata["lesson_id"] != lessonID.String() {
		t.Errorf("lesson_id metadata not set, got %q", stored.Metadata["lesson_id"])
	}
}

func TestListMaterialsFiltersByLesson(t *testing.T) {
	provider := newFakeProvider()
	service := newTestService(provider)
	ctx := context.Background()

	lessonA := uuid.New()
	lessonB := uuid.New()

	if _, err := service.UploadMaterial(ctx, lessonA, "a.pdf", bytes.NewReader(nil), "application/pdf", 0); err != nil {
		t.Fatalf("upload a: %v", err)
	}
	if _, err := service.UploadMaterial(ctx, lessonA, "b.pdf", bytes.NewReader(nil), "application/pdf", 0); err != nil {
		t.Fatalf("upload b: %v", err)
	}
	if _, err := service.UploadMaterial(ctx, lessonB, "c.pdf", bytes.NewReader(nil), "application/pdf", 0); err != nil {
		t.Fatalf("upload c: %v", err)
	}

	files, err := service.ListMaterials(ctx, lessonA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 materials for lesson A, got %d", len(files))
	}
}

func TestDeleteMaterial(t *testing.T) {
	provider := newFakeProvider()
	service := newTestService(provider)
	ctx := context.Background()

	resp, err := service.UploadMaterial(ctx, uuid.New(), "old.pdf", bytes.NewReader(nil), "application/pdf", 0)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := service.DeleteMaterial(ctx, resp.FileID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(provider.deleted) != 1 || provider.deleted[0] != resp.FileID {
		t.Errorf("file not deleted from provider")
	}
	if err := service.DeleteMaterial(ctx, resp.FileID); err == nil {
		t.Error("expected error deleting missing file")
	}
}

func TestFileExt(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"handout.pdf", ".pdf"},
		{"archive.tar.gz", ".gz"},
		{"noext", ""},
		{".hidden", ""},
		{"trailing.", ""},
	}
	for _, c := range cases {
		if got := fileExt(c.name); got != c.want {
			t.Errorf("fileExt(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}
