package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"github.com/carbridge/carbridge-api/utils"
)

// MockStorageService is an in-memory StorageService for testing
type MockStorageService struct {
	uploadedFiles map[string][]byte // object URL -> file content
	FailUploads   bool              // when set, uploads return an UploadError
	mu            sync.RWMutex
}

// NewMockStorageService creates a new mock storage service
func NewMockStorageService() *MockStorageService {
	return &MockStorageService{
		uploadedFiles: make(map[string][]byte),
	}
}

// UploadFile stores the file in memory and returns a deterministic fake URL
func (m *MockStorageService) UploadFile(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}
	if m.FailUploads {
		return "", &UploadError{Err: fmt.Errorf("mock upload failure")}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", &UploadError{Err: err}
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", &UploadError{Err: err}
	}

	if folder == "" {
		folder = "uploads"
	}
	url := fmt.Sprintf("https://mock-bucket.s3.amazonaws.com/%s/%s", folder, fileHeader.Filename)

	m.mu.Lock()
	m.uploadedFiles[url] = content
	m.mu.Unlock()

	return url, nil
}

// GetFile returns the stored content for an uploaded URL
func (m *MockStorageService) GetFile(url string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.uploadedFiles[url]
	return content, ok
}

// UploadCount returns how many files have been stored
func (m *MockStorageService) UploadCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.uploadedFiles)
}
