package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/massage-panel/massage-panel-api/utils"
)

const photoURLTTL = time.Hour

// ImageService handles therapist photo upload, retrieval and deletion
type ImageService interface {
	// UploadPhoto validates and stores a photo, returning its storage key
	UploadPhoto(ctx context.Context, storeID, therapistID uint, fileHeader *multipart.FileHeader) (string, error)

	// PhotoURL returns a URL for a stored photo, or "" for an empty key
	PhotoURL(ctx context.Context, key string) (string, error)

	// DeletePhoto removes a stored photo
	DeletePhoto(ctx context.Context, key string) error
}

// PhotoService implements ImageService on top of an ObjectStore
type PhotoService struct {
	store ObjectStore
}

func NewPhotoService(store ObjectStore) *PhotoService {
	return &PhotoService{store: store}
}

// UploadPhoto validates and uploads a therapist photo
func (s *PhotoService) UploadPhoto(ctx context.Context, storeID, therapistID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidatePhotoFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	key := fmt.Sprintf("stores/%d/therapists/%d/%s%s", storeID, therapistID, uuid.NewString(), ext)
	if err := s.store.PutObject(ctx, key, utils.PhotoContentType(fileHeader.Filename), content); err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}
	return key, nil
}

// PhotoURL generates a presigned URL for a photo
func (s *PhotoService) PhotoURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.store.PresignGet(ctx, key, photoURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate photo URL: %w", err)
	}
	return url, nil
}

// DeletePhoto deletes a photo from storage
func (s *PhotoService) DeletePhoto(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.store.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}
