package services

import (
	"context"
	"errors"
	"strings"

	"github.com/massage-panel/massage-panel-api/models"
	"gorm.io/gorm"
)

type StoreService struct {
	db *gorm.DB
}

func NewStoreService(db *gorm.DB) *StoreService {
	return &StoreService{db: db}
}

// ResolveBySubject finds the store owned by an authenticated subject.
func (s *StoreService) ResolveBySubject(ctx context.Context, subject string) (*models.Store, error) {
	if subject == "" {
		return nil, NotFoundError("store")
	}
	var store models.Store
	if err := s.db.WithContext(ctx).Where("owner_subject = ?", subject).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("store")
		}
		return nil, err
	}
	return &store, nil
}

// Register creates the store for a new owner. Each subject owns one store.
func (s *StoreService) Register(ctx context.Context, subject, name string) (*models.Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError("name", "store name must not be empty")
	}
	if len(name) > 100 {
		return nil, ValidationError("name", "store name must be at most 100 characters")
	}

	if _, err := s.ResolveBySubject(ctx, subject); err == nil {
		return nil, ValidationError("owner", "this account already owns a store")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	store := models.Store{Name: name, OwnerSubject: subject}
	if err := s.db.WithContext(ctx).Create(&store).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ValidationError("name", "a store with this name already exists")
		}
		return nil, err
	}
	return &store, nil
}
