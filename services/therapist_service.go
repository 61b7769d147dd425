package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TherapistInput carries the editable therapist fields.
type TherapistInput struct {
	Name     string
	Phone    string
	LineID   string
	NickName string
}

// TherapistFilter narrows List.
type TherapistFilter struct {
	Status models.TherapistStatus // active or disabled; empty lists both
	Search string                 // name or nick name contains
}

type TherapistService struct {
	db     *gorm.DB
	images ImageService
	log    *logging.Logger
}

func NewTherapistService(db *gorm.DB, images ImageService, log *logging.Logger) *TherapistService {
	if log == nil {
		log = logging.Discard()
	}
	return &TherapistService{db: db, images: images, log: log}
}

func (in TherapistInput) normalize() (TherapistInput, error) {
	out := TherapistInput{
		Name:     strings.TrimSpace(in.Name),
		Phone:    strings.TrimSpace(in.Phone),
		LineID:   strings.TrimSpace(in.LineID),
		NickName: strings.TrimSpace(in.NickName),
	}
	if out.Name == "" {
		return out, ValidationError("name", "name must not be empty")
	}
	if len(out.Phone) > 15 {
		return out, ValidationError("phone", "phone must be at most 15 characters")
	}
	if len(out.LineID) > 50 {
		return out, ValidationError("line_id", "line_id must be at most 50 characters")
	}
	return out, nil
}

// Create adds an active therapist to the store.
func (s *TherapistService) Create(ctx context.Context, scope StoreScope, in TherapistInput) (*models.Therapist, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	therapist := models.Therapist{
		StoreID:  scope.StoreID,
		Name:     in.Name,
		Phone:    in.Phone,
		LineID:   in.LineID,
		NickName: in.NickName,
		Status:   models.TherapistActive,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&therapist).Error; err != nil {
		return nil, err
	}
	s.log.Info("therapist created", "store_id", scope.StoreID, "therapist_id", therapist.ID)
	return &therapist, nil
}

// Update replaces the therapist's details. The store never changes.
func (s *TherapistService) Update(ctx context.Context, scope StoreScope, id uint, in TherapistInput) (*models.Therapist, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	therapist, err := findTherapist(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(therapist).Updates(map[string]interface{}{
		"name":      in.Name,
		"phone":     in.Phone,
		"line_id":   in.LineID,
		"nick_name": in.NickName,
	}).Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

// SetEnabled toggles a therapist between active and disabled.
func (s *TherapistService) SetEnabled(ctx context.Context, scope StoreScope, id uint, enabled bool) (*models.Therapist, error) {
	therapist, err := findTherapist(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}

	status := models.TherapistDisabled
	if enabled {
		status = models.TherapistActive
	}
	if err := s.db.WithContext(ctx).Model(therapist).Update("status", status).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

// SoftDelete marks the therapist deleted. The row stays so reservations and
// surveys keep their reference.
func (s *TherapistService) SoftDelete(ctx context.Context, scope StoreScope, id uint) error {
	therapist, err := findTherapist(ctx, s.db, scope, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(therapist).Update("status", models.TherapistDeleted).Error; err != nil {
		return err
	}
	s.log.Info("therapist deleted", "store_id", scope.StoreID, "therapist_id", id)
	return nil
}

// Get returns a non-deleted therapist of the store with its photo URL.
func (s *TherapistService) Get(ctx context.Context, scope StoreScope, id uint) (*models.Therapist, error) {
	therapist, err := findTherapist(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}
	s.attachPhotoURL(ctx, therapist)
	return therapist, nil
}

// List returns the store's non-deleted therapists ordered by name.
func (s *TherapistService) List(ctx context.Context, scope StoreScope, filter TherapistFilter) ([]models.Therapist, error) {
	query := scoped(s.db.WithContext(ctx), scope).
		Where("status <> ?", models.TherapistDeleted).
		Order("name ASC").
		Order("id ASC")
	if filter.Status == models.TherapistActive || filter.Status == models.TherapistDisabled {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(nick_name) LIKE ?", like, like)
	}

	var therapists []models.Therapist
	if err := query.Find(&therapists).Error; err != nil {
		return nil, err
	}
	for i := range therapists {
		s.attachPhotoURL(ctx, &therapists[i])
	}
	return therapists, nil
}

// GetPublic returns an active therapist for the public review page.
func (s *TherapistService) GetPublic(ctx context.Context, id uint) (*models.Therapist, *models.Store, error) {
	var therapist models.Therapist
	err := s.db.WithContext(ctx).
		Preload("Store").
		Where("status = ?", models.TherapistActive).
		First(&therapist, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NotFoundError("therapist")
		}
		return nil, nil, err
	}
	s.attachPhotoURL(ctx, &therapist)
	return &therapist, &therapist.Store, nil
}

// UploadPhoto stores a new photo and replaces the previous one.
func (s *TherapistService) UploadPhoto(ctx context.Context, scope StoreScope, id uint, fileHeader *multipart.FileHeader) (*models.Therapist, error) {
	if s.images == nil {
		return nil, errors.New("photo storage is not configured")
	}
	therapist, err := findTherapist(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}

	key, err := s.images.UploadPhoto(ctx, scope.StoreID, therapist.ID, fileHeader)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(therapist).Update("photo_s3_key", key).Error; err != nil {
		return nil, err
	}
	if therapist.PhotoS3Key != nil && *therapist.PhotoS3Key != key {
		if err := s.images.DeletePhoto(ctx, *therapist.PhotoS3Key); err != nil {
			s.log.Warn("failed to delete previous photo", "therapist_id", id, "error", err)
		}
	}
	return s.Get(ctx, scope, id)
}

func (s *TherapistService) attachPhotoURL(ctx context.Context, t *models.Therapist) {
	if s.images == nil || t.PhotoS3Key == nil || *t.PhotoS3Key == "" {
		return
	}
	url, err := s.images.PhotoURL(ctx, *t.PhotoS3Key)
	if err != nil {
		s.log.Warn("failed to generate photo URL", "therapist_id", t.ID, "error", err)
		return
	}
	t.PhotoURL = &url
}
