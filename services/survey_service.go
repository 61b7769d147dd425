package services

import (
	"context"
	"errors"
	"strings"

	"github.com/massage-panel/massage-panel-api/metrics"
	"github.com/massage-panel/massage-panel-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SurveyInput is a customer review.
type SurveyInput struct {
	TherapistID uint
	Rating      int
	Comment     string
}

// SurveyFilter narrows List.
type SurveyFilter struct {
	TherapistID uint
	Rating      int
}

type SurveyService struct {
	db      *gorm.DB
	metrics *metrics.BookingMetrics
}

func NewSurveyService(db *gorm.DB, m *metrics.BookingMetrics) *SurveyService {
	return &SurveyService{db: db, metrics: m}
}

// Submit records a public review for an active therapist of any store.
func (s *SurveyService) Submit(ctx context.Context, in SurveyInput) (*models.ServiceSurvey, error) {
	if err := validateRating(in); err != nil {
		return nil, err
	}

	var therapist models.Therapist
	err := s.db.WithContext(ctx).Where("status = ?", models.TherapistActive).First(&therapist, in.TherapistID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ValidationError("therapist", "therapist not found or no longer available")
		}
		return nil, err
	}
	return s.create(ctx, &therapist, in)
}

// SubmitForStore records a review entered by the store for its own therapist.
func (s *SurveyService) SubmitForStore(ctx context.Context, scope StoreScope, in SurveyInput) (*models.ServiceSurvey, error) {
	if err := validateRating(in); err != nil {
		return nil, err
	}
	therapist, err := findTherapist(ctx, s.db, scope, in.TherapistID)
	if err != nil {
		return nil, err
	}
	if !therapist.Bookable() {
		return nil, ValidationError("therapist", "therapist is disabled")
	}
	return s.create(ctx, therapist, in)
}

// List returns surveys for the store's non-deleted therapists, newest first.
func (s *SurveyService) List(ctx context.Context, scope StoreScope, filter SurveyFilter) ([]models.ServiceSurvey, error) {
	query := s.storeSurveys(ctx, scope).Order("service_surveys.created_at DESC").Order("service_surveys.id DESC")
	if filter.TherapistID != 0 {
		query = query.Where("service_surveys.therapist_id = ?", filter.TherapistID)
	}
	if filter.Rating != 0 {
		query = query.Where("service_surveys.rating = ?", filter.Rating)
	}

	var surveys []models.ServiceSurvey
	if err := query.Find(&surveys).Error; err != nil {
		return nil, err
	}
	return surveys, nil
}

// Get returns one survey of the store.
func (s *SurveyService) Get(ctx context.Context, scope StoreScope, id uint) (*models.ServiceSurvey, error) {
	var survey models.ServiceSurvey
	if err := s.storeSurveys(ctx, scope).First(&survey, "service_surveys.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("survey")
		}
		return nil, err
	}
	return &survey, nil
}

func (s *SurveyService) storeSurveys(ctx context.Context, scope StoreScope) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Therapist").
		Joins("JOIN therapists ON therapists.id = service_surveys.therapist_id").
		Where("therapists.store_id = ? AND therapists.status <> ?", scope.StoreID, models.TherapistDeleted)
}

func (s *SurveyService) create(ctx context.Context, therapist *models.Therapist, in SurveyInput) (*models.ServiceSurvey, error) {
	survey := models.ServiceSurvey{
		TherapistID: therapist.ID,
		Rating:      in.Rating,
		Comment:     strings.TrimSpace(in.Comment),
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&survey).Error; err != nil {
		return nil, err
	}
	survey.Therapist = *therapist
	s.metrics.ObserveSurvey(survey.Rating)
	return &survey, nil
}

func validateRating(in SurveyInput) error {
	if in.TherapistID == 0 {
		return ValidationError("therapist", "therapist and rating are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return ValidationError("rating", "rating must be an integer between 1 and 5")
	}
	return nil
}
