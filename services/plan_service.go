package services

import (
	"context"
	"strings"

	"github.com/massage-panel/massage-panel-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlanInput carries the editable plan fields.
type PlanInput struct {
	Name     string
	Price    decimal.Decimal
	Duration int
	Notes    string
}

// PlanFilter narrows List. Nil bounds are ignored.
type PlanFilter struct {
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	MinDuration *int
	MaxDuration *int
	Search      string
}

type PlanService struct {
	db *gorm.DB
}

func NewPlanService(db *gorm.DB) *PlanService {
	return &PlanService{db: db}
}

func (s *PlanService) validate(ctx context.Context, scope StoreScope, in PlanInput, excludeID uint) (PlanInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Name == "" {
		return in, ValidationError("name", "plan name must not be empty")
	}
	if !in.Price.IsPositive() {
		return in, ValidationError("price", "price must be greater than 0")
	}
	if in.Duration <= 0 {
		return in, ValidationError("duration", "duration must be greater than 0 minutes")
	}

	query := scoped(s.db.WithContext(ctx), scope).Model(&models.MassagePlan{}).Where("name = ?", in.Name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return in, err
	}
	if count > 0 {
		return in, ValidationError("name", "a plan with this name already exists in the store")
	}
	return in, nil
}

// Create adds a plan to the store.
func (s *PlanService) Create(ctx context.Context, scope StoreScope, in PlanInput) (*models.MassagePlan, error) {
	in, err := s.validate(ctx, scope, in, 0)
	if err != nil {
		return nil, err
	}

	plan := models.MassagePlan{
		StoreID:  scope.StoreID,
		Name:     in.Name,
		Price:    in.Price,
		Duration: in.Duration,
		Notes:    in.Notes,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&plan).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ValidationError("name", "a plan with this name already exists in the store")
		}
		return nil, err
	}
	return &plan, nil
}

// Update edits a plan. The owning store is fixed at creation.
func (s *PlanService) Update(ctx context.Context, scope StoreScope, id uint, in PlanInput) (*models.MassagePlan, error) {
	plan, err := findPlan(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}
	in, err = s.validate(ctx, scope, in, plan.ID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(plan).Updates(map[string]interface{}{
		"name":     in.Name,
		"price":    in.Price,
		"duration": in.Duration,
		"notes":    in.Notes,
	}).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ValidationError("name", "a plan with this name already exists in the store")
		}
		return nil, err
	}
	return findPlan(ctx, s.db, scope, id)
}

// Delete removes a plan. Reservations and invitations cascade with it.
func (s *PlanService) Delete(ctx context.Context, scope StoreScope, id uint) error {
	plan, err := findPlan(ctx, s.db, scope, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("massage_plan_id = ?", plan.ID).Delete(&models.Reservation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("massage_plan_id = ?", plan.ID).Delete(&models.MassageInvitation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.MassagePlan{}, plan.ID).Error
	})
}

// Get returns one plan of the store.
func (s *PlanService) Get(ctx context.Context, scope StoreScope, id uint) (*models.MassagePlan, error) {
	return findPlan(ctx, s.db, scope, id)
}

// List returns the store's plans ordered by name.
func (s *PlanService) List(ctx context.Context, scope StoreScope, filter PlanFilter) ([]models.MassagePlan, error) {
	query := scoped(s.db.WithContext(ctx), scope).Order("name ASC")
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.MinDuration != nil {
		query = query.Where("duration >= ?", *filter.MinDuration)
	}
	if filter.MaxDuration != nil {
		query = query.Where("duration <= ?", *filter.MaxDuration)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(notes) LIKE ?", like, like)
	}

	var plans []models.MassagePlan
	if err := query.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
