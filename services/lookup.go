package services

import (
	"context"
	"errors"

	"github.com/massage-panel/massage-panel-api/models"
	"gorm.io/gorm"
)

// scoped restricts a query on a store-owned table to the caller's store.
func scoped(db *gorm.DB, scope StoreScope) *gorm.DB {
	return db.Where("store_id = ?", scope.StoreID)
}

func findPlan(ctx context.Context, db *gorm.DB, scope StoreScope, id uint) (*models.MassagePlan, error) {
	var plan models.MassagePlan
	if err := scoped(db.WithContext(ctx), scope).First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("massage plan")
		}
		return nil, err
	}
	return &plan, nil
}

// findTherapist loads a therapist of the store. Deleted therapists are
// reported as missing.
func findTherapist(ctx context.Context, db *gorm.DB, scope StoreScope, id uint) (*models.Therapist, error) {
	var therapist models.Therapist
	err := scoped(db.WithContext(ctx), scope).
		Where("status <> ?", models.TherapistDeleted).
		First(&therapist, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("therapist")
		}
		return nil, err
	}
	return &therapist, nil
}

// requireBookable loads a therapist that may take new work.
func requireBookable(ctx context.Context, db *gorm.DB, scope StoreScope, id uint) (*models.Therapist, error) {
	therapist, err := findTherapist(ctx, db, scope, id)
	if err != nil {
		return nil, err
	}
	if !therapist.Bookable() {
		return nil, ValidationError("therapist_id", "therapist is disabled")
	}
	return therapist, nil
}
