package services

import (
	"testing"
	"time"

	"github.com/massage-panel/massage-panel-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// base is a fixed reference instant; tests pass "now" explicitly.
var base = time.Date(2030, 3, 1, 14, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, time.UTC)
}

// setupTestDB opens a private in-memory database. A single connection keeps
// every query on the same database and serializes transactions.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	return db
}

type fixture struct {
	db        *gorm.DB
	store     models.Store
	scope     StoreScope
	therapist models.Therapist
	plan      models.MassagePlan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: setupTestDB(t)}
	f.store = f.addStore(t, "Kneads", "auth0|owner")
	f.scope = StoreScope{StoreID: f.store.ID}
	f.therapist = f.addTherapist(t, f.store.ID, "Amy", models.TherapistActive)
	f.plan = f.addPlan(t, f.store.ID, "Deep tissue", 1500, 60)
	return f
}

func (f *fixture) addStore(t *testing.T, name, subject string) models.Store {
	t.Helper()
	store := models.Store{Name: name, OwnerSubject: subject}
	require.NoError(t, f.db.Create(&store).Error)
	return store
}

func (f *fixture) addTherapist(t *testing.T, storeID uint, name string, status models.TherapistStatus) models.Therapist {
	t.Helper()
	therapist := models.Therapist{StoreID: storeID, Name: name, Status: status}
	require.NoError(t, f.db.Omit(clause.Associations).Create(&therapist).Error)
	return therapist
}

func (f *fixture) addPlan(t *testing.T, storeID uint, name string, price int64, minutes int) models.MassagePlan {
	t.Helper()
	plan := models.MassagePlan{StoreID: storeID, Name: name, Price: decimal.NewFromInt(price), Duration: minutes}
	require.NoError(t, f.db.Omit(clause.Associations).Create(&plan).Error)
	return plan
}

func (f *fixture) addReservation(t *testing.T, plan models.MassagePlan, therapistID uint, start time.Time) models.Reservation {
	t.Helper()
	r := models.Reservation{
		StoreID:         plan.StoreID,
		MassagePlanID:   plan.ID,
		TherapistID:     &therapistID,
		CustomerName:    "Walk-in",
		CustomerPhone:   "0912000000",
		AppointmentTime: start.UTC(),
		Discount:        datatypes.NewJSONType(models.DiscountContext{}),
	}
	require.NoError(t, f.db.Omit(clause.Associations).Create(&r).Error)
	return r
}

func (f *fixture) addInvitation(t *testing.T, plan models.MassagePlan, therapistID uint, start, end time.Time, discount int64) models.MassageInvitation {
	t.Helper()
	inv := models.MassageInvitation{
		StoreID:       plan.StoreID,
		MassagePlanID: plan.ID,
		TherapistID:   therapistID,
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
		DiscountPrice: decimal.NewFromInt(discount),
		Slug:          NewSlug(),
	}
	require.NoError(t, f.db.Omit(clause.Associations).Create(&inv).Error)
	return inv
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := AsAppError(err)
	require.True(t, ok, "expected *AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, appErr.Message)
}
