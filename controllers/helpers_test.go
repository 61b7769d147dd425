package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/middleware"
	"github.com/massage-panel/massage-panel-api/models"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type dataBody[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type env struct {
	db        *gorm.DB
	store     *models.Store
	therapist models.Therapist
	plan      models.MassagePlan
	checker   *services.ConflictChecker
	log       *logging.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))

	e := &env{db: db, checker: services.NewConflictChecker(2 * time.Hour), log: logging.Discard()}
	e.store = &models.Store{Name: "Kneads", OwnerSubject: "auth0|owner"}
	require.NoError(t, db.Create(e.store).Error)
	e.therapist = models.Therapist{StoreID: e.store.ID, Name: "Amy", Status: models.TherapistActive}
	require.NoError(t, db.Omit(clause.Associations).Create(&e.therapist).Error)
	e.plan = models.MassagePlan{StoreID: e.store.ID, Name: "Deep tissue", Price: decimal.NewFromInt(1500), Duration: 60}
	require.NoError(t, db.Omit(clause.Associations).Create(&e.plan).Error)
	return e
}

// router mounts a single handler behind a middleware that scopes the
// request to the fixture store, as RequireStore would.
func (e *env) router(method, path string, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, func(c *gin.Context) {
		middleware.SetStore(c, e.store)
		c.Next()
	}, handler)
	return r
}

func serve(r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	require.False(t, body.Success)
	return body
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var body dataBody[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	require.True(t, body.Success, w.Body.String())
	return body.Data
}

// fixedClock pins a controller's clock.
func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}
