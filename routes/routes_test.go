package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/massage-panel/massage-panel-api/config"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/middleware"
	"github.com/massage-panel/massage-panel-api/models"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "routes-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type RouterTestSuite struct {
	suite.Suite
	router *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
}

func (s *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *RouterTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(models.AutoMigrate(db))
	s.db = db

	s.cfg = &config.Config{
		JWTSecret:           testSecret,
		RateLimitPerMinute:  100,
		StoreTimezone:       "UTC",
		ReservationLookback: 120 * time.Minute,
	}
	s.router = s.newRouter(nil)
}

func (s *RouterTestSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *RouterTestSuite) newRouter(limiter services.RateLimiter) *gin.Engine {
	return SetupRouter(Options{
		Config:      s.cfg,
		DB:          s.db,
		Logger:      logging.Discard(),
		Auth:        middleware.EnsureValidHS256Token(testSecret),
		Registry:    prometheus.NewRegistry(),
		RateLimiter: limiter,
		Images:      services.NewPhotoService(services.NewMockObjectStore()),
	})
}

func (s *RouterTestSuite) token(subject string) string {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	s.Require().NoError(err)
	return signed
}

func (s *RouterTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterTestSuite) decode(w *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *RouterTestSuite) data(w *httptest.ResponseRecorder, out any) {
	var env envelope
	s.decode(w, &env)
	s.Require().True(env.Success, w.Body.String())
	s.Require().NoError(json.Unmarshal(env.Data, out))
}

// onboard registers a store with one therapist and one plan and returns
// their ids.
func (s *RouterTestSuite) onboard(token, storeName string) (therapistID, planID uint) {
	w := s.do(http.MethodPost, "/api/v1/stores", token, map[string]any{"name": storeName})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var therapist struct {
		ID uint `json:"id"`
	}
	w = s.do(http.MethodPost, "/api/v1/therapists", token, map[string]any{"name": "Amy", "nick_name": "A"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.data(w, &therapist)

	var plan struct {
		ID uint `json:"id"`
	}
	w = s.do(http.MethodPost, "/api/v1/plans", token, map[string]any{"name": "Deep tissue", "price": 1500, "duration": 60})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.data(w, &plan)

	return therapist.ID, plan.ID
}

type invitationBody struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
}

func (s *RouterTestSuite) invite(token string, therapistID, planID uint, start, end time.Time) invitationBody {
	w := s.do(http.MethodPost, "/api/v1/invitations", token, map[string]any{
		"massage_plan_id": planID,
		"therapist_id":    therapistID,
		"start_time":      start.Format(time.RFC3339),
		"end_time":        end.Format(time.RFC3339),
		"discount_price":  "1200",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var inv invitationBody
	s.data(w, &inv)
	return inv
}

func (s *RouterTestSuite) TestHealth() {
	w := s.do(http.MethodGet, "/api/v1/health", "", nil)
	s.Equal(http.StatusOK, w.Code)

	var body map[string]any
	s.decode(w, &body)
	s.Equal(true, body["success"])
	s.Equal("Massage Panel API is running", body["message"])
	s.NotEmpty(w.Header().Get(middleware.RequestIDHeader))
}

func (s *RouterTestSuite) TestDatabaseStatus() {
	w := s.do(http.MethodGet, "/api/v1/database/status", "", nil)
	s.Equal(http.StatusOK, w.Code)

	var body struct {
		Tables []string `json:"tables"`
	}
	s.decode(w, &body)
	s.Contains(body.Tables, "reservations")
	s.Contains(body.Tables, "massage_invitations")
}

func (s *RouterTestSuite) TestManagementRequiresToken() {
	w := s.do(http.MethodGet, "/api/v1/therapists", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/therapists", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterTestSuite) TestManagementRequiresStore() {
	w := s.do(http.MethodGet, "/api/v1/plans", s.token("auth0|nobody"), nil)
	s.Equal(http.StatusForbidden, w.Code)

	var env envelope
	s.decode(w, &env)
	s.Equal("STORE_REQUIRED", env.Error.Code)
}

func (s *RouterTestSuite) TestRegisterStore_SecondStoreRejected() {
	token := s.token("auth0|owner")
	w := s.do(http.MethodPost, "/api/v1/stores", token, map[string]any{"name": "Kneads"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/v1/stores", token, map[string]any{"name": "Second"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/stores/me", token, nil)
	s.Equal(http.StatusOK, w.Code)
	var store struct {
		Name string `json:"name"`
	}
	s.data(w, &store)
	s.Equal("Kneads", store.Name)
}

func (s *RouterTestSuite) TestInvitationBookingFlow() {
	token := s.token("auth0|owner")
	therapistID, planID := s.onboard(token, "Kneads")

	start := time.Now().UTC().Add(time.Hour).Truncate(time.Minute)
	inv := s.invite(token, therapistID, planID, start, start.Add(3*time.Hour))
	s.NotEmpty(inv.Slug)

	// the customer opens the link
	w := s.do(http.MethodGet, "/invitation/"+inv.Slug+"/", "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var view struct {
		MassagePlan    string  `json:"massage_plan"`
		DiscountAmount float64 `json:"discount_amount"`
		IsUpcoming     bool    `json:"is_upcoming"`
		IsBooked       bool    `json:"is_booked"`
	}
	s.decode(w, &view)
	s.Equal("Deep tissue", view.MassagePlan)
	s.Equal(300.0, view.DiscountAmount)
	s.True(view.IsUpcoming)
	s.False(view.IsBooked)

	bookPath := fmt.Sprintf("/api/public-invitations/%s/book/", inv.Slug)
	w = s.do(http.MethodPost, bookPath, "", map[string]any{
		"customer_name":    "Bea",
		"customer_phone":   "0912345678",
		"appointment_time": start.Add(30 * time.Minute).Format(time.RFC3339),
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var receipt struct {
		Message       string  `json:"message"`
		ReservationID uint    `json:"reservation_id"`
		DiscountPrice float64 `json:"discount_price"`
		Savings       float64 `json:"savings"`
	}
	s.decode(w, &receipt)
	s.Equal("Booking confirmed", receipt.Message)
	s.NotZero(receipt.ReservationID)
	s.Equal(1200.0, receipt.DiscountPrice)
	s.Equal(300.0, receipt.Savings)

	// a second customer loses
	w = s.do(http.MethodPost, bookPath, "", map[string]any{
		"customer_name":    "Cy",
		"customer_phone":   "0911111111",
		"appointment_time": start.Add(90 * time.Minute).Format(time.RFC3339),
	})
	s.Equal(http.StatusBadRequest, w.Code)
	var rejection map[string]string
	s.decode(w, &rejection)
	s.Equal(services.CodeAlreadyBooked, rejection["code"])

	// staff see the discounted reservation
	w = s.do(http.MethodGet, "/api/v1/reservations", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var reservations []struct {
		ID       uint   `json:"id"`
		Customer string `json:"customer_name"`
		Discount *struct {
			InvitationID uint `json:"invitation_id"`
		} `json:"discount"`
	}
	s.data(w, &reservations)
	s.Require().Len(reservations, 1)
	s.Equal("Bea", reservations[0].Customer)
	s.Require().NotNil(reservations[0].Discount)
	s.Equal(inv.ID, reservations[0].Discount.InvitationID)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/invitations/%d", inv.ID), token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var snapshot struct {
		IsBooked   bool  `json:"is_booked"`
		ClickCount int64 `json:"click_count"`
	}
	s.data(w, &snapshot)
	s.True(snapshot.IsBooked)
	s.Equal(int64(1), snapshot.ClickCount)
}

func (s *RouterTestSuite) TestBookingRejections() {
	token := s.token("auth0|owner")
	therapistID, planID := s.onboard(token, "Kneads")
	start := time.Now().UTC().Add(time.Hour).Truncate(time.Minute)
	inv := s.invite(token, therapistID, planID, start, start.Add(2*time.Hour))
	bookPath := fmt.Sprintf("/api/public-invitations/%s/book/", inv.Slug)

	tests := []struct {
		name string
		body map[string]any
		code string
	}{
		{
			name: "missing phone",
			body: map[string]any{"customer_name": "Bea", "appointment_time": start.Format(time.RFC3339)},
			code: services.CodeMissingField,
		},
		{
			name: "unparseable time",
			body: map[string]any{"customer_name": "Bea", "customer_phone": "1", "appointment_time": "tomorrow"},
			code: services.CodeMalformedInput,
		},
		{
			name: "before the window",
			body: map[string]any{"customer_name": "Bea", "customer_phone": "1", "appointment_time": start.Add(-time.Minute).Format(time.RFC3339)},
			code: services.CodeOutOfWindow,
		},
		{
			name: "runs past the window",
			body: map[string]any{"customer_name": "Bea", "customer_phone": "1", "appointment_time": start.Add(90 * time.Minute).Format(time.RFC3339)},
			code: services.CodeInsufficientWindow,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPost, bookPath, "", tt.body)
			s.Equal(http.StatusBadRequest, w.Code)
			var body map[string]string
			s.decode(w, &body)
			s.Equal(tt.code, body["code"])
			s.NotEmpty(body["error"])
		})
	}
}

func (s *RouterTestSuite) TestPublicNotFound() {
	w := s.do(http.MethodGet, "/invitation/does-not-exist/", "", nil)
	s.Equal(http.StatusNotFound, w.Code)

	var body map[string]string
	s.decode(w, &body)
	s.Equal(services.CodeNotFound, body["code"])
	s.NotEmpty(body["error"])

	w = s.do(http.MethodGet, "/review/abc/", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterTestSuite) TestCrossTenantAccessIsNotFound() {
	owner := s.token("auth0|owner")
	therapistID, planID := s.onboard(owner, "Kneads")
	start := time.Now().UTC().Add(time.Hour).Truncate(time.Minute)
	inv := s.invite(owner, therapistID, planID, start, start.Add(2*time.Hour))

	rival := s.token("auth0|rival")
	s.onboard(rival, "Rubs")

	for _, path := range []string{
		fmt.Sprintf("/api/v1/invitations/%d", inv.ID),
		fmt.Sprintf("/api/v1/therapists/%d", therapistID),
		fmt.Sprintf("/api/v1/plans/%d", planID),
	} {
		w := s.do(http.MethodGet, path, rival, nil)
		s.Equal(http.StatusNotFound, w.Code, path)
	}

	w := s.do(http.MethodDelete, fmt.Sprintf("/api/v1/invitations/%d", inv.ID), rival, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterTestSuite) TestInvitationConflictReported() {
	token := s.token("auth0|owner")
	therapistID, planID := s.onboard(token, "Kneads")
	start := time.Now().UTC().Add(time.Hour).Truncate(time.Minute)
	s.invite(token, therapistID, planID, start, start.Add(2*time.Hour))

	w := s.do(http.MethodPost, "/api/v1/invitations", token, map[string]any{
		"massage_plan_id": planID,
		"therapist_id":    therapistID,
		"start_time":      start.Add(time.Hour).Format(time.RFC3339),
		"end_time":        start.Add(3 * time.Hour).Format(time.RFC3339),
		"discount_price":  "1000",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	var env envelope
	s.decode(w, &env)
	s.Equal(services.CodeConflict, env.Error.Code)
	s.Contains(env.Error.Fields, "start_time")
}

func (s *RouterTestSuite) TestPublicReview() {
	token := s.token("auth0|owner")
	therapistID, _ := s.onboard(token, "Kneads")

	w := s.do(http.MethodGet, fmt.Sprintf("/review/%d/", therapistID), "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Name      string `json:"name"`
		StoreName string `json:"store_name"`
	}
	s.decode(w, &page)
	s.Equal("Amy", page.Name)
	s.Equal("Kneads", page.StoreName)

	w = s.do(http.MethodPost, "/api/public-reviews/", "", map[string]any{"therapist": therapistID, "rating": "five"})
	s.Equal(http.StatusBadRequest, w.Code)
	var rejection map[string]string
	s.decode(w, &rejection)
	s.Equal(services.CodeValidation, rejection["code"])

	w = s.do(http.MethodPost, "/api/public-reviews/", "", map[string]any{"therapist": therapistID, "rating": 5, "comment": "great"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/surveys", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var surveys []map[string]any
	s.data(w, &surveys)
	s.Len(surveys, 1)
}

func (s *RouterTestSuite) TestPublicWritesAreRateLimited() {
	s.router = s.newRouter(services.NewMemoryRateLimiter(1))

	body := map[string]any{"therapist": 999, "rating": 5}
	w := s.do(http.MethodPost, "/api/public-reviews/", "", body)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/public-reviews/", "", body)
	s.Equal(http.StatusTooManyRequests, w.Code)

	// reads are not limited
	w = s.do(http.MethodGet, "/invitation/missing/", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterTestSuite) TestMetricsEndpoint() {
	s.do(http.MethodPost, "/api/public-invitations/missing/book/", "", map[string]any{})

	w := s.do(http.MethodGet, "/metrics", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.True(strings.Contains(w.Body.String(), `massage_panel_booking_attempts_total{outcome="NOT_FOUND"} 1`), w.Body.String())
}

func (s *RouterTestSuite) TestCORSPreflight() {
	s.cfg.CORSAllowedOrigins = []string{"https://panel.example"}
	s.router = s.newRouter(nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/therapists", nil)
	req.Header.Set("Origin", "https://panel.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("https://panel.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
