package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: services.NotFoundError("plan"), want: http.StatusNotFound},
		{name: "validation", err: services.ValidationError("name", "required"), want: http.StatusBadRequest},
		{name: "conflict", err: services.ConflictError("overlap"), want: http.StatusBadRequest},
		{name: "invalid state", err: services.InvalidStateError("booked"), want: http.StatusBadRequest},
		{name: "unclassified", err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondError_HidesUnclassifiedCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	newBase(logging.Discard(), nil).respondError(c, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRespondError_IncludesFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	newBase(logging.Discard(), nil).respondError(c, services.ValidationError("price", "price must be greater than 0"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, services.CodeValidation, body.Error.Code)
	assert.Equal(t, "price must be greater than 0", body.Error.Fields["price"])
}

func TestPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, raw := range []string{"abc", "0", "-1"} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Params = gin.Params{{Key: "id", Value: raw}}
		_, err := pathID(c, "plan")
		assert.ErrorIs(t, err, services.ErrNotFound, raw)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, err := pathID(c, "plan")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestQueryDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?start_date=2030-03-01&end_date=2030-03-01&bad=03/01/2030", nil)

	start, err := queryDate(c, "start_date", taipei, false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 2, 28, 16, 0, 0, 0, time.UTC), start.UTC())

	end, err := queryDate(c, "end_date", taipei, true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 3, 1, 16, 0, 0, 0, time.UTC), end.UTC())

	missing, err := queryDate(c, "other", taipei, false)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = queryDate(c, "bad", taipei, false)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestStoreScope_MissingIsUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := storeScope(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
