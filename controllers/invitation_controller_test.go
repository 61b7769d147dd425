package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/massage-panel/massage-panel-api/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invitationClock = time.Date(2030, 3, 1, 8, 0, 0, 0, time.UTC)

func (e *env) invitationController() *InvitationController {
	ic := NewInvitationController(services.NewInvitationService(e.db, e.checker, nil, e.log), time.UTC, e.log)
	ic.now = fixedClock(invitationClock)
	return ic
}

func (e *env) createInvitation(t *testing.T, ic *InvitationController, start, end string) InvitationResponse {
	t.Helper()
	r := e.router(http.MethodPost, "/invitations", ic.Create)
	w := serve(r, http.MethodPost, "/invitations", map[string]any{
		"massage_plan_id": e.plan.ID,
		"therapist_id":    e.therapist.ID,
		"start_time":      start,
		"end_time":        end,
		"discount_price":  1200,
		"notes":           "spring promo",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[InvitationResponse](t, w)
}

func TestInvitationController_Create(t *testing.T) {
	e := newEnv(t)
	ic := e.invitationController()

	inv := e.createInvitation(t, ic, "2030-03-01T10:00:00Z", "2030-03-01T13:00:00Z")
	assert.NotEmpty(t, inv.Slug)
	assert.Equal(t, "Deep tissue", inv.MassagePlanName)
	assert.Equal(t, "Amy", inv.TherapistName)
	assert.True(t, inv.DiscountAmount.Equal(decimal.NewFromInt(300)))
	assert.True(t, inv.IsUpcoming)
	assert.Equal(t, 120, inv.TimeRemaining)
	assert.False(t, inv.IsBooked)
}

func TestInvitationController_CreateValidation(t *testing.T) {
	e := newEnv(t)
	r := e.router(http.MethodPost, "/invitations", e.invitationController().Create)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{
			name:  "end before start",
			body:  map[string]any{"start_time": "2030-03-01T13:00:00Z", "end_time": "2030-03-01T10:00:00Z", "discount_price": 1200},
			field: "end_time",
		},
		{
			name:  "discount not below price",
			body:  map[string]any{"start_time": "2030-03-01T10:00:00Z", "end_time": "2030-03-01T13:00:00Z", "discount_price": 1500},
			field: "discount_price",
		},
		{
			name:  "missing start",
			body:  map[string]any{"end_time": "2030-03-01T13:00:00Z", "discount_price": 1200},
			field: "start_time",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.body["massage_plan_id"] = e.plan.ID
			tt.body["therapist_id"] = e.therapist.ID
			w := serve(r, http.MethodPost, "/invitations", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeError(t, w).Error.Fields, tt.field)
		})
	}
}

func TestInvitationController_Duplicate(t *testing.T) {
	e := newEnv(t)
	ic := e.invitationController()
	src := e.createInvitation(t, ic, "2030-03-01T10:00:00Z", "2030-03-01T13:00:00Z")
	r := e.router(http.MethodPost, "/invitations/:id/duplicate", ic.Duplicate)
	path := fmt.Sprintf("/invitations/%d/duplicate", src.ID)

	// the same window clashes with the source
	w := serve(r, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.CodeConflict, decodeError(t, w).Error.Code)

	w = serve(r, http.MethodPost, path, map[string]any{
		"start_time": "2030-03-02T10:00:00Z",
		"end_time":   "2030-03-02T13:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	copied := decodeData[InvitationResponse](t, w)
	assert.NotEqual(t, src.ID, copied.ID)
	assert.NotEqual(t, src.Slug, copied.Slug)
	assert.Equal(t, src.Notes, copied.Notes)
	assert.True(t, src.DiscountPrice.Equal(copied.DiscountPrice))

	w = serve(r, http.MethodPost, "/invitations/999/duplicate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvitationController_ActiveInvitationsAreFrozen(t *testing.T) {
	e := newEnv(t)
	ic := e.invitationController()
	inv := e.createInvitation(t, ic, "2030-03-01T07:00:00Z", "2030-03-01T11:00:00Z")
	path := fmt.Sprintf("/invitations/%d", inv.ID)

	update := e.router(http.MethodPut, "/invitations/:id", ic.Update)
	w := serve(update, http.MethodPut, path, map[string]any{
		"massage_plan_id": e.plan.ID,
		"therapist_id":    e.therapist.ID,
		"start_time":      "2030-03-01T07:00:00Z",
		"end_time":        "2030-03-01T12:00:00Z",
		"discount_price":  1000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.CodeInvalidState, decodeError(t, w).Error.Code)

	del := e.router(http.MethodDelete, "/invitations/:id", ic.Delete)
	w = serve(del, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	active := e.router(http.MethodGet, "/invitations/active", ic.Active)
	w = serve(active, http.MethodGet, "/invitations/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData[[]InvitationResponse](t, w)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsActive)
	assert.Equal(t, 180, list[0].TimeRemaining)
}

func TestInvitationController_ListByStatus(t *testing.T) {
	e := newEnv(t)
	ic := e.invitationController()
	e.createInvitation(t, ic, "2030-03-01T07:00:00Z", "2030-03-01T09:00:00Z")
	e.createInvitation(t, ic, "2030-03-01T12:00:00Z", "2030-03-01T14:00:00Z")
	e.createInvitation(t, ic, "2030-02-28T12:00:00Z", "2030-02-28T14:00:00Z")
	r := e.router(http.MethodGet, "/invitations", ic.List)

	for status, want := range map[string]int{"": 3, "active": 1, "upcoming": 1, "expired": 1} {
		t.Run("status="+status, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/invitations?status="+status, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Len(t, decodeData[[]InvitationResponse](t, w), want)
		})
	}

	w := serve(r, http.MethodGet, "/invitations?therapist_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
