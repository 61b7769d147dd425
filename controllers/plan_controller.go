package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/shopspring/decimal"
)

// PlanRequest represents the request body for creating or updating a plan
type PlanRequest struct {
	Name     string          `json:"name" binding:"required"`
	Price    decimal.Decimal `json:"price"`
	Duration int             `json:"duration"`
	Notes    string          `json:"notes"`
}

func (r PlanRequest) input() services.PlanInput {
	return services.PlanInput{Name: r.Name, Price: r.Price, Duration: r.Duration, Notes: r.Notes}
}

type PlanController struct {
	base
	plans *services.PlanService
}

func NewPlanController(plans *services.PlanService, log *logging.Logger) *PlanController {
	return &PlanController{base: newBase(log, nil), plans: plans}
}

// List handles GET /api/v1/plans?min_price=&max_price=&min_duration=&max_duration=&search=
func (pc *PlanController) List(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}

	filter := services.PlanFilter{Search: c.Query("search")}
	for param, dst := range map[string]**decimal.Decimal{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			pc.respondError(c, services.ValidationError(param, param+" must be a number"))
			return
		}
		*dst = &v
	}
	var err error
	if filter.MinDuration, err = queryInt(c, "min_duration"); err != nil {
		pc.respondError(c, err)
		return
	}
	if filter.MaxDuration, err = queryInt(c, "max_duration"); err != nil {
		pc.respondError(c, err)
		return
	}

	plans, err := pc.plans.List(c.Request.Context(), scope, filter)
	if err != nil {
		pc.respondError(c, err)
		return
	}
	out := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, newPlanResponse(&plans[i]))
	}
	respondData(c, http.StatusOK, out)
}

// Create handles POST /api/v1/plans
func (pc *PlanController) Create(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	plan, err := pc.plans.Create(c.Request.Context(), scope, req.input())
	if err != nil {
		pc.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, newPlanResponse(plan))
}

// Get handles GET /api/v1/plans/:id
func (pc *PlanController) Get(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "massage plan")
	if err != nil {
		pc.respondError(c, err)
		return
	}

	plan, err := pc.plans.Get(c.Request.Context(), scope, id)
	if err != nil {
		pc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newPlanResponse(plan))
}

// Update handles PUT /api/v1/plans/:id
func (pc *PlanController) Update(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "massage plan")
	if err != nil {
		pc.respondError(c, err)
		return
	}
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	plan, err := pc.plans.Update(c.Request.Context(), scope, id, req.input())
	if err != nil {
		pc.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, newPlanResponse(plan))
}

// Delete handles DELETE /api/v1/plans/:id
func (pc *PlanController) Delete(c *gin.Context) {
	scope, ok := storeScope(c)
	if !ok {
		return
	}
	id, err := pathID(c, "massage plan")
	if err != nil {
		pc.respondError(c, err)
		return
	}

	if err := pc.plans.Delete(c.Request.Context(), scope, id); err != nil {
		pc.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
