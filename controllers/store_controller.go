package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/middleware"
	"github.com/massage-panel/massage-panel-api/services"
)

// RegisterStoreRequest represents the request body for onboarding a store
type RegisterStoreRequest struct {
	Name string `json:"name" binding:"required"`
}

type StoreController struct {
	base
	stores *services.StoreService
}

func NewStoreController(stores *services.StoreService, log *logging.Logger) *StoreController {
	return &StoreController{base: newBase(log, nil), stores: stores}
}

// Register handles POST /api/v1/stores - creates the caller's store
func (sc *StoreController) Register(c *gin.Context) {
	subject, err := middleware.GetUserID(c)
	if err != nil {
		respondUnauthorized(c, "Could not extract user ID from token")
		return
	}
	var req RegisterStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	store, err := sc.stores.Register(c.Request.Context(), subject, req.Name)
	if err != nil {
		sc.respondError(c, err)
		return
	}
	sc.log.Info("store registered", "store_id", store.ID)
	respondData(c, http.StatusCreated, newStoreResponse(store))
}

// Me handles GET /api/v1/stores/me
func (sc *StoreController) Me(c *gin.Context) {
	store, ok := middleware.GetStore(c)
	if !ok {
		respondUnauthorized(c, "Could not determine the store for this request")
		return
	}
	respondData(c, http.StatusOK, newStoreResponse(store))
}
