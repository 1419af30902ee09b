package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"net/http"

	"coachbill/internal/models/request_models"
	"coachbill/internal/services"
	"coachbill/pkg/utils"
)

type BillingController struct {
	checkoutService services.CheckoutServiceInterface
}

func NewBillingController(checkoutService services.CheckoutServiceInterface) *BillingController {
	return &BillingController{
		checkoutService: checkoutService,
	}
}

// GetBillingState godoc
// @Summary Get the caller's billing and coaching state
// @Tags Billing
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /billing/state [get]
func (b *BillingController) GetBillingState(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	state, err := b.checkoutService.GetBillingState(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, state, "Billing state retrieved")
}

// CreateCheckout godoc
// @Summary Create a checkout session for a membership or coaching plan
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body request_models.CreateCheckoutRequest true "Create Checkout Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /billing/checkout [post]
func (b *BillingController) CreateCheckout(c *gin.Context) {
	var request request_models.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userID, ok := callerID(c)
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	checkout, err := b.checkoutService.CreateCheckoutForPlan(c.Request.Context(), userID, request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, checkout, "Checkout session created")
}

// StartFunnel godoc
// @Summary Start a paid funnel, creating a flow session
// @Tags Funnel
// @Accept json
// @Produce json
// @Param request body request_models.StartFunnelRequest true "Start Funnel Request"
// @Success 200 {object} utils.APIResponse
// @Router /billing/funnel [post]
func (b *BillingController) StartFunnel(c *gin.Context) {
	var request request_models.StartFunnelRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var caller *uuid.UUID
	if userID, ok := callerID(c); ok {
		caller = &userID
	}

	session, err := b.checkoutService.StartFunnel(c.Request.Context(), caller, request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, gin.H{"flow_session_id": session.ID}, "Funnel started")
}

// CreateFunnelCheckout godoc
// @Summary Create a one-time payment checkout for a funnel session
// @Tags Funnel
// @Accept json
// @Produce json
// @Param request body request_models.FunnelCheckoutRequest true "Funnel Checkout Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /billing/funnel/checkout [post]
func (b *BillingController) CreateFunnelCheckout(c *gin.Context) {
	var request request_models.FunnelCheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userID, ok := callerID(c)
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	checkout, err := b.checkoutService.CreateFunnelCheckout(c.Request.Context(), userID, request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, checkout, "Funnel checkout created")
}

// CreateContentCheckout godoc
// @Summary Create a one-time payment checkout for a content unlock
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body request_models.ContentCheckoutRequest true "Content Checkout Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /billing/content/checkout [post]
func (b *BillingController) CreateContentCheckout(c *gin.Context) {
	var request request_models.ContentCheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userID, ok := callerID(c)
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	checkout, err := b.checkoutService.CreateContentCheckout(c.Request.Context(), userID, request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, checkout, "Content checkout created")
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("user_id")
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
