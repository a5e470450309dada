package membership

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gymcore/internal/api"
	"gymcore/internal/auth"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type CreatePlanRequest struct {
	Name       string `json:"name" binding:"required"`
	PeriodDays int    `json:"period_days" binding:"required,gt=0"`
	PriceCents int64  `json:"price_cents" binding:"required,gt=0"`
}

// ListPlans godoc
// @Summary      List membership plans
// @Tags         memberships
// @Produce      json
// @Success      200  {array}  Plan
// @Router       /plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.repo.ListPlans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list plans"})
		return
	}

	c.JSON(http.StatusOK, plans)
}

// CreatePlan godoc
// @Summary      Create a membership plan
// @Description  Admin only.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreatePlanRequest  true  "Plan details"
// @Success      201      {object}  Plan
// @Failure      400      {object}  api.ErrorResponse
// @Router       /admin/plans [post]
func (h *Handler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	plan, err := h.repo.CreatePlan(c.Request.Context(), req.Name, req.PeriodDays, req.PriceCents)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create plan"})
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetMine godoc
// @Summary      Get the caller's active membership
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Membership
// @Failure      404  {object}  api.ErrorResponse
// @Router       /memberships/me [get]
func (h *Handler) GetMine(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	m, err := h.repo.GetActiveForUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No active membership", Reason: "membership_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load membership"})
		return
	}

	c.JSON(http.StatusOK, m)
}
