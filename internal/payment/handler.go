package payment

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymcore/internal/api"
	"gymcore/internal/auth"
	"gymcore/internal/membership"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create godoc
// @Summary      Create a manual transfer transaction
// @Description  Opens a pending transaction and returns the bank transfer instructions.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateTransactionRequest  true  "Transaction details"
// @Success      201      {object}  Transaction
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /payments [post]
func (h *Handler) Create(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	t, err := h.service.CreateManual(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, membership.ErrPlanNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Membership plan not found", Reason: "plan_not_found"})
		case errors.Is(err, ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Amount must be positive", Reason: "invalid_amount"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
		}
		return
	}

	c.JSON(http.StatusCreated, t)
}

// Get godoc
// @Summary      Get a transaction
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Transaction ID"
// @Success      200  {object}  Transaction
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /payments/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	role, _ := auth.GetRole(c)
	t, err := h.service.Get(c.Request.Context(), id, userID, role == auth.RoleAdmin)
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// ListMine godoc
// @Summary      List the caller's transactions
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Transaction
// @Failure      401  {object}  api.ErrorResponse
// @Router       /payments [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	transactions, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// UploadProof godoc
// @Summary      Attach a transfer proof reference
// @Description  Records where the uploaded proof lives. Does not change the transaction status.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                 true  "Transaction ID"
// @Param        request  body      UploadProofRequest  true  "Proof reference"
// @Success      200      {object}  Transaction
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /payments/{id}/proof [post]
func (h *Handler) UploadProof(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	var req UploadProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proof_ref is required"})
		return
	}

	t, err := h.service.UploadProof(c.Request.Context(), id, userID, req.ProofRef)
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// ListPending godoc
// @Summary      List transactions awaiting review
// @Description  Admin only. Oldest first.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Status filter"  default(pending)
// @Param        limit   query     int     false  "Page size"      default(50)
// @Param        offset  query     int     false  "Page offset"    default(0)
// @Success      200     {array}   Transaction
// @Failure      403     {object}  api.ErrorResponse
// @Router       /admin/payments [get]
func (h *Handler) ListPending(c *gin.Context) {
	status := Status(c.DefaultQuery("status", string(StatusPending)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	transactions, err := h.service.ListByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// Confirm godoc
// @Summary      Confirm a pending transaction
// @Description  Admin only. Marks the transfer verified and activates or extends the membership in the same transaction.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int             true   "Transaction ID"
// @Param        request  body      ConfirmRequest  false  "Reviewer notes"
// @Success      200      {object}  Transaction
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /admin/payments/{id}/confirm [post]
func (h *Handler) Confirm(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	var req ConfirmRequest
	_ = c.ShouldBindJSON(&req)

	t, err := h.service.Confirm(c.Request.Context(), id, req.Notes)
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// Reject godoc
// @Summary      Reject a pending transaction
// @Description  Admin only. Requires a reason; the transaction becomes failed.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int            true  "Transaction ID"
// @Param        request  body      RejectRequest  true  "Rejection reason"
// @Success      200      {object}  Transaction
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /admin/payments/{id}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	h.terminate(c, h.service.Reject)
}

// Refund godoc
// @Summary      Refund a pending transaction
// @Description  Admin only. Requires a reason; closes a pending transaction as refunded when the received transfer has to be returned.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int            true  "Transaction ID"
// @Param        request  body      RejectRequest  true  "Refund reason"
// @Success      200      {object}  Transaction
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /admin/payments/{id}/refund [post]
func (h *Handler) Refund(c *gin.Context) {
	h.terminate(c, h.service.Refund)
}

func (h *Handler) terminate(c *gin.Context, fn func(ctx context.Context, id int, reason string) (*Transaction, error)) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "A reason is required", Reason: "reason_required"})
		return
	}

	t, err := fn(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

func (h *Handler) respondPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Transaction not found", Reason: "transaction_not_found"})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "Transaction belongs to another user", Reason: "not_owner"})
	case errors.Is(err, ErrNotPending):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Transaction is not pending", Reason: "not_pending"})
	case errors.Is(err, ErrActivationFailed):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Membership activation failed, transaction left pending", Reason: "activation_failed"})
	case errors.Is(err, ErrReasonRequired):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "A reason is required", Reason: "reason_required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment operation failed"})
	}
}
