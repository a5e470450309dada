package checkin

import (
	"errors"
	"net/http"
	"strconv"

	"gymcore/internal/api"
	"gymcore/internal/auth"
	"gymcore/internal/booking"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CheckInRequest struct {
	QRData string `json:"qr_data" binding:"required"`
}

// GetToken godoc
// @Summary      Get check-in QR payload
// @Description  Returns the signed QR payload for one of the caller's bookings.
// @Tags         checkin
// @Security     BearerAuth
// @Produce      json
// @Param        bookingId  query     int  true  "Booking ID"
// @Success      200        {object}  map[string]string
// @Failure      400        {object}  api.ErrorResponse
// @Failure      403        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Router       /checkin [get]
func (h *Handler) GetToken(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Query("bookingId"))
	if err != nil || bookingID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bookingId query param is required"})
		return
	}

	qrData, err := h.service.IssueToken(c.Request.Context(), bookingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, ErrNotTokenOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "Booking belongs to another user"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"qr_data": qrData})
}

// CheckIn godoc
// @Summary      Check in a booking
// @Description  Validates a scanned QR payload and marks attendance exactly once. Trainer or admin only.
// @Tags         checkin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CheckInRequest  true  "Scanned QR payload"
// @Success      200      {object}  Summary
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /checkin [post]
func (h *Handler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qr_data is required"})
		return
	}

	summary, err := h.service.CheckIn(c.Request.Context(), req.QRData)
	if err != nil {
		h.respondCheckInError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) respondCheckInError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBadToken):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid QR code format", Reason: "bad_token"})
	case errors.Is(err, ErrBadSignature):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "QR code signature is invalid", Reason: "bad_signature"})
	case errors.Is(err, ErrTokenExpired):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "QR code has expired", Reason: "token_expired"})
	case errors.Is(err, ErrTooEarly):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Check-in opens 60 minutes before class", Reason: "too_early"})
	case errors.Is(err, ErrTooLate):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Check-in closed 30 minutes after class start", Reason: "too_late"})
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	case errors.Is(err, ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Booking already checked in", Reason: "already_checked_in"})
	case errors.Is(err, ErrBookingCancelled):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Booking is cancelled", Reason: "booking_cancelled"})
	case errors.Is(err, ErrNotConfirmed):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Booking is not confirmed", Reason: "not_confirmed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Check-in failed"})
	}
}
