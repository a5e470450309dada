package booking

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"gymcore/internal/api"
	"gymcore/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Book godoc
// @Summary      Book a schedule
// @Description  Claims a seat on the schedule. When the class is full the booking is waitlisted, which is a successful outcome.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        scheduleID  path      int  true  "Schedule ID"
// @Success      201         {object}  BookResponse
// @Failure      400         {object}  api.ErrorResponse
// @Failure      404         {object}  api.ErrorResponse
// @Failure      409         {object}  api.ErrorResponse
// @Failure      500         {object}  api.ErrorResponse
// @Router       /schedules/{scheduleID}/book [post]
func (h *Handler) Book(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	scheduleID, err := strconv.Atoi(c.Param("scheduleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule ID"})
		return
	}

	booking, err := h.service.Book(c.Request.Context(), userID, scheduleID)
	if err != nil {
		switch {
		case errors.Is(err, ErrScheduleNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
		case errors.Is(err, ErrScheduleStarted):
			c.JSON(http.StatusConflict, api.ErrorResponse{
				Error:  "Booking is closed, the class has already started",
				Reason: "schedule_started",
			})
		case errors.Is(err, ErrScheduleNotOpen):
			c.JSON(http.StatusConflict, api.ErrorResponse{
				Error:  "Schedule is not open for booking",
				Reason: "schedule_not_open",
			})
		case errors.Is(err, ErrDuplicateBooking):
			c.JSON(http.StatusConflict, api.ErrorResponse{
				Error:  "You already have a booking for this schedule",
				Reason: "duplicate_booking",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		}
		return
	}

	message := "Booking confirmed"
	if booking.Status == StatusWaitlisted {
		message = "Class is full, you have been added to the waitlist"
	}

	c.JSON(http.StatusCreated, BookResponse{
		Booking:    booking,
		Waitlisted: booking.Status == StatusWaitlisted,
		Message:    message,
	})
}

// Cancel godoc
// @Summary      Cancel booking
// @Description  Cancels a confirmed or waitlisted booking; a freed seat promotes the oldest waitlisted booking.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  CancelResponse
// @Failure      400        {object}  api.ErrorResponse
// @Failure      403        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      500        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	role, _ := auth.GetRole(c)

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	promoted, err := h.service.Cancel(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only cancel your own bookings"})
		case errors.Is(err, ErrNotCancellable):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only confirmed or waitlisted bookings can be cancelled"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel booking"})
		}
		return
	}

	resp := CancelResponse{Message: "Booking cancelled successfully"}
	if promoted != nil {
		resp.PromotedBooking = &promoted.ID
	}

	c.JSON(http.StatusOK, resp)
}

// ListMyBookings godoc
// @Summary      List my bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Booking
// @Failure      500  {object}  api.ErrorResponse
// @Router       /bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookings, err := h.service.GetUserBookings(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ListBookingsBySchedule godoc
// @Summary      List bookings by schedule
// @Description  Returns all bookings for a schedule. Trainer or admin only.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        scheduleID  path      int  true  "Schedule ID"
// @Success      200         {array}   BookingWithDetails
// @Failure      400         {object}  api.ErrorResponse
// @Failure      500         {object}  api.ErrorResponse
// @Router       /schedules/{scheduleID}/bookings [get]
func (h *Handler) ListBookingsBySchedule(c *gin.Context) {
	scheduleID, err := strconv.Atoi(c.Param("scheduleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule ID"})
		return
	}

	bookings, err := h.service.GetBookingsBySchedule(c.Request.Context(), scheduleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// MarkNoShow godoc
// @Summary      Mark booking as no-show
// @Description  Moves a confirmed booking to no_show after the class. Trainer or admin only.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  api.MessageResponse
// @Failure      400        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/no-show [post]
func (h *Handler) MarkNoShow(c *gin.Context) {
	h.transition(c, h.service.MarkNoShow, "Booking marked as no-show")
}

// Complete godoc
// @Summary      Mark booking as completed
// @Description  Moves a confirmed booking to completed after the class. Trainer or admin only.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  api.MessageResponse
// @Failure      400        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete, "Booking marked as completed")
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id int) error, message string) {
	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	if err := fn(c.Request.Context(), bookingID); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "Booking is not in a confirmed state"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update booking"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: message})
}
