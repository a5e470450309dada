package schedule

import (
	"errors"
	"net/http"
	"strconv"

	"gymcore/internal/api"
	"gymcore/internal/metrics"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateClass godoc
// @Summary      Create class
// @Description  Creates a bookable class template. Trainer or admin only.
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateClassRequest  true  "Class data"
// @Success      201      {object}  Class
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /classes [post]
func (h *Handler) CreateClass(c *gin.Context) {
	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	class, err := h.service.CreateClass(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create class"})
		return
	}

	c.JSON(http.StatusCreated, class)
}

// ListClasses godoc
// @Summary      List classes
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Class
// @Failure      500  {object}  api.ErrorResponse
// @Router       /classes [get]
func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.service.ListClasses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch classes"})
		return
	}

	c.JSON(http.StatusOK, classes)
}

// CreateSchedule godoc
// @Summary      Create schedule
// @Description  Creates one occurrence of a class. Fails when the trainer already has an overlapping schedule. Trainer or admin only.
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateScheduleRequest  true  "Schedule data"
// @Success      201      {object}  Schedule
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /schedules [post]
func (h *Handler) CreateSchedule(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.service.CreateSchedule(c.Request.Context(), req)
	if err != nil {
		h.respondScheduleError(c, err)
		return
	}

	metrics.RecordScheduleCreated()
	c.JSON(http.StatusCreated, schedule)
}

// UpdateSchedule godoc
// @Summary      Update schedule
// @Description  Edits a schedule; trainer or time changes re-run the overlap check. Trainer or admin only.
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        scheduleID  path      int                    true  "Schedule ID"
// @Param        request     body      UpdateScheduleRequest  true  "Changes"
// @Success      200         {object}  Schedule
// @Failure      400         {object}  api.ErrorResponse
// @Failure      404         {object}  api.ErrorResponse
// @Failure      409         {object}  api.ErrorResponse
// @Failure      500         {object}  api.ErrorResponse
// @Router       /schedules/{scheduleID} [patch]
func (h *Handler) UpdateSchedule(c *gin.Context) {
	scheduleID, err := strconv.Atoi(c.Param("scheduleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule ID"})
		return
	}

	var req UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.service.UpdateSchedule(c.Request.Context(), scheduleID, req)
	if err != nil {
		h.respondScheduleError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// CancelSchedule godoc
// @Summary      Cancel schedule
// @Description  Soft-deletes a schedule. Trainer or admin only.
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        scheduleID  path      int  true  "Schedule ID"
// @Success      200         {object}  api.MessageResponse
// @Failure      400         {object}  api.ErrorResponse
// @Failure      404         {object}  api.ErrorResponse
// @Router       /schedules/{scheduleID}/cancel [post]
func (h *Handler) CancelSchedule(c *gin.Context) {
	scheduleID, err := strconv.Atoi(c.Param("scheduleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule ID"})
		return
	}

	if err := h.service.CancelSchedule(c.Request.Context(), scheduleID); err != nil {
		if errors.Is(err, ErrScheduleAlreadyCancelled) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found or already cancelled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel schedule"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Schedule cancelled successfully"})
}

// ListSchedules godoc
// @Summary      List schedules for a class
// @Description  Returns non-cancelled schedules with seat availability.
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int     true   "Class ID"
// @Param        future   query     bool    false  "Only future schedules"
// @Success      200      {array}   ScheduleWithAvailability
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /classes/{classID}/schedules [get]
func (h *Handler) ListSchedules(c *gin.Context) {
	classID, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid class ID"})
		return
	}

	onlyFuture := c.DefaultQuery("future", "true") == "true"

	schedules, err := h.service.ListSchedules(c.Request.Context(), classID, onlyFuture)
	if err != nil {
		if errors.Is(err, ErrClassNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schedules"})
		return
	}

	c.JSON(http.StatusOK, schedules)
}

func (h *Handler) respondScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTrainerOverlap):
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:  "Trainer already has a schedule in this time range",
			Reason: "trainer_overlap",
		})
	case errors.Is(err, ErrInvalidTimeRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time range"})
	case errors.Is(err, ErrInvalidCapacity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Capacity must be positive"})
	case errors.Is(err, ErrCapacityBelowBooked):
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:  "Capacity cannot drop below the number of booked seats",
			Reason: "capacity_below_booked",
		})
	case errors.Is(err, ErrClassNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
	case errors.Is(err, ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}
