package schedule

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Class struct {
	ID              int       `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	TrainerID       int       `db:"trainer_id" json:"trainer_id"`
	DefaultCapacity int       `db:"default_capacity" json:"default_capacity"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type Schedule struct {
	ID          int       `db:"id" json:"id"`
	ClassID     int       `db:"class_id" json:"class_id"`
	TrainerID   int       `db:"trainer_id" json:"trainer_id"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	Capacity    int       `db:"capacity" json:"capacity"`
	BookedCount int       `db:"booked_count" json:"booked_count"`
	Status      Status    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type ScheduleWithAvailability struct {
	Schedule
	ClassName string `db:"class_name" json:"class_name"`
	Available int    `json:"available"`
	IsFull    bool   `json:"is_full"`
}

type CreateClassRequest struct {
	Name            string `json:"name" binding:"required"`
	TrainerID       int    `json:"trainer_id" binding:"required"`
	DefaultCapacity int    `json:"default_capacity" binding:"required,min=1"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1"`
}

type CreateScheduleRequest struct {
	ClassID   int    `json:"class_id" binding:"required"`
	TrainerID int    `json:"trainer_id" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Capacity  int    `json:"capacity" binding:"required,min=1"`
}

// UpdateScheduleRequest carries partial edits; nil fields are left unchanged.
type UpdateScheduleRequest struct {
	TrainerID *int    `json:"trainer_id,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Capacity  *int    `json:"capacity,omitempty"`
}
