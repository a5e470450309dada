package booking

import "time"

type Status string

const (
	StatusConfirmed  Status = "confirmed"
	StatusWaitlisted Status = "waitlisted"
	StatusCancelled  Status = "cancelled"
	StatusCompleted  Status = "completed"
	StatusNoShow     Status = "no_show"
)

type Booking struct {
	ID         int       `db:"id" json:"id"`
	UserID     int       `db:"user_id" json:"user_id"`
	ScheduleID int       `db:"schedule_id" json:"schedule_id"`
	Status     Status    `db:"status" json:"status"`
	CheckedIn  bool      `db:"checked_in" json:"checked_in"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type BookingWithDetails struct {
	Booking
	ScheduleStart time.Time `db:"schedule_start" json:"schedule_start"`
	ScheduleEnd   time.Time `db:"schedule_end" json:"schedule_end"`
	ClassName     string    `db:"class_name" json:"class_name"`
	UserName      string    `db:"user_name" json:"user_name"`
	UserEmail     string    `db:"user_email" json:"user_email"`
}

type BookResponse struct {
	Booking    *Booking `json:"booking"`
	Waitlisted bool     `json:"waitlisted"`
	Message    string   `json:"message" example:"Booking confirmed"`
}

type CancelResponse struct {
	Message         string `json:"message" example:"Booking cancelled successfully"`
	PromotedBooking *int   `json:"promoted_booking_id,omitempty"`
}
