package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrScheduleStarted   = errors.New("schedule has already started")
	ErrScheduleNotOpen   = errors.New("schedule is not open for booking")
	ErrDuplicateBooking  = errors.New("user already has a booking for this schedule")
	ErrNotCancellable    = errors.New("only confirmed or waitlisted bookings can be cancelled")
	ErrInvalidTransition = errors.New("booking is not in a transitionable state")
)

const uniqueViolation = "23505"

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Book(ctx context.Context, userID, scheduleID int) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var sched struct {
		ID        int       `db:"id"`
		StartTime time.Time `db:"start_time"`
		Status    string    `db:"status"`
	}
	err = tx.GetContext(ctx, &sched, `
		SELECT id, start_time, status
		FROM schedules
		WHERE id = $1
	`, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	if sched.Status != "scheduled" {
		return nil, ErrScheduleNotOpen
	}

	if time.Now().After(sched.StartTime) {
		return nil, ErrScheduleStarted
	}

	var exists bool
	err = tx.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE user_id = $1 AND schedule_id = $2 AND status <> 'cancelled'
		)
	`, userID, scheduleID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateBooking
	}

	// Conditional increment closes the read-then-write race: exactly one
	// caller wins the last seat, everyone else lands on the waitlist.
	result, err := tx.ExecContext(ctx, `
		UPDATE schedules
		SET booked_count = booked_count + 1, updated_at = NOW()
		WHERE id = $1 AND booked_count < capacity AND status = 'scheduled'
	`, scheduleID)
	if err != nil {
		return nil, err
	}

	claimed, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	status := StatusWaitlisted
	if claimed == 1 {
		status = StatusConfirmed
	}

	var booking Booking
	err = tx.GetContext(ctx, &booking, `
		INSERT INTO bookings (user_id, schedule_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, schedule_id, status, checked_in, created_at
	`, userID, scheduleID, status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, ErrDuplicateBooking
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *repository) CancelAndPromote(ctx context.Context, id int) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var current Booking
	err = tx.GetContext(ctx, &current, `
		SELECT id, user_id, schedule_id, status, checked_in, created_at
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if current.Status != StatusConfirmed && current.Status != StatusWaitlisted {
		return nil, ErrNotCancellable
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE bookings SET status = 'cancelled' WHERE id = $1
	`, id); err != nil {
		return nil, err
	}

	var promoted *Booking
	if current.Status == StatusConfirmed {
		if _, err := tx.ExecContext(ctx, `
			UPDATE schedules
			SET booked_count = booked_count - 1, updated_at = NOW()
			WHERE id = $1 AND booked_count > 0
		`, current.ScheduleID); err != nil {
			return nil, err
		}

		promoted, err = promoteOldestWaitlisted(ctx, tx, current.ScheduleID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return promoted, nil
}

// promoteOldestWaitlisted moves the FIFO head of the schedule's waitlist to
// confirmed, re-claiming the seat that the cancellation just freed.
func promoteOldestWaitlisted(ctx context.Context, tx *sqlx.Tx, scheduleID int) (*Booking, error) {
	var candidate Booking
	err := tx.GetContext(ctx, &candidate, `
		SELECT id, user_id, schedule_id, status, checked_in, created_at
		FROM bookings
		WHERE schedule_id = $1 AND status = 'waitlisted'
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE schedules
		SET booked_count = booked_count + 1, updated_at = NOW()
		WHERE id = $1 AND booked_count < capacity
	`, scheduleID)
	if err != nil {
		return nil, err
	}

	claimed, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if claimed == 0 {
		// Someone re-filled the seat between the decrement and here; the
		// waitlisted booking stays queued.
		return nil, nil
	}

	err = tx.GetContext(ctx, &candidate, `
		UPDATE bookings
		SET status = 'confirmed'
		WHERE id = $1
		RETURNING id, user_id, schedule_id, status, checked_in, created_at
	`, candidate.ID)
	if err != nil {
		return nil, err
	}

	return &candidate, nil
}

func (r *repository) GetBookingByID(ctx context.Context, id int) (*Booking, error) {
	query := `
		SELECT id, user_id, schedule_id, status, checked_in, created_at
		FROM bookings
		WHERE id = $1
	`

	var booking Booking
	err := r.db.GetContext(ctx, &booking, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &booking, nil
}

func (r *repository) GetBookingDetail(ctx context.Context, id int) (*BookingWithDetails, error) {
	query := `
		SELECT
			b.id,
			b.user_id,
			b.schedule_id,
			b.status,
			b.checked_in,
			b.created_at,
			s.start_time AS schedule_start,
			s.end_time AS schedule_end,
			c.name AS class_name,
			u.name AS user_name,
			u.email AS user_email
		FROM bookings b
		JOIN schedules s ON b.schedule_id = s.id
		JOIN classes c ON s.class_id = c.id
		JOIN users u ON b.user_id = u.id
		WHERE b.id = $1
	`

	var detail BookingWithDetails
	err := r.db.GetContext(ctx, &detail, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &detail, nil
}

func (r *repository) GetUserBookings(ctx context.Context, userID int) ([]Booking, error) {
	query := `
		SELECT id, user_id, schedule_id, status, checked_in, created_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, query, userID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) GetBookingsBySchedule(ctx context.Context, scheduleID int) ([]BookingWithDetails, error) {
	query := `
		SELECT
			b.id,
			b.user_id,
			b.schedule_id,
			b.status,
			b.checked_in,
			b.created_at,
			s.start_time AS schedule_start,
			s.end_time AS schedule_end,
			c.name AS class_name,
			u.name AS user_name,
			u.email AS user_email
		FROM bookings b
		JOIN schedules s ON b.schedule_id = s.id
		JOIN classes c ON s.class_id = c.id
		JOIN users u ON b.user_id = u.id
		WHERE b.schedule_id = $1
		ORDER BY b.created_at ASC
	`

	var bookings []BookingWithDetails
	err := r.db.SelectContext(ctx, &bookings, query, scheduleID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) TransitionFromConfirmed(ctx context.Context, id int, to Status) error {
	if to != StatusCompleted && to != StatusNoShow {
		return ErrInvalidTransition
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = $2
		WHERE id = $1 AND status = 'confirmed'
	`, id, to)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInvalidTransition
	}

	return nil
}

func (r *repository) MarkCheckedIn(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET checked_in = TRUE
		WHERE id = $1 AND checked_in = FALSE AND status = 'confirmed'
	`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}
