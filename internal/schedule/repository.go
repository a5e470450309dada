package schedule

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrScheduleNotFound         = errors.New("schedule not found")
	ErrClassNotFound            = errors.New("class not found")
	ErrTrainerOverlap           = errors.New("trainer already has a schedule in this time range")
	ErrScheduleAlreadyCancelled = errors.New("schedule not found or already cancelled")
	ErrCapacityBelowBooked      = errors.New("capacity is below the number of booked seats")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateClass(ctx context.Context, name string, trainerID, defaultCapacity, durationMinutes int) (*Class, error) {
	query := `
		INSERT INTO classes (name, trainer_id, default_capacity, duration_minutes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, trainer_id, default_capacity, duration_minutes, created_at
	`

	var class Class
	err := r.db.GetContext(ctx, &class, query, name, trainerID, defaultCapacity, durationMinutes)
	if err != nil {
		return nil, err
	}

	return &class, nil
}

func (r *repository) GetClassByID(ctx context.Context, id int) (*Class, error) {
	query := `
		SELECT id, name, trainer_id, default_capacity, duration_minutes, created_at
		FROM classes
		WHERE id = $1
	`

	var class Class
	err := r.db.GetContext(ctx, &class, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	return &class, nil
}

func (r *repository) ListClasses(ctx context.Context) ([]Class, error) {
	query := `
		SELECT id, name, trainer_id, default_capacity, duration_minutes, created_at
		FROM classes
		ORDER BY name ASC
	`

	var classes []Class
	err := r.db.SelectContext(ctx, &classes, query)
	if err != nil {
		return nil, err
	}

	return classes, nil
}

// trainerHasOverlap checks [start,end) intersection against the trainer's
// non-cancelled schedules. excludeID skips the schedule being edited (0 for
// inserts).
func trainerHasOverlap(ctx context.Context, tx *sqlx.Tx, trainerID int, start, end time.Time, excludeID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM schedules
			WHERE trainer_id = $1
			  AND status <> 'cancelled'
			  AND id <> $2
			  AND start_time < $4
			  AND $3 < end_time
		)
	`

	var exists bool
	err := tx.GetContext(ctx, &exists, query, trainerID, excludeID, start, end)
	return exists, err
}

func (r *repository) CreateSchedule(ctx context.Context, classID, trainerID int, start, end time.Time, capacity int) (*Schedule, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Serialize concurrent creates/updates for the same trainer so the
	// overlap check and the insert are one atomic unit.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(trainerID)); err != nil {
		return nil, err
	}

	overlap, err := trainerHasOverlap(ctx, tx, trainerID, start, end, 0)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrTrainerOverlap
	}

	var schedule Schedule
	err = tx.GetContext(ctx, &schedule, `
		INSERT INTO schedules (class_id, trainer_id, start_time, end_time, capacity, booked_count, status)
		VALUES ($1, $2, $3, $4, $5, 0, 'scheduled')
		RETURNING id, class_id, trainer_id, start_time, end_time, capacity, booked_count, status, created_at, updated_at
	`, classID, trainerID, start, end, capacity)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &schedule, nil
}

func (r *repository) UpdateSchedule(ctx context.Context, id int, trainerID int, start, end time.Time, capacity int) (*Schedule, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(trainerID)); err != nil {
		return nil, err
	}

	overlap, err := trainerHasOverlap(ctx, tx, trainerID, start, end, id)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrTrainerOverlap
	}

	// Lock the row so the booked_count read and the capacity update cannot
	// interleave with a concurrent booking.
	var bookedCount int
	err = tx.GetContext(ctx, &bookedCount, `
		SELECT booked_count FROM schedules
		WHERE id = $1 AND status <> 'cancelled'
		FOR UPDATE
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	if capacity < bookedCount {
		return nil, ErrCapacityBelowBooked
	}

	var schedule Schedule
	err = tx.GetContext(ctx, &schedule, `
		UPDATE schedules
		SET trainer_id = $2, start_time = $3, end_time = $4, capacity = $5, updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'
		RETURNING id, class_id, trainer_id, start_time, end_time, capacity, booked_count, status, created_at, updated_at
	`, id, trainerID, start, end, capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &schedule, nil
}

func (r *repository) CancelSchedule(ctx context.Context, id int) error {
	query := `
		UPDATE schedules
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrScheduleAlreadyCancelled
	}

	return nil
}

func (r *repository) GetScheduleByID(ctx context.Context, id int) (*Schedule, error) {
	query := `
		SELECT id, class_id, trainer_id, start_time, end_time, capacity, booked_count, status, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`

	var schedule Schedule
	err := r.db.GetContext(ctx, &schedule, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	return &schedule, nil
}

func (r *repository) ListSchedulesByClass(ctx context.Context, classID int, onlyFuture bool) ([]ScheduleWithAvailability, error) {
	query := `
		SELECT s.id, s.class_id, s.trainer_id, s.start_time, s.end_time, s.capacity,
		       s.booked_count, s.status, s.created_at, s.updated_at,
		       c.name AS class_name
		FROM schedules s
		JOIN classes c ON s.class_id = c.id
		WHERE s.class_id = $1 AND s.status <> 'cancelled'
	`

	if onlyFuture {
		query += " AND s.start_time > NOW()"
	}

	query += " ORDER BY s.start_time ASC"

	var schedules []ScheduleWithAvailability
	err := r.db.SelectContext(ctx, &schedules, query, classID)
	if err != nil {
		return nil, err
	}

	for i := range schedules {
		schedules[i].Available = schedules[i].Capacity - schedules[i].BookedCount
		schedules[i].IsFull = schedules[i].Available <= 0
	}

	return schedules, nil
}
