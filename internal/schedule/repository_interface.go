package schedule

import (
	"context"
	"time"
)

type Repository interface {
	CreateClass(ctx context.Context, name string, trainerID, defaultCapacity, durationMinutes int) (*Class, error)
	GetClassByID(ctx context.Context, id int) (*Class, error)
	ListClasses(ctx context.Context) ([]Class, error)

	// CreateSchedule checks the trainer-overlap invariant and inserts inside
	// one transaction serialized per trainer.
	CreateSchedule(ctx context.Context, classID, trainerID int, start, end time.Time, capacity int) (*Schedule, error)
	// UpdateSchedule re-checks the overlap invariant excluding the edited row.
	UpdateSchedule(ctx context.Context, id int, trainerID int, start, end time.Time, capacity int) (*Schedule, error)
	CancelSchedule(ctx context.Context, id int) error
	GetScheduleByID(ctx context.Context, id int) (*Schedule, error)
	ListSchedulesByClass(ctx context.Context, classID int, onlyFuture bool) ([]ScheduleWithAvailability, error)
}
