package schedule

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidCapacity  = errors.New("capacity must be positive")
)

type Service interface {
	CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error)
	ListClasses(ctx context.Context) ([]Class, error)
	CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*Schedule, error)
	UpdateSchedule(ctx context.Context, id int, req UpdateScheduleRequest) (*Schedule, error)
	CancelSchedule(ctx context.Context, id int) error
	GetSchedule(ctx context.Context, id int) (*Schedule, error)
	ListSchedules(ctx context.Context, classID int, onlyFuture bool) ([]ScheduleWithAvailability, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error) {
	return s.repo.CreateClass(ctx, req.Name, req.TrainerID, req.DefaultCapacity, req.DurationMinutes)
}

func (s *service) ListClasses(ctx context.Context) ([]Class, error) {
	return s.repo.ListClasses(ctx)
}

func (s *service) CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*Schedule, error) {
	if _, err := s.repo.GetClassByID(ctx, req.ClassID); err != nil {
		return nil, err
	}

	start, end, err := parseTimeRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if req.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	return s.repo.CreateSchedule(ctx, req.ClassID, req.TrainerID, start, end, req.Capacity)
}

func (s *service) UpdateSchedule(ctx context.Context, id int, req UpdateScheduleRequest) (*Schedule, error) {
	existing, err := s.repo.GetScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	trainerID := existing.TrainerID
	if req.TrainerID != nil {
		trainerID = *req.TrainerID
	}

	start := existing.StartTime
	if req.StartTime != nil {
		start, err = time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			return nil, ErrInvalidTimeRange
		}
	}

	end := existing.EndTime
	if req.EndTime != nil {
		end, err = time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			return nil, ErrInvalidTimeRange
		}
	}

	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}

	capacity := existing.Capacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	return s.repo.UpdateSchedule(ctx, id, trainerID, start, end, capacity)
}

func (s *service) CancelSchedule(ctx context.Context, id int) error {
	return s.repo.CancelSchedule(ctx, id)
}

func (s *service) GetSchedule(ctx context.Context, id int) (*Schedule, error) {
	return s.repo.GetScheduleByID(ctx, id)
}

func (s *service) ListSchedules(ctx context.Context, classID int, onlyFuture bool) ([]ScheduleWithAvailability, error) {
	if _, err := s.repo.GetClassByID(ctx, classID); err != nil {
		return nil, err
	}

	return s.repo.ListSchedulesByClass(ctx, classID, onlyFuture)
}

func parseTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}

	return start, end, nil
}
