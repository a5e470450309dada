package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockScheduleRepo struct{ mock.Mock }

func (m *MockScheduleRepo) CreateClass(ctx context.Context, name string, trainerID, defaultCapacity, durationMinutes int) (*Class, error) {
	args := m.Called(ctx, name, trainerID, defaultCapacity, durationMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Class), args.Error(1)
}

func (m *MockScheduleRepo) GetClassByID(ctx context.Context, id int) (*Class, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Class), args.Error(1)
}

func (m *MockScheduleRepo) ListClasses(ctx context.Context) ([]Class, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Class), args.Error(1)
}

func (m *MockScheduleRepo) CreateSchedule(ctx context.Context, classID, trainerID int, start, end time.Time, capacity int) (*Schedule, error) {
	args := m.Called(ctx, classID, trainerID, start, end, capacity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Schedule), args.Error(1)
}

func (m *MockScheduleRepo) UpdateSchedule(ctx context.Context, id, trainerID int, start, end time.Time, capacity int) (*Schedule, error) {
	args := m.Called(ctx, id, trainerID, start, end, capacity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Schedule), args.Error(1)
}

func (m *MockScheduleRepo) CancelSchedule(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockScheduleRepo) GetScheduleByID(ctx context.Context, id int) (*Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Schedule), args.Error(1)
}

func (m *MockScheduleRepo) ListSchedulesByClass(ctx context.Context, classID int, onlyFuture bool) ([]ScheduleWithAvailability, error) {
	args := m.Called(ctx, classID, onlyFuture)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ScheduleWithAvailability), args.Error(1)
}

func TestService_CreateSchedule(t *testing.T) {
	class := &Class{ID: 1, Name: "Spin", TrainerID: 7}
	start := "2026-09-01T10:00:00Z"
	end := "2026-09-01T11:00:00Z"

	tests := []struct {
		name       string
		req        CreateScheduleRequest
		setupMocks func(*MockScheduleRepo)
		wantErr    error
	}{
		{
			name: "valid request",
			req:  CreateScheduleRequest{ClassID: 1, TrainerID: 7, StartTime: start, EndTime: end, Capacity: 20},
			setupMocks: func(r *MockScheduleRepo) {
				r.On("GetClassByID", mock.Anything, 1).Return(class, nil)
				r.On("CreateSchedule", mock.Anything, 1, 7, mock.Anything, mock.Anything, 20).
					Return(&Schedule{ID: 5, ClassID: 1, TrainerID: 7, Capacity: 20}, nil)
			},
		},
		{
			name: "unknown class",
			req:  CreateScheduleRequest{ClassID: 99, TrainerID: 7, StartTime: start, EndTime: end, Capacity: 20},
			setupMocks: func(r *MockScheduleRepo) {
				r.On("GetClassByID", mock.Anything, 99).Return(nil, ErrClassNotFound)
			},
			wantErr: ErrClassNotFound,
		},
		{
			name: "end before start",
			req:  CreateScheduleRequest{ClassID: 1, TrainerID: 7, StartTime: end, EndTime: start, Capacity: 20},
			setupMocks: func(r *MockScheduleRepo) {
				r.On("GetClassByID", mock.Anything, 1).Return(class, nil)
			},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name: "zero duration",
			req:  CreateScheduleRequest{ClassID: 1, TrainerID: 7, StartTime: start, EndTime: start, Capacity: 20},
			setupMocks: func(r *MockScheduleRepo) {
				r.On("GetClassByID", mock.Anything, 1).Return(class, nil)
			},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name: "garbage timestamp",
			req:  CreateScheduleRequest{ClassID: 1, TrainerID: 7, StartTime: "tomorrow-ish", EndTime: end, Capacity: 20},
			setupMocks: func(r *MockScheduleRepo) {
				r.On("GetClassByID", mock.Anything, 1).Return(class, nil)
			},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name: "zero capacity",
			req:  CreateScheduleRequest{ClassID: 1, TrainerID: 7, StartTime: start, EndTime: end, Capacity: 0},
			setupMocks: func(r *MockScheduleRepo) {
				r.On("GetClassByID", mock.Anything, 1).Return(class, nil)
			},
			wantErr: ErrInvalidCapacity,
		},
		{
			name: "overlap surfaces from repository",
			req:  CreateScheduleRequest{ClassID: 1, TrainerID: 7, StartTime: start, EndTime: end, Capacity: 20},
			setupMocks: func(r *MockScheduleRepo) {
				r.On("GetClassByID", mock.Anything, 1).Return(class, nil)
				r.On("CreateSchedule", mock.Anything, 1, 7, mock.Anything, mock.Anything, 20).
					Return(nil, ErrTrainerOverlap)
			},
			wantErr: ErrTrainerOverlap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockScheduleRepo)
			tt.setupMocks(repo)

			svc := NewService(repo)
			got, err := svc.CreateSchedule(context.Background(), tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_UpdateSchedule_MergesPartialFields(t *testing.T) {
	existingStart := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	existingEnd := existingStart.Add(time.Hour)
	existing := &Schedule{
		ID:        5,
		ClassID:   1,
		TrainerID: 7,
		StartTime: existingStart,
		EndTime:   existingEnd,
		Capacity:  20,
	}

	t.Run("only capacity changes", func(t *testing.T) {
		repo := new(MockScheduleRepo)
		repo.On("GetScheduleByID", mock.Anything, 5).Return(existing, nil)
		repo.On("UpdateSchedule", mock.Anything, 5, 7, existingStart, existingEnd, 25).
			Return(&Schedule{ID: 5, Capacity: 25}, nil)

		capacity := 25
		svc := NewService(repo)
		got, err := svc.UpdateSchedule(context.Background(), 5, UpdateScheduleRequest{Capacity: &capacity})

		assert.NoError(t, err)
		assert.Equal(t, 25, got.Capacity)
		repo.AssertExpectations(t)
	})

	t.Run("new start after existing end", func(t *testing.T) {
		repo := new(MockScheduleRepo)
		repo.On("GetScheduleByID", mock.Anything, 5).Return(existing, nil)

		badStart := existingEnd.Add(time.Hour).Format(time.RFC3339)
		svc := NewService(repo)
		_, err := svc.UpdateSchedule(context.Background(), 5, UpdateScheduleRequest{StartTime: &badStart})

		assert.ErrorIs(t, err, ErrInvalidTimeRange)
		repo.AssertNotCalled(t, "UpdateSchedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("capacity lowered to zero", func(t *testing.T) {
		repo := new(MockScheduleRepo)
		repo.On("GetScheduleByID", mock.Anything, 5).Return(existing, nil)

		capacity := 0
		svc := NewService(repo)
		_, err := svc.UpdateSchedule(context.Background(), 5, UpdateScheduleRequest{Capacity: &capacity})

		assert.ErrorIs(t, err, ErrInvalidCapacity)
		repo.AssertNotCalled(t, "UpdateSchedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing schedule", func(t *testing.T) {
		repo := new(MockScheduleRepo)
		repo.On("GetScheduleByID", mock.Anything, 99).Return(nil, ErrScheduleNotFound)

		svc := NewService(repo)
		_, err := svc.UpdateSchedule(context.Background(), 99, UpdateScheduleRequest{})

		assert.ErrorIs(t, err, ErrScheduleNotFound)
	})
}
