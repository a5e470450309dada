package booking

import (
	"context"
	"errors"

	"gymcore/internal/auth"
	"gymcore/internal/logger"
	"gymcore/internal/metrics"
	"gymcore/internal/notify"
)

var ErrNotOwner = errors.New("unauthorized: can only cancel own bookings")

type Service interface {
	Book(ctx context.Context, userID, scheduleID int) (*Booking, error)
	Cancel(ctx context.Context, bookingID, actorID int, actorRole auth.Role) (*Booking, error)
	GetUserBookings(ctx context.Context, userID int) ([]Booking, error)
	GetBookingsBySchedule(ctx context.Context, scheduleID int) ([]BookingWithDetails, error)
	MarkNoShow(ctx context.Context, bookingID int) error
	Complete(ctx context.Context, bookingID int) error
}

type service struct {
	repo      Repository
	publisher notify.Publisher
}

func NewService(repo Repository, publisher notify.Publisher) Service {
	return &service{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *service) Book(ctx context.Context, userID, scheduleID int) (*Booking, error) {
	booking, err := s.repo.Book(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking(string(booking.Status))
	s.notifyBooking(ctx, booking)

	return booking, nil
}

func (s *service) Cancel(ctx context.Context, bookingID, actorID int, actorRole auth.Role) (*Booking, error) {
	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != actorID && actorRole != auth.RoleAdmin {
		return nil, ErrNotOwner
	}

	promoted, err := s.repo.CancelAndPromote(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	metrics.RecordBookingCancellation()

	if promoted != nil {
		metrics.RecordWaitlistPromotion()
		s.notifyBooking(ctx, promoted)
	}

	return promoted, nil
}

func (s *service) GetUserBookings(ctx context.Context, userID int) ([]Booking, error) {
	return s.repo.GetUserBookings(ctx, userID)
}

func (s *service) GetBookingsBySchedule(ctx context.Context, scheduleID int) ([]BookingWithDetails, error) {
	return s.repo.GetBookingsBySchedule(ctx, scheduleID)
}

func (s *service) MarkNoShow(ctx context.Context, bookingID int) error {
	return s.repo.TransitionFromConfirmed(ctx, bookingID, StatusNoShow)
}

func (s *service) Complete(ctx context.Context, bookingID int) error {
	return s.repo.TransitionFromConfirmed(ctx, bookingID, StatusCompleted)
}

// notifyBooking is fire-and-forget; a dropped notification never fails the
// booking itself.
func (s *service) notifyBooking(ctx context.Context, booking *Booking) {
	detail, err := s.repo.GetBookingDetail(ctx, booking.ID)
	if err != nil {
		logger.Errorf("Failed to load booking %d for notification: %v", booking.ID, err)
		return
	}

	eventType := notify.EventBookingConfirmed
	if booking.Status == StatusWaitlisted {
		eventType = notify.EventBookingWaitlisted
	}

	start := detail.ScheduleStart
	scheduleID := booking.ScheduleID
	if err := s.publisher.Publish(ctx, notify.Event{
		Type:          eventType,
		Email:         detail.UserEmail,
		Name:          detail.UserName,
		ScheduleID:    &scheduleID,
		ClassName:     detail.ClassName,
		ScheduleStart: &start,
	}); err != nil {
		logger.Errorf("Failed to publish %s for booking %d: %v", eventType, booking.ID, err)
	}
}
