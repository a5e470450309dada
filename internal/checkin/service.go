package checkin

import (
	"context"
	"errors"
	"time"

	"gymcore/internal/booking"
	"gymcore/internal/metrics"
)

const (
	// Check-in opens 60 minutes before the schedule starts and closes 30
	// minutes after; both are evaluated against wall-clock time at request
	// time.
	earlyWindow = 60 * time.Minute
	lateWindow  = 30 * time.Minute
)

var (
	ErrAlreadyCheckedIn = errors.New("booking already checked in")
	ErrBookingCancelled = errors.New("booking is cancelled")
	ErrNotConfirmed     = errors.New("booking is not confirmed")
	ErrTooEarly         = errors.New("check-in window has not opened yet")
	ErrTooLate          = errors.New("check-in window has closed")
)

// Summary is what the front desk sees after a successful scan.
type Summary struct {
	BookingID     int       `json:"booking_id"`
	UserName      string    `json:"user_name"`
	ClassName     string    `json:"class_name"`
	ScheduleStart time.Time `json:"schedule_start"`
	ScheduleEnd   time.Time `json:"schedule_end"`
}

type Service interface {
	IssueToken(ctx context.Context, bookingID, requesterID int) (string, error)
	CheckIn(ctx context.Context, qrData string) (*Summary, error)
}

type service struct {
	bookings booking.Repository
	secret   string
	maxAge   time.Duration
	now      func() time.Time
}

func NewService(bookings booking.Repository, secret string, maxAgeMinutes int) Service {
	return &service{
		bookings: bookings,
		secret:   secret,
		maxAge:   time.Duration(maxAgeMinutes) * time.Minute,
		now:      time.Now,
	}
}

var ErrNotTokenOwner = errors.New("booking belongs to another user")

func (s *service) IssueToken(ctx context.Context, bookingID, requesterID int) (string, error) {
	b, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return "", err
	}

	if b.UserID != requesterID {
		return "", ErrNotTokenOwner
	}

	return IssueToken(s.secret, bookingID, s.now())
}

func (s *service) CheckIn(ctx context.Context, qrData string) (*Summary, error) {
	now := s.now()

	bookingID, err := ParseToken(s.secret, qrData, now, s.maxAge)
	if err != nil {
		metrics.RecordCheckin("rejected_token")
		return nil, err
	}

	detail, err := s.bookings.GetBookingDetail(ctx, bookingID)
	if err != nil {
		metrics.RecordCheckin("not_found")
		return nil, err
	}

	if detail.CheckedIn {
		metrics.RecordCheckin("already_checked_in")
		return nil, ErrAlreadyCheckedIn
	}

	switch detail.Status {
	case booking.StatusCancelled:
		metrics.RecordCheckin("cancelled")
		return nil, ErrBookingCancelled
	case booking.StatusConfirmed:
		// ok
	default:
		metrics.RecordCheckin("not_confirmed")
		return nil, ErrNotConfirmed
	}

	// Validity is derived from the schedule's start time, not from the
	// token's own timestamp.
	if detail.ScheduleStart.Sub(now) > earlyWindow {
		metrics.RecordCheckin("too_early")
		return nil, ErrTooEarly
	}
	if now.Sub(detail.ScheduleStart) > lateWindow {
		metrics.RecordCheckin("too_late")
		return nil, ErrTooLate
	}

	applied, err := s.bookings.MarkCheckedIn(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race to a concurrent scan of the same token.
		metrics.RecordCheckin("already_checked_in")
		return nil, ErrAlreadyCheckedIn
	}

	metrics.RecordCheckin("ok")

	return &Summary{
		BookingID:     detail.ID,
		UserName:      detail.UserName,
		ClassName:     detail.ClassName,
		ScheduleStart: detail.ScheduleStart,
		ScheduleEnd:   detail.ScheduleEnd,
	}, nil
}
