package booking

import "context"

type Repository interface {
	// Book claims a seat on the schedule with a conditional increment of
	// booked_count; the race loser is written as a waitlisted booking.
	Book(ctx context.Context, userID, scheduleID int) (*Booking, error)
	// CancelAndPromote cancels the booking and, when it held a seat, frees it
	// and promotes the oldest waitlisted booking inside the same transaction.
	CancelAndPromote(ctx context.Context, id int) (promoted *Booking, err error)
	GetBookingByID(ctx context.Context, id int) (*Booking, error)
	GetBookingDetail(ctx context.Context, id int) (*BookingWithDetails, error)
	GetUserBookings(ctx context.Context, userID int) ([]Booking, error)
	GetBookingsBySchedule(ctx context.Context, scheduleID int) ([]BookingWithDetails, error)
	// TransitionFromConfirmed moves a confirmed booking to completed or
	// no_show.
	TransitionFromConfirmed(ctx context.Context, id int, to Status) error
	// MarkCheckedIn flips checked_in false→true on a confirmed booking.
	// Returns false when the conditional update matched no row, which under
	// concurrent check-ins means another caller already won.
	MarkCheckedIn(ctx context.Context, id int) (bool, error)
}
