package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() {
		sqlxDB.Close()
	}

	return repo, mock, closer
}

func bookingRows(id, userID, scheduleID int, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "schedule_id", "status", "checked_in", "created_at"}).
		AddRow(id, userID, scheduleID, status, false, time.Now())
}

func expectOpenSchedule(mock sqlmock.Sqlmock, scheduleID int, start time.Time, status string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, start_time, status")).
		WithArgs(scheduleID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_time", "status"}).
			AddRow(scheduleID, start, status))
}

func TestBook_SeatClaimed(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Now().Add(2 * time.Hour)

	mock.ExpectBegin()
	expectOpenSchedule(mock, 2, start, "scheduled")
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("SET booked_count = booked_count + 1")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(1, 2, "confirmed").
		WillReturnRows(bookingRows(10, 1, 2, "confirmed"))
	mock.ExpectCommit()

	b, err := repo.Book(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, b.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_FullScheduleWaitlists(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Now().Add(2 * time.Hour)

	mock.ExpectBegin()
	expectOpenSchedule(mock, 2, start, "scheduled")
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	// Zero rows means the seat claim lost: capacity is exhausted.
	mock.ExpectExec(regexp.QuoteMeta("SET booked_count = booked_count + 1")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(1, 2, "waitlisted").
		WillReturnRows(bookingRows(11, 1, 2, "waitlisted"))
	mock.ExpectCommit()

	b, err := repo.Book(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, StatusWaitlisted, b.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_Duplicate(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Now().Add(2 * time.Hour)

	mock.ExpectBegin()
	expectOpenSchedule(mock, 2, start, "scheduled")
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrDuplicateBooking)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_ScheduleStarted(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	expectOpenSchedule(mock, 2, time.Now().Add(-time.Minute), "scheduled")
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrScheduleStarted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_ScheduleCancelled(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	expectOpenSchedule(mock, 2, time.Now().Add(2*time.Hour), "cancelled")
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrScheduleNotOpen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAndPromote_ConfirmedSeatGoesToWaitlistHead(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings")).
		WithArgs(10).
		WillReturnRows(bookingRows(10, 1, 2, "confirmed"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = 'cancelled' WHERE id = $1")).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET booked_count = booked_count - 1")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(2).
		WillReturnRows(bookingRows(11, 9, 2, "waitlisted"))
	mock.ExpectExec(regexp.QuoteMeta("SET booked_count = booked_count + 1")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SET status = 'confirmed'")).
		WithArgs(11).
		WillReturnRows(bookingRows(11, 9, 2, "confirmed"))
	mock.ExpectCommit()

	promoted, err := repo.CancelAndPromote(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, promoted)
	require.Equal(t, 11, promoted.ID)
	require.Equal(t, StatusConfirmed, promoted.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAndPromote_EmptyWaitlist(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings")).
		WithArgs(10).
		WillReturnRows(bookingRows(10, 1, 2, "confirmed"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = 'cancelled' WHERE id = $1")).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET booked_count = booked_count - 1")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "schedule_id", "status", "checked_in", "created_at"}))
	mock.ExpectCommit()

	promoted, err := repo.CancelAndPromote(context.Background(), 10)
	require.NoError(t, err)
	require.Nil(t, promoted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAndPromote_WaitlistedFreesNoSeat(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings")).
		WithArgs(12).
		WillReturnRows(bookingRows(12, 3, 2, "waitlisted"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = 'cancelled' WHERE id = $1")).
		WithArgs(12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	promoted, err := repo.CancelAndPromote(context.Background(), 12)
	require.NoError(t, err)
	require.Nil(t, promoted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAndPromote_AlreadyCancelled(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings")).
		WithArgs(10).
		WillReturnRows(bookingRows(10, 1, 2, "cancelled"))
	mock.ExpectRollback()

	_, err := repo.CancelAndPromote(context.Background(), 10)
	require.ErrorIs(t, err, ErrNotCancellable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCheckedIn(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("SET checked_in = TRUE")).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.MarkCheckedIn(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, applied)

	// Second scan matches no row.
	mock.ExpectExec(regexp.QuoteMeta("SET checked_in = TRUE")).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err = repo.MarkCheckedIn(context.Background(), 10)
	require.NoError(t, err)
	require.False(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionFromConfirmed(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings")).
		WithArgs(10, "no_show").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.TransitionFromConfirmed(context.Background(), 10, StatusNoShow))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings")).
		WithArgs(10, "completed").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TransitionFromConfirmed(context.Background(), 10, StatusCompleted)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// cancelled is never a valid target here
	err = repo.TransitionFromConfirmed(context.Background(), 10, StatusCancelled)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}
