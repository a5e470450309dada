package schedule

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

func scheduleRow(id int, start, end time.Time, capacity, booked int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "class_id", "trainer_id", "start_time", "end_time",
		"capacity", "booked_count", "status", "created_at", "updated_at",
	}).AddRow(id, 1, 7, start, end, capacity, booked, "scheduled", time.Now(), time.Now())
}

func TestCreateSchedule_TakesAdvisoryLock(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(7, 0, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO schedules")).
		WithArgs(1, 7, start, end, 20).
		WillReturnRows(scheduleRow(5, start, end, 20, 0))
	mock.ExpectCommit()

	s, err := repo.CreateSchedule(context.Background(), 1, 7, start, end, 20)
	require.NoError(t, err)
	require.Equal(t, 5, s.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSchedule_TrainerOverlap(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(7, 0, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.CreateSchedule(context.Background(), 1, 7, start, end, 20)
	require.ErrorIs(t, err, ErrTrainerOverlap)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSchedule_ExcludesItselfFromOverlapCheck(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(7, 5, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT booked_count")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"booked_count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE schedules")).
		WithArgs(5, 7, start, end, 25).
		WillReturnRows(scheduleRow(5, start, end, 25, 3))
	mock.ExpectCommit()

	s, err := repo.UpdateSchedule(context.Background(), 5, 7, start, end, 25)
	require.NoError(t, err)
	require.Equal(t, 25, s.Capacity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSchedule_CapacityBelowBooked(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(7, 5, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT booked_count")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"booked_count"}).AddRow(8))
	mock.ExpectRollback()

	// 8 seats are taken, shrinking to 5 would strand confirmed bookings.
	_, err := repo.UpdateSchedule(context.Background(), 5, 7, start, end, 5)
	require.ErrorIs(t, err, ErrCapacityBelowBooked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSchedule(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'cancelled'")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CancelSchedule(context.Background(), 5))

	// Cancelling twice matches no row.
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'cancelled'")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CancelSchedule(context.Background(), 5)
	require.ErrorIs(t, err, ErrScheduleAlreadyCancelled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSchedulesByClass_ComputesAvailability(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "class_id", "trainer_id", "start_time", "end_time",
		"capacity", "booked_count", "status", "created_at", "updated_at", "class_name",
	}).
		AddRow(1, 1, 7, start, start.Add(time.Hour), 20, 5, "scheduled", time.Now(), time.Now(), "Spin").
		AddRow(2, 1, 7, start.Add(2*time.Hour), start.Add(3*time.Hour), 10, 10, "scheduled", time.Now(), time.Now(), "Spin")

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules s")).
		WithArgs(1).
		WillReturnRows(rows)

	schedules, err := repo.ListSchedulesByClass(context.Background(), 1, true)
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	require.Equal(t, 15, schedules[0].Available)
	require.False(t, schedules[0].IsFull)
	require.Equal(t, 0, schedules[1].Available)
	require.True(t, schedules[1].IsFull)
	require.NoError(t, mock.ExpectationsWereMet())
}
