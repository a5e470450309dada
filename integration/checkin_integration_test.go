package integration_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gymcore/internal/booking"
	"gymcore/internal/checkin"
)

func TestCheckin_ExactlyOnce_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	trainerID := createTestUser(t, db, "trainer@test.com", "Trainer", "trainer")
	memberID := createTestUser(t, db, "member@test.com", "Member", "member")
	classID := createTestClass(t, db, trainerID, "Yoga")
	scheduleID := createTestSchedule(t, db, classID, trainerID, 10, time.Now().Add(20*time.Minute))

	bookingRepo := booking.NewRepository(db)
	svc := checkin.NewService(bookingRepo, "integration-secret", 5)
	ctx := context.Background()

	b, err := bookingRepo.Book(ctx, memberID, scheduleID)
	require.NoError(t, err)
	require.Equal(t, booking.StatusConfirmed, b.Status)

	token, err := svc.IssueToken(ctx, b.ID, memberID)
	require.NoError(t, err)

	// The same token scanned concurrently lands exactly one check-in.
	const scans = 5
	var wg sync.WaitGroup
	errs := make([]error, scans)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CheckIn(ctx, token)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, checkin.ErrAlreadyCheckedIn)
		}
	}
	require.Equal(t, 1, ok)

	var checkedIn bool
	require.NoError(t, db.Get(&checkedIn, "SELECT checked_in FROM bookings WHERE id = $1", b.ID))
	require.True(t, checkedIn)
}

func TestCheckin_CancelledBookingRejected_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	trainerID := createTestUser(t, db, "trainer@test.com", "Trainer", "trainer")
	memberID := createTestUser(t, db, "member@test.com", "Member", "member")
	classID := createTestClass(t, db, trainerID, "Yoga")
	scheduleID := createTestSchedule(t, db, classID, trainerID, 10, time.Now().Add(20*time.Minute))

	bookingRepo := booking.NewRepository(db)
	svc := checkin.NewService(bookingRepo, "integration-secret", 5)
	ctx := context.Background()

	b, err := bookingRepo.Book(ctx, memberID, scheduleID)
	require.NoError(t, err)

	token, err := svc.IssueToken(ctx, b.ID, memberID)
	require.NoError(t, err)

	_, err = bookingRepo.CancelAndPromote(ctx, b.ID)
	require.NoError(t, err)

	_, err = svc.CheckIn(ctx, token)
	require.ErrorIs(t, err, checkin.ErrBookingCancelled)
}
