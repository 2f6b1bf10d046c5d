package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepass/models"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type fakeCafeStore struct {
	cafes map[uint]*models.Cafe
}

func (s *fakeCafeStore) GetCafe(_ context.Context, id uint) (*models.Cafe, error) {
	cafe, ok := s.cafes[id]
	if !ok {
		return nil, ErrCafeNotFound
	}
	return cafe, nil
}

type stampKey struct {
	userID uint
	cafeID uint
	day    string
}

type fakeStampRow struct {
	userID uint
	entry  StampEntry
}

type fakeStampStore struct {
	stamps    map[stampKey]time.Time
	rows      []fakeStampRow
	insertErr error
	countErr  error
}

func newFakeStampStore() *fakeStampStore {
	return &fakeStampStore{stamps: map[stampKey]time.Time{}}
}

func (s *fakeStampStore) InsertStamp(_ context.Context, userID, cafeID uint, day, at time.Time) (bool, error) {
	if s.insertErr != nil {
		return false, s.insertErr
	}
	key := stampKey{userID: userID, cafeID: cafeID, day: day.Format("2006-01-02")}
	if _, exists := s.stamps[key]; exists {
		return false, nil
	}
	s.stamps[key] = at
	s.rows = append(s.rows, fakeStampRow{
		userID: userID,
		entry:  StampEntry{ID: uint(len(s.rows) + 1), CafeID: cafeID, CreatedAt: at},
	})
	return true, nil
}

func (s *fakeStampStore) CountForUser(_ context.Context, userID uint) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	for key := range s.stamps {
		if key.userID == userID {
			n++
		}
	}
	return n, nil
}

func (s *fakeStampStore) DistinctCafesForUser(_ context.Context, userID uint) (int64, error) {
	seen := map[uint]bool{}
	for key := range s.stamps {
		if key.userID == userID {
			seen[key.cafeID] = true
		}
	}
	return int64(len(seen)), nil
}

// ListForUser honors the store contract: entries come back newest first.
func (s *fakeStampStore) ListForUser(_ context.Context, userID uint) ([]StampEntry, error) {
	var entries []StampEntry
	for _, row := range s.rows {
		if row.userID == userID {
			entries = append(entries, row.entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func ptr(f float64) *float64 { return &f }

func newTestService(cafes *fakeCafeStore, stamps *fakeStampStore, now time.Time) *StampService {
	return &StampService{
		cafes:           cafes,
		stamps:          stamps,
		clock:           fixedClock{now: now},
		thresholdMeters: 100,
		dayLoc:          time.UTC,
	}
}

func testCafeStore() *fakeCafeStore {
	return &fakeCafeStore{cafes: map[uint]*models.Cafe{
		1: {ID: 1, Name: "Kopi Corner", Latitude: ptr(1.3000), Longitude: ptr(103.8000)},
		2: {ID: 2, Name: "Unpinned", Latitude: nil, Longitude: nil},
	}}
}

func TestClaimWithinThreshold(t *testing.T) {
	stamps := newFakeStampStore()
	svc := newTestService(testCafeStore(), stamps, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	// ~63m from the café, inside the 100m threshold
	result, err := svc.Claim(context.Background(), 7, 1, 1.30045, 103.80045)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.StampCount)
	assert.Greater(t, result.DistanceMeters, 50.0)
	assert.Less(t, result.DistanceMeters, 100.0)
}

func TestClaimTooFar(t *testing.T) {
	stamps := newFakeStampStore()
	svc := newTestService(testCafeStore(), stamps, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	// ~1.5km away
	_, err := svc.Claim(context.Background(), 7, 1, 1.3100, 103.8100)
	require.Error(t, err)

	var tooFar *TooFarError
	require.ErrorAs(t, err, &tooFar)
	assert.Greater(t, tooFar.DistanceMeters, 1000.0)
	assert.Equal(t, 100.0, tooFar.ThresholdMeters)
	assert.Empty(t, stamps.stamps, "rejected claim must not write a stamp")
}

func TestClaimExactlyAtThreshold(t *testing.T) {
	// A point almost exactly 100m due north of the café. Distances at or under
	// the threshold are accepted.
	stamps := newFakeStampStore()
	svc := newTestService(testCafeStore(), stamps, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	_, err := svc.Claim(context.Background(), 7, 1, 1.30089, 103.8000)
	require.NoError(t, err)
}

func TestClaimDuplicateSameDay(t *testing.T) {
	stamps := newFakeStampStore()
	svc := newTestService(testCafeStore(), stamps, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	_, err := svc.Claim(context.Background(), 7, 1, 1.30045, 103.80045)
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), 7, 1, 1.30045, 103.80045)
	assert.ErrorIs(t, err, ErrAlreadyStamped)
	assert.Len(t, stamps.stamps, 1, "duplicate claim must not add a stamp")
}

func TestClaimNextDayAllowed(t *testing.T) {
	stamps := newFakeStampStore()
	cafes := testCafeStore()

	svc := newTestService(cafes, stamps, time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC))
	_, err := svc.Claim(context.Background(), 7, 1, 1.30045, 103.80045)
	require.NoError(t, err)

	// Two minutes later it is a new day, so the same café is claimable again.
	svc = newTestService(cafes, stamps, time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC))
	result, err := svc.Claim(context.Background(), 7, 1, 1.30045, 103.80045)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.StampCount)
}

func TestClaimDayBoundaryTimezone(t *testing.T) {
	// 2026-03-14T23:30Z is already 2026-03-15 in UTC+8. The day window follows
	// the configured zone, not UTC.
	loc := time.FixedZone("UTC+8", 8*3600)
	stamps := newFakeStampStore()
	svc := newTestService(testCafeStore(), stamps, time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC))
	svc.dayLoc = loc

	_, err := svc.Claim(context.Background(), 7, 1, 1.30045, 103.80045)
	require.NoError(t, err)

	for key := range stamps.stamps {
		assert.Equal(t, "2026-03-15", key.day)
	}
}

func TestClaimSecondCafeSameDay(t *testing.T) {
	stamps := newFakeStampStore()
	cafes := testCafeStore()
	cafes.cafes[3] = &models.Cafe{ID: 3, Name: "Roast Lab", Latitude: ptr(1.30050), Longitude: ptr(103.80050)}
	svc := newTestService(cafes, stamps, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	_, err := svc.Claim(context.Background(), 7, 1, 1.30045, 103.80045)
	require.NoError(t, err)

	result, err := svc.Claim(context.Background(), 7, 3, 1.30045, 103.80045)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.StampCount)
}

func TestClaimUnknownCafe(t *testing.T) {
	svc := newTestService(testCafeStore(), newFakeStampStore(), time.Now())

	_, err := svc.Claim(context.Background(), 7, 99, 1.30045, 103.80045)
	assert.ErrorIs(t, err, ErrCafeNotFound)
}

func TestClaimCafeWithoutLocation(t *testing.T) {
	svc := newTestService(testCafeStore(), newFakeStampStore(), time.Now())

	_, err := svc.Claim(context.Background(), 7, 2, 1.30045, 103.80045)
	assert.ErrorIs(t, err, ErrCafeNotFound)
}

func TestClaimNaNCoordinatesRejected(t *testing.T) {
	stamps := newFakeStampStore()
	svc := newTestService(testCafeStore(), stamps, time.Now())

	_, err := svc.Claim(context.Background(), 7, 1, math.NaN(), 103.80045)
	var tooFar *TooFarError
	require.ErrorAs(t, err, &tooFar)
	assert.Empty(t, stamps.stamps)
}

func TestClaimInsertFailure(t *testing.T) {
	stamps := newFakeStampStore()
	stamps.insertErr = errors.New("connection reset")
	svc := newTestService(testCafeStore(), stamps, time.Now())

	_, err := svc.Claim(context.Background(), 7, 1, 1.30045, 103.80045)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyStamped)
	assert.ErrorContains(t, err, "insert stamp")
}

func TestHistoryNewestFirst(t *testing.T) {
	stamps := newFakeStampStore()
	cafes := testCafeStore()
	cafes.cafes[3] = &models.Cafe{ID: 3, Name: "Roast Lab", Latitude: ptr(1.30050), Longitude: ptr(103.80050)}

	// Three claims at distinct timestamps, deliberately not in claim-id order
	// per café so ordering by claim time is observable.
	claimTimes := []struct {
		at     time.Time
		cafeID uint
	}{
		{time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), 1},
		{time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC), 3},
		{time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC), 1},
	}
	for _, c := range claimTimes {
		svc := newTestService(cafes, stamps, c.at)
		_, err := svc.Claim(context.Background(), 7, c.cafeID, 1.30045, 103.80045)
		require.NoError(t, err)
	}

	svc := newTestService(cafes, stamps, time.Now())
	entries, err := svc.History(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, uint(1), entries[0].CafeID)
	assert.Equal(t, uint(3), entries[1].CafeID)
	assert.Equal(t, uint(1), entries[2].CafeID)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].CreatedAt.After(entries[i].CreatedAt),
			"entry %d must be newer than entry %d", i-1, i)
	}
}

func TestHistoryEmpty(t *testing.T) {
	svc := newTestService(testCafeStore(), newFakeStampStore(), time.Now())

	entries, err := svc.History(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestPassportCountsDistinctCafes(t *testing.T) {
	stamps := newFakeStampStore()
	cafes := testCafeStore()
	svc := newTestService(cafes, stamps, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))

	_, err := svc.Claim(context.Background(), 7, 1, 1.30045, 103.80045)
	require.NoError(t, err)

	svc = newTestService(cafes, stamps, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC))
	_, err = svc.Claim(context.Background(), 7, 1, 1.30045, 103.80045)
	require.NoError(t, err)

	summary, err := svc.Passport(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalStamps)
	assert.Equal(t, int64(1), summary.DistinctCafes)
}

func TestDayLocationFallback(t *testing.T) {
	assert.Equal(t, time.Local, DayLocation(""))
	assert.Equal(t, time.Local, DayLocation("Local"))
	assert.Equal(t, time.Local, DayLocation("Not/AZone"))

	loc := DayLocation("UTC")
	assert.Equal(t, time.UTC, loc)
}

func TestDayStart(t *testing.T) {
	utc8 := time.FixedZone("UTC+8", 8*3600)

	// Late UTC evening is already the next day in UTC+8.
	at := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	day := DayStart(at, utc8)
	assert.Equal(t, 2026, day.Year())
	assert.Equal(t, time.March, day.Month())
	assert.Equal(t, 15, day.Day())
	assert.Equal(t, 0, day.Hour())

	// Truncating an already-truncated time is a no-op.
	assert.True(t, DayStart(day, utc8).Equal(day))
}
