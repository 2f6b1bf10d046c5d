package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cafepass/config"
	"cafepass/models"
	"cafepass/utils"
)

var (
	// ErrCafeNotFound is returned when the café does not exist or has no
	// pinned location. A café without coordinates is not claimable; treating
	// it the same as a missing café keeps NaN out of the distance math.
	ErrCafeNotFound = errors.New("cafe not found")
	// ErrAlreadyStamped is returned when the user already holds a stamp for
	// this café within the current day window.
	ErrAlreadyStamped = errors.New("stamp already claimed today")
)

// TooFarError rejects a claim outside the proximity threshold. It carries the
// computed distance so the client can show how far off the user is.
type TooFarError struct {
	DistanceMeters  float64
	ThresholdMeters float64
}

func (e *TooFarError) Error() string {
	return fmt.Sprintf("too far from cafe: %.0fm away, limit %.0fm", e.DistanceMeters, e.ThresholdMeters)
}

// Clock abstracts wall-clock time so the day-window boundary is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CafeStore supplies café records for proximity checks.
type CafeStore interface {
	GetCafe(ctx context.Context, id uint) (*models.Cafe, error)
}

// StampStore persists and queries stamps. InsertStamp must be atomic with
// respect to the (user, café, day) uniqueness: it reports inserted=false when
// a stamp for that day already exists instead of writing a duplicate.
type StampStore interface {
	InsertStamp(ctx context.Context, userID, cafeID uint, day, at time.Time) (bool, error)
	CountForUser(ctx context.Context, userID uint) (int64, error)
	DistinctCafesForUser(ctx context.Context, userID uint) (int64, error)
	ListForUser(ctx context.Context, userID uint) ([]StampEntry, error)
}

// StampEntry is one row of a user's stamp history, enriched with café metadata.
type StampEntry struct {
	ID          uint      `json:"id"`
	CafeID      uint      `json:"cafe_id"`
	CafeName    string    `json:"cafe_name"`
	CafeAddress string    `json:"cafe_address"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClaimResult reports a successful claim.
type ClaimResult struct {
	StampCount     int64   `json:"stamp_count"`
	DistanceMeters float64 `json:"distance_meters"`
}

// PassportSummary aggregates a user's collection.
type PassportSummary struct {
	TotalStamps   int64 `json:"total_stamps"`
	DistinctCafes int64 `json:"distinct_cafes"`
}

// StampService implements the passport stamp rules: geofence verification and
// the once-per-day claim limit.
type StampService struct {
	cafes           CafeStore
	stamps          StampStore
	clock           Clock
	thresholdMeters float64
	dayLoc          *time.Location
}

// NewStampService wires the service against the database using the loaded
// configuration for the proximity threshold and the day-boundary timezone.
func NewStampService(db *gorm.DB) *StampService {
	cfg := config.Get()
	return &StampService{
		cafes:           &gormCafeStore{db: db},
		stamps:          &gormStampStore{db: db},
		clock:           systemClock{},
		thresholdMeters: cfg.StampProximityMeters,
		dayLoc:          DayLocation(cfg.StampDayBoundaryTZ),
	}
}

// Claim verifies the user is within the proximity threshold of the café and
// records a stamp, at most one per (user, café, day). The duplicate check and
// the insert are a single conditional write backed by the unique index on
// stamps, so concurrent claims cannot both succeed.
func (s *StampService) Claim(ctx context.Context, userID, cafeID uint, lat, lng float64) (*ClaimResult, error) {
	cafe, err := s.cafes.GetCafe(ctx, cafeID)
	if err != nil {
		return nil, err
	}
	if !cafe.HasLocation() {
		return nil, ErrCafeNotFound
	}

	dist := utils.DistanceMeters(lat, lng, *cafe.Latitude, *cafe.Longitude)
	if !(dist <= s.thresholdMeters) { // also rejects NaN
		return nil, &TooFarError{DistanceMeters: dist, ThresholdMeters: s.thresholdMeters}
	}

	now := s.clock.Now().In(s.dayLoc)
	day := DayStart(now, s.dayLoc)

	inserted, err := s.stamps.InsertStamp(ctx, userID, cafeID, day, now)
	if err != nil {
		return nil, fmt.Errorf("insert stamp: %w", err)
	}
	if !inserted {
		return nil, ErrAlreadyStamped
	}

	count, err := s.stamps.CountForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count stamps: %w", err)
	}

	return &ClaimResult{StampCount: count, DistanceMeters: dist}, nil
}

// History returns the user's stamps joined with café name and address, newest
// first. A user with no stamps gets an empty slice, not an error.
func (s *StampService) History(ctx context.Context, userID uint) ([]StampEntry, error) {
	entries, err := s.stamps.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list stamps: %w", err)
	}
	if entries == nil {
		entries = []StampEntry{}
	}
	return entries, nil
}

// Passport returns aggregate collection numbers for the user.
func (s *StampService) Passport(ctx context.Context, userID uint) (*PassportSummary, error) {
	total, err := s.stamps.CountForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count stamps: %w", err)
	}
	distinct, err := s.stamps.DistinctCafesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count cafes: %w", err)
	}
	return &PassportSummary{TotalStamps: total, DistinctCafes: distinct}, nil
}

// DayStart returns midnight of t's day in loc. Every per-day table (stamps,
// café view counts) buckets through this so day boundaries never disagree.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayLocation resolves the configured day-boundary timezone; "Local" or an
// unknown zone falls back to the server location.
func DayLocation(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("unknown day boundary timezone %q, using local", name)
		}
		return time.Local
	}
	return loc
}
