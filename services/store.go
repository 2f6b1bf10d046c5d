package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cafepass/models"
)

type gormCafeStore struct {
	db *gorm.DB
}

func (s *gormCafeStore) GetCafe(ctx context.Context, id uint) (*models.Cafe, error) {
	var cafe models.Cafe
	if err := s.db.WithContext(ctx).First(&cafe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCafeNotFound
		}
		return nil, fmt.Errorf("load cafe: %w", err)
	}
	return &cafe, nil
}

type gormStampStore struct {
	db *gorm.DB
}

// InsertStamp writes the stamp unless one already exists for the same
// (user, café, day). OnConflict DoNothing against the unique index keeps
// check-and-insert a single statement; RowsAffected tells the two apart.
func (s *gormStampStore) InsertStamp(ctx context.Context, userID, cafeID uint, day, at time.Time) (bool, error) {
	stamp := models.Stamp{
		UserID:    userID,
		CafeID:    cafeID,
		StampDate: day,
		CreatedAt: at,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "cafe_id"}, {Name: "stamp_date"}},
		DoNothing: true,
	}).Create(&stamp)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStampStore) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Stamp{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (s *gormStampStore) DistinctCafesForUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Stamp{}).
		Where("user_id = ?", userID).
		Distinct("cafe_id").
		Count(&n).Error
	return n, err
}

func (s *gormStampStore) ListForUser(ctx context.Context, userID uint) ([]StampEntry, error) {
	var entries []StampEntry
	err := s.db.WithContext(ctx).Table("stamps").
		Select("stamps.id, stamps.cafe_id, stamps.created_at, cafes.name AS cafe_name, cafes.address AS cafe_address").
		Joins("JOIN cafes ON cafes.id = stamps.cafe_id").
		Where("stamps.user_id = ?", userID).
		Order("stamps.created_at DESC").
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
