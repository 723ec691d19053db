package reactions

import (
	"context"
	"errors"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Event{})
}

// Insert writes ev unless the video is unknown or a row with the same dedup
// tuple already exists. The existence check and the insert share one
// transaction. The unique dedup index is the only duplicate check, and its
// violation is reported as created=false.
func (r *Repository) Insert(ctx context.Context, ev *Event) (created bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&catalog.Video{}).Where("id = ?", ev.VideoID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return catalog.ErrNotFound
		}

		result := tx.Create(ev)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected == 1
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *Repository) Count(ctx context.Context, videoID, eventType string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Event{}).
		Where("video_id = ? AND type = ?", videoID, eventType).
		Count(&n).Error
	return n, err
}

func (r *Repository) ListByVideo(ctx context.Context, videoID string) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	return events, err
}
