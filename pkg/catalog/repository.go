package catalog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("video not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Video{})
}

// Transaction runs fn against a repository bound to a single transaction.
// fn must only use the repository it is given.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Get(ctx context.Context, id string) (*Video, error) {
	var v Video
	result := r.db.WithContext(ctx).First(&v, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &v, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Video{}).Count(&n).Error
	return n, err
}

// Upsert creates the record if its id is new, otherwise updates the mutable
// listing fields that differ. pick_count, id and created_at are never written
// on the update path.
func (r *Repository) Upsert(ctx context.Context, v Video) (UpsertResult, error) {
	if v.ID == "" {
		v.ID = DeriveID(v.SourcePath)
	}
	v.PickCount = 0
	v.PickedAt = nil
	if v.ModifiedAt != nil {
		m := storedTime(*v.ModifiedAt)
		v.ModifiedAt = &m
	}
	if !v.CreatedAt.IsZero() {
		v.CreatedAt = storedTime(v.CreatedAt)
	}

	outcome := UpsertUnchanged
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := v
		created := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&row)
		if created.Error != nil {
			return created.Error
		}
		if created.RowsAffected == 1 {
			outcome = UpsertCreated
			return nil
		}

		var current Video
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", v.ID).Error; err != nil {
			return err
		}

		changes := mutableChanges(current, v)
		if len(changes) == 0 {
			return nil
		}
		changes["updated_at"] = tx.NowFunc()
		if err := tx.Model(&Video{}).Where("id = ?", v.ID).Updates(changes).Error; err != nil {
			return err
		}
		outcome = UpsertUpdated
		return nil
	})
	if err != nil {
		return UpsertUnchanged, err
	}
	return outcome, nil
}

func mutableChanges(current, next Video) map[string]interface{} {
	changes := map[string]interface{}{}
	if current.Title != next.Title {
		changes["title"] = next.Title
	}
	if current.URL != next.URL {
		changes["url"] = next.URL
	}
	if current.SourcePath != next.SourcePath {
		changes["source_path"] = next.SourcePath
	}
	// The listing owns the cover, so a thumbnail that disappears is cleared.
	if !equalString(current.Cover, next.Cover) {
		if next.Cover == nil {
			changes["cover"] = gorm.Expr("NULL")
		} else {
			changes["cover"] = *next.Cover
		}
	}
	// Duration and orientation only come from seed files.
	if next.Duration != nil && (current.Duration == nil || *current.Duration != *next.Duration) {
		changes["duration"] = *next.Duration
	}
	if next.Orientation != nil && !equalString(current.Orientation, next.Orientation) {
		changes["orientation"] = *next.Orientation
	}
	if next.ModifiedAt != nil && (current.ModifiedAt == nil || !current.ModifiedAt.Equal(*next.ModifiedAt)) {
		changes["modified_at"] = next.ModifiedAt.UTC()
	}
	return changes
}

// storedTime matches the microsecond precision of the store's timestamp
// columns so values read back compare equal to what was written.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ListRecent returns up to limit records strictly after key in
// (created_at DESC, id DESC) order. A nil key starts from the newest record.
func (r *Repository) ListRecent(ctx context.Context, after *RecentKey, limit int) ([]Video, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if after != nil {
		t := after.CreatedAt.UTC()
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", t, t, after.ID)
	}
	var videos []Video
	if err := query.Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// ListByExposure returns up to limit records strictly after key in
// (pick_count ASC, id ASC) order.
func (r *Repository) ListByExposure(ctx context.Context, after *ExposureKey, limit int) ([]Video, error) {
	query := r.db.WithContext(ctx).Order("pick_count ASC").Order("id ASC").Limit(limit)
	if after != nil {
		query = query.Where("pick_count > ? OR (pick_count = ? AND id > ?)", after.PickCount, after.PickCount, after.ID)
	}
	var videos []Video
	if err := query.Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// notPickedSince restricts query to videos not served in fair order since
// started. A nil started leaves the query unrestricted.
func notPickedSince(query *gorm.DB, started *time.Time) *gorm.DB {
	if started == nil {
		return query
	}
	return query.Where("(picked_at IS NULL OR picked_at < ?)", storedTime(*started))
}

// PickCountAt returns the pick_count found at position offset of the
// ascending pick_count ordering of the videos not picked since started.
// ok is false when fewer rows exist.
func (r *Repository) PickCountAt(ctx context.Context, offset int, started *time.Time) (count int64, ok bool, err error) {
	var counts []int64
	query := r.db.WithContext(ctx).Model(&Video{})
	err = notPickedSince(query, started).
		Order("pick_count ASC").
		Offset(offset).
		Limit(1).
		Pluck("pick_count", &counts).Error
	if err != nil || len(counts) == 0 {
		return 0, false, err
	}
	return counts[0], true, nil
}

// LockCandidates locks and returns the videos not picked since started with
// pick_count <= ceiling, or regardless of count when ceiling is nil, ordered
// by (pick_count, id).
func (r *Repository) LockCandidates(ctx context.Context, ceiling *int64, started *time.Time) ([]Video, error) {
	query := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("pick_count ASC").
		Order("id ASC")
	if ceiling != nil {
		query = query.Where("pick_count <= ?", *ceiling)
	}
	var videos []Video
	if err := notPickedSince(query, started).Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// CountNotPickedSince counts the videos not served in fair order since started.
func (r *Repository) CountNotPickedSince(ctx context.Context, started time.Time) (int64, error) {
	var n int64
	err := notPickedSince(r.db.WithContext(ctx).Model(&Video{}), &started).Count(&n).Error
	return n, err
}

// IncrementPickCounts adds one exposure to each id and stamps picked_at in a
// single statement.
func (r *Repository) IncrementPickCounts(ctx context.Context, ids []string, pickedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&Video{}).
		Where("id IN ?", ids).
		UpdateColumns(map[string]interface{}{
			"pick_count": gorm.Expr("pick_count + 1"),
			"picked_at":  storedTime(pickedAt),
		})
	return result.RowsAffected, result.Error
}

// Now returns the store's clock.
func (r *Repository) Now() time.Time {
	return storedTime(r.db.NowFunc())
}
