package catalog

import (
	"path"
	"time"

	"github.com/google/uuid"
)

const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// idNamespace scopes the name-based UUIDs derived from listing paths.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("swiperflix:openlist"))

type Video struct {
	ID          string     `json:"id" gorm:"primaryKey;column:id;size:36"`
	SourcePath  string     `json:"source_path" gorm:"column:source_path;uniqueIndex;not null"`
	Title       string     `json:"title" gorm:"column:title"`
	URL         string     `json:"url" gorm:"column:url;not null"`
	Cover       *string    `json:"cover,omitempty" gorm:"column:cover"`
	Duration    *int       `json:"duration,omitempty" gorm:"column:duration"`
	Orientation *string    `json:"orientation,omitempty" gorm:"column:orientation"`
	PickCount   int64      `json:"pick_count" gorm:"column:pick_count;not null;default:0;index"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty" gorm:"column:modified_at"`
	// PickedAt is when the video was last served in fair order.
	PickedAt  *time.Time `json:"picked_at,omitempty" gorm:"column:picked_at;index"`
	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"column:updated_at;not null"`
}

func (Video) TableName() string {
	return "videos"
}

// NormalizePath returns the canonical, slash-rooted form of a listing path.
func NormalizePath(p string) string {
	return path.Clean("/" + p)
}

// DeriveID returns the stable record id for a listing path. The same file
// always maps to the same id, so re-ingesting it updates instead of duplicating.
func DeriveID(sourcePath string) string {
	return uuid.NewSHA1(idNamespace, []byte(NormalizePath(sourcePath))).String()
}

// RecentKey positions a scan ordered by (created_at DESC, id DESC).
type RecentKey struct {
	CreatedAt time.Time
	ID        string
}

// ExposureKey positions a scan ordered by (pick_count ASC, id ASC).
type ExposureKey struct {
	PickCount int64
	ID        string
}

type UpsertResult int

const (
	UpsertUnchanged UpsertResult = iota
	UpsertCreated
	UpsertUpdated
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertCreated:
		return "created"
	case UpsertUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}
