package reactions

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TypeLike        = "like"
	TypeDislike     = "dislike"
	TypeImpression  = "impression"
	TypeNotPlayable = "not-playable"
)

const (
	SourceScroll = "scroll"
	SourceButton = "button"
	SourceSwipe  = "swipe"
)

// Event is one row of the reaction ledger. DedupKey is set for the types that
// may be recorded once per session; the unique index on (video_id, dedup_key)
// is what actually enforces that. Impressions leave it NULL.
type Event struct {
	ID        string         `json:"id" gorm:"primaryKey;column:id;size:36"`
	VideoID   string         `json:"video_id" gorm:"column:video_id;size:36;not null;index;uniqueIndex:idx_reaction_dedup,priority:1"`
	SessionID string         `json:"session_id" gorm:"column:session_id;not null;default:''"`
	Type      string         `json:"type" gorm:"column:type;size:16;not null"`
	DedupKey  *string        `json:"-" gorm:"column:dedup_key;uniqueIndex:idx_reaction_dedup,priority:2"`
	Payload   datatypes.JSON `json:"payload,omitempty" gorm:"column:payload"`
	CreatedAt time.Time      `json:"created_at" gorm:"column:created_at;not null"`
}

func (Event) TableName() string {
	return "reaction_events"
}

// Deduplicated reports whether at most one event of this type is kept per
// (video, session).
func Deduplicated(eventType string) bool {
	switch eventType {
	case TypeLike, TypeDislike, TypeNotPlayable:
		return true
	default:
		return false
	}
}

func dedupKey(eventType, sessionID string) *string {
	if !Deduplicated(eventType) {
		return nil
	}
	key := eventType + "|" + sessionID
	return &key
}
