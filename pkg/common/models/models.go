package models

import "time"

// Playlist

type VideoItem struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Cover       *string `json:"cover,omitempty"`
	Title       string  `json:"title,omitempty"`
	Duration    *int    `json:"duration,omitempty"`
	Orientation *string `json:"orientation,omitempty"`
}

type PlaylistResponse struct {
	Items      []VideoItem `json:"items"`
	NextCursor *string     `json:"nextCursor"`
}

// Exposure report

type ExposureItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	SourcePath string    `json:"sourcePath"`
	PickCount  int64     `json:"pickCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ExposureResponse struct {
	Items      []ExposureItem `json:"items"`
	NextCursor *string        `json:"nextCursor"`
}

// Reactions

type ReactionRequest struct {
	Source    string     `json:"source,omitempty"` // scroll, button, swipe
	Timestamp *time.Time `json:"timestamp,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
}

type ImpressionRequest struct {
	WatchedSeconds *float64 `json:"watchedSeconds"`
	Completed      *bool    `json:"completed"`
	SessionID      string   `json:"sessionId,omitempty"`
}

type NotPlayableRequest struct {
	Reason    string     `json:"reason"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
}

type ReactionResponse struct {
	OK      bool `json:"ok"`
	Created bool `json:"created"`
}

// Sync

type SyncRequest struct {
	Dir string `json:"dir,omitempty"`
}

type SyncResponse struct {
	Dir     string `json:"dir"`
	Fetched int    `json:"fetched"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// Events

type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

const (
	EventReactionRecorded = "reaction.recorded"
	EventCatalogSynced    = "catalog.synced"
)
