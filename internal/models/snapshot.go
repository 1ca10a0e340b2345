package models

import "time"

// Snapshot records a point-in-time backup of the local library taken before a sync.
type Snapshot struct {
	ID            string
	Trigger       string
	Provider      string
	Location      string
	CategoryCount int
	VideoCount    int
	CreatedAt     time.Time
}

// SnapshotDocument is the serialised body of a snapshot.
type SnapshotDocument struct {
	ID          string             `json:"id"`
	Trigger     string             `json:"trigger"`
	CreatedAt   time.Time          `json:"created_at"`
	Categories  []SnapshotCategory `json:"categories"`
	Videos      []SnapshotVideo    `json:"videos"`
	Assignments []VideoAssignment  `json:"assignments"`
	Playlists   []SnapshotPlaylist `json:"playlists"`
}

// SnapshotCategory is a [Category] as stored in a snapshot.
type SnapshotCategory struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	IsProtected        bool    `json:"is_protected"`
	ExternalPlaylistID *string `json:"external_playlist_id,omitempty"`
}

// SnapshotVideo is a [Video] as stored in a snapshot.
type SnapshotVideo struct {
	ID              string `json:"id"`
	ExternalVideoID string `json:"external_video_id"`
	Title           string `json:"title"`
}

// SnapshotPlaylist is a [Playlist] as stored in a snapshot.
type SnapshotPlaylist struct {
	ID                  string     `json:"id"`
	ExternalPlaylistID  string     `json:"external_playlist_id"`
	Name                string     `json:"name"`
	DeletedFromRemoteAt *time.Time `json:"deleted_from_remote_at,omitempty"`
}
