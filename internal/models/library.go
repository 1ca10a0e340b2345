package models

import (
	"fmt"
	"time"
)

// Category is a locally computed grouping of videos that becomes one remote playlist.
//
// ExternalPlaylistID is a durable, cross-job anchor: nil means not yet created remotely.
type Category struct {
	ID                 string
	Name               string
	IsProtected        bool
	ExternalPlaylistID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate checks required fields.
func (c *Category) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("category id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("category name is required")
	}
	return nil
}

// Provisioned reports whether the category already has a remote playlist.
func (c *Category) Provisioned() bool {
	return c.ExternalPlaylistID != nil && *c.ExternalPlaylistID != ""
}

// Video is a library video.
type Video struct {
	ID              string
	ExternalVideoID string
	Title           string
	CreatedAt       time.Time
}

// Validate checks required fields.
func (v *Video) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("video id is required")
	}
	if v.ExternalVideoID == "" {
		return fmt.Errorf("external video id is required")
	}
	return nil
}

// VideoAssignment places a video in a category.
type VideoAssignment struct {
	CategoryID string `json:"category_id"`
	VideoID    string `json:"video_id"`
	Position   int    `json:"position"`
}

// Playlist is a pre-existing remote playlist superseded by the new categories.
//
// DeletedFromRemoteAt is a durable anchor: nil means the playlist still needs deleting.
type Playlist struct {
	ID                  string
	ExternalPlaylistID  string
	Name                string
	DeletedFromRemoteAt *time.Time
	CreatedAt           time.Time
}

// Validate checks required fields.
func (p *Playlist) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("playlist id is required")
	}
	if p.ExternalPlaylistID == "" {
		return fmt.Errorf("external playlist id is required")
	}
	return nil
}
