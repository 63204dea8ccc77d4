package model

import "time"

// PostAttachment links media to a post. Posts live in their own service
// so the post ID is stored as an opaque reference
type PostAttachment struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	PostID      int64     `gorm:"not null;uniqueIndex:idx_post_position" json:"post_id"`
	MediaFileID string    `gorm:"size:36;not null;index" json:"media_file_id"`
	Position    int       `gorm:"uniqueIndex:idx_post_position" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}
