package model

import "time"

type ThumbnailSize string

const (
	ThumbSmall  ThumbnailSize = "small"
	ThumbMedium ThumbnailSize = "medium"
	ThumbLarge  ThumbnailSize = "large"
)

// ThumbnailBounds maps each size to its square bounding box in pixels.
// Generated thumbnails fit inside the box, they're never upscaled or cropped.
var ThumbnailBounds = map[ThumbnailSize]int{
	ThumbSmall:  150,
	ThumbMedium: 400,
	ThumbLarge:  800,
}

type MediaThumbnail struct {
	ID          uint          `gorm:"primaryKey;autoIncrement" json:"-"`
	MediaFileID string        `gorm:"size:36;not null;uniqueIndex:idx_thumb_media_size" json:"-"`
	Size        ThumbnailSize `gorm:"size:16;uniqueIndex:idx_thumb_media_size" json:"size"`
	FileKey     string        `gorm:"not null" json:"file_key"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	FileSize    int64         `json:"file_size"`
	CreatedAt   time.Time     `json:"created_at"`
}
