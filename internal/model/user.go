package model

import "time"

// User is the local mirror of an account managed by the auth service.
// Only the columns needed for ownership checks and profile media live here
type User struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"uniqueIndex;not null" json:"username"`
	IsAdmin       bool      `json:"-"`
	AvatarMediaID *string   `gorm:"size:36" json:"avatar_media_id,omitempty"`
	BannerMediaID *string   `gorm:"size:36" json:"banner_media_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
