// Package model defines database models
package model

import "time"

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeGIF   MediaType = "gif"
	MediaTypeAudio MediaType = "audio"
)

type UsageType string

const (
	UsagePost    UsageType = "post"
	UsageAvatar  UsageType = "profile_avatar"
	UsageBanner  UsageType = "profile_banner"
	UsageMessage UsageType = "message"
)

type MediaFile struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          string    `gorm:"not null;index:idx_media_user_created,priority:1" json:"-"`
	MediaType       MediaType `gorm:"size:16;index" json:"media_type"`
	UsageType       UsageType `gorm:"size:32;index" json:"usage_type"`
	FileKey         string    `gorm:"not null" json:"file_key"` // Storage key, avoids file name conflicts
	OriginalName    string    `json:"original_name"`
	FileSize        int64     `json:"file_size"`
	MimeType        string    `gorm:"size:100" json:"mime_type"`
	Width           *int      `json:"width,omitempty"`
	Height          *int      `json:"height,omitempty"`
	Duration        *int      `json:"duration,omitempty"` // Whole seconds, videos only
	AltText         string    `gorm:"size:500" json:"alt_text,omitempty"`
	IsProcessed     bool      `json:"is_processed"`
	IsApproved      bool      `gorm:"default:true;index" json:"is_approved"`
	ProcessingError string    `json:"processing_error,omitempty"`
	CreatedAt       time.Time `gorm:"index:idx_media_user_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
