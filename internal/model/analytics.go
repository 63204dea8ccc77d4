package model

import (
	"math"
	"time"
)

type MediaAnalytics struct {
	MediaFileID     string    `gorm:"primaryKey;size:36" json:"-"`
	TotalViews      int64     `json:"total_views"`
	UniqueViews     int64     `json:"unique_views"`
	TotalLikes      int64     `json:"total_likes"`
	TotalShares     int64     `json:"total_shares"`
	TotalDownloads  int64     `json:"total_downloads"`
	AvgViewDuration float64   `json:"avg_view_duration"`
	BounceRate      float64   `json:"bounce_rate"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (MediaAnalytics) TableName() string {
	return "media_analytics"
}

// EngagementRate returns interactions per view as a percentage rounded
// to two decimals. No views means no engagement
func (a *MediaAnalytics) EngagementRate() float64 {
	if a.TotalViews == 0 {
		return 0
	}

	r := float64(a.TotalLikes+a.TotalShares+a.TotalDownloads) / float64(a.TotalViews) * 100
	return math.Round(r*100) / 100
}
