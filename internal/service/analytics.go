package service

import (
	"chirpnet/media-api/internal/model"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	InteractionLike     = "like"
	InteractionShare    = "share"
	InteractionDownload = "download"

	// How long a viewer stays remembered for unique view counting
	uniqueViewWindow = 24 * time.Hour
)

var ErrUnknownInteraction = errors.New("unknown interaction type")

// Analytics keeps the per-media engagement counters. All increments go
// through SQL expressions so concurrent writers can't lose updates
type Analytics struct {
	DB   *gorm.DB
	seen *ttlcache.Cache
}

func NewAnalytics(db *gorm.DB) *Analytics {
	seen := ttlcache.NewCache()
	seen.SetTTL(uniqueViewWindow)

	// A repeat view shouldn't keep the viewer remembered forever
	seen.SkipTTLExtensionOnHit(true)

	return &Analytics{DB: db, seen: seen}
}

// ViewerKey identifies a viewer for unique view counting: the user ID
// when logged in, a hash of the remote address otherwise
func ViewerKey(userID, remoteAddr string) string {
	if userID != "" {
		return "u:" + userID
	}

	sum := sha256.Sum256([]byte(remoteAddr))
	return "a:" + hex.EncodeToString(sum[:8])
}

// TrackView bumps the view counters for a media file. A viewer counts
// toward unique views at most once per window
func (a *Analytics) TrackView(mediaID, viewerKey string) error {
	updates := map[string]any{
		"total_views": gorm.Expr("total_views + ?", 1),
	}

	key := mediaID + "|" + viewerKey
	if _, err := a.seen.Get(key); errors.Is(err, ttlcache.ErrNotFound) {
		a.seen.Set(key, struct{}{})
		updates["unique_views"] = gorm.Expr("unique_views + ?", 1)
	}

	return a.bump(mediaID, updates)
}

// TrackInteraction records a like, share or download
func (a *Analytics) TrackInteraction(mediaID, kind string) error {
	var col string

	switch kind {
	case InteractionLike:
		col = "total_likes"
	case InteractionShare:
		col = "total_shares"
	case InteractionDownload:
		col = "total_downloads"
	default:
		return ErrUnknownInteraction
	}

	return a.bump(mediaID, map[string]any{col: gorm.Expr(col + " + 1")})
}

// OnLikeCreated mirrors a like made on a post into the media counters
func (a *Analytics) OnLikeCreated(mediaID string) error {
	return a.bump(mediaID, map[string]any{
		"total_likes": gorm.Expr("total_likes + ?", 1),
	})
}

// OnLikeDeleted takes a like back. Clamped at zero so replayed events
// can't drive the counter negative
func (a *Analytics) OnLikeDeleted(mediaID string) error {
	return a.bump(mediaID, map[string]any{
		"total_likes": gorm.Expr("CASE WHEN total_likes > 0 THEN total_likes - 1 ELSE 0 END"),
	})
}

// Stats returns the counters for a media file, zero-valued when nothing
// was tracked yet
func (a *Analytics) Stats(mediaID string) (*model.MediaAnalytics, error) {
	var row model.MediaAnalytics

	err := a.DB.
		Where("media_file_id = ?", mediaID).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.MediaAnalytics{MediaFileID: mediaID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics, %w", err)
	}

	return &row, nil
}

// Popular returns the highest scoring media uploaded within the last
// days, scored views + 2*likes + 3*shares. Media without any tracked
// event doesn't place
func (a *Analytics) Popular(limit, days int) ([]model.MediaFile, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	var files []model.MediaFile

	err := a.DB.
		Joins("JOIN media_analytics ON media_analytics.media_file_id = media_files.id").
		Where("media_files.created_at >= ?", cutoff).
		Order("media_analytics.total_views + media_analytics.total_likes * 2 + media_analytics.total_shares * 3 DESC").
		Limit(limit).
		Find(&files).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to load popular media, %w", err)
	}

	return files, nil
}

// Close stops the unique view cache's janitor goroutine
func (a *Analytics) Close() {
	a.seen.Close()
}

func (a *Analytics) bump(mediaID string, updates map[string]any) error {
	err := a.DB.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.MediaAnalytics{MediaFileID: mediaID}).
		Error
	if err != nil {
		return fmt.Errorf("failed to ensure analytics record, %w", err)
	}

	err = a.DB.
		Model(model.MediaAnalytics{}).
		Where("media_file_id = ?", mediaID).
		Updates(updates).
		Error
	if err != nil {
		return fmt.Errorf("failed to update analytics, %w", err)
	}

	return nil
}
