package service

import (
	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/storage"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrMediaInUse = errors.New("media is still referenced and can't be deleted")

type Remover struct {
	DB    *gorm.DB
	Store storage.Storage
}

func NewRemover(db *gorm.DB, store storage.Storage) *Remover {
	return &Remover{DB: db, Store: store}
}

// InUse reports whether anything still references the media: a post
// attachment or somebody's avatar or banner
func (r *Remover) InUse(mediaID string) (bool, error) {
	var n int64

	err := r.DB.
		Model(model.PostAttachment{}).
		Where("media_file_id = ?", mediaID).
		Count(&n).
		Error
	if err != nil {
		return false, fmt.Errorf("failed to count attachments, %w", err)
	}

	if n > 0 {
		return true, nil
	}

	err = r.DB.
		Model(model.User{}).
		Where("avatar_media_id = ? OR banner_media_id = ?", mediaID, mediaID).
		Count(&n).
		Error
	if err != nil {
		return false, fmt.Errorf("failed to count profile references, %w", err)
	}

	return n > 0, nil
}

// Delete removes a media file with everything hanging off it: the blob,
// the thumbnails, the queue rows and the analytics row. Callers make
// sure nothing references the media anymore. Blob deletion failures are
// logged but don't keep the rows around, otherwise media whose objects
// already vanished could never be deleted
func (r *Remover) Delete(ctx context.Context, media *model.MediaFile) error {
	var thumbs []model.MediaThumbnail

	err := r.DB.
		Where("media_file_id = ?", media.ID).
		Find(&thumbs).
		Error
	if err != nil {
		return fmt.Errorf("failed to load thumbnails, %w", err)
	}

	keys := make([]string, 0, len(thumbs)+1)
	keys = append(keys, media.FileKey)
	for _, t := range thumbs {
		keys = append(keys, t.FileKey)
	}

	if err := r.Store.Delete(ctx, keys...); err != nil {
		zap.L().Error("Failed to delete media blobs", zap.String("media_id", media.ID), zap.Error(err))
	}

	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_file_id = ?", media.ID).Delete(model.MediaThumbnail{}).Error; err != nil {
			return fmt.Errorf("failed to delete thumbnail records, %w", err)
		}

		if err := tx.Where("media_file_id = ?", media.ID).Delete(model.ProcessingTask{}).Error; err != nil {
			return fmt.Errorf("failed to delete queue records, %w", err)
		}

		if err := tx.Where("media_file_id = ?", media.ID).Delete(model.MediaAnalytics{}).Error; err != nil {
			return fmt.Errorf("failed to delete analytics record, %w", err)
		}

		if err := tx.Where("id = ?", media.ID).Delete(model.MediaFile{}).Error; err != nil {
			return fmt.Errorf("failed to delete media record, %w", err)
		}

		return nil
	})
}
