package service

import (
	"bytes"
	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/storage"
	"chirpnet/media-api/pkg/retry"
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"gorm.io/gorm"
)

var ErrNotImage = errors.New("media is not an image")

type Optimizer struct {
	DB    *gorm.DB
	Store storage.Storage
	Retry retry.Policy
}

func NewOptimizer(db *gorm.DB, store storage.Storage) *Optimizer {
	return &Optimizer{
		DB:    db,
		Store: store,
		Retry: retry.DefaultPolicy(),
	}
}

// Do re-encodes an image as quality 85 JPEG over its own storage key,
// correcting EXIF orientation and flattening transparency onto white.
// The stored file size and mime type are updated to match the new bytes
func (o *Optimizer) Do(ctx context.Context, media *model.MediaFile) (int64, error) {
	if media.MediaType != model.MediaTypeImage {
		return 0, ErrNotImage
	}

	var local string
	var cleanup func()

	err := o.Retry.Do(ctx, func() error {
		var ferr error
		local, cleanup, ferr = fetchToTemp(ctx, o.Store, media.FileKey, "optimize-src-*")
		return ferr
	})
	if err != nil {
		return 0, err
	}
	defer cleanup()

	img, err := imaging.Open(local, imaging.AutoOrientation(true))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image, %w", err)
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, flattenToWhite(img), imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return 0, fmt.Errorf("failed to encode optimized image, %w", err)
	}

	n := int64(buf.Len())

	err = o.Retry.Do(ctx, func() error {
		return o.Store.Put(ctx, media.FileKey, bytes.NewReader(buf.Bytes()), n, "image/jpeg")
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store optimized image, %w", err)
	}

	err = o.DB.
		Model(model.MediaFile{}).
		Where("id = ?", media.ID).
		Updates(map[string]any{
			"file_size": n,
			"mime_type": "image/jpeg",
		}).
		Error
	if err != nil {
		return 0, fmt.Errorf("failed to update media record, %w", err)
	}

	media.FileSize = n
	media.MimeType = "image/jpeg"

	return n, nil
}
