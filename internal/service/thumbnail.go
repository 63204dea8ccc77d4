package service

import (
	"bytes"
	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/storage"
	"chirpnet/media-api/pkg/retry"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os/exec"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"gorm.io/gorm"

	// Sniffed uploads include webp, the stdlib can't decode it
	_ "golang.org/x/image/webp"
)

// Thumbnails are always JPEG, matching the {media_id}_{size}.jpg key scheme
const jpegQuality = 85

var thumbnailOrder = []model.ThumbnailSize{model.ThumbSmall, model.ThumbMedium, model.ThumbLarge}

type Thumbnailer struct {
	DB    *gorm.DB
	Store storage.Storage
	Retry retry.Policy
}

func NewThumbnailer(db *gorm.DB, store storage.Storage) *Thumbnailer {
	return &Thumbnailer{
		DB:    db,
		Store: store,
		Retry: retry.DefaultPolicy(),
	}
}

// Generate renders and stores the full thumbnail set for a media file.
// Images are decoded directly, videos contribute a frame grabbed at the
// one second mark. Individual sizes may fail without sinking the rest,
// only a fully empty result is an error. Media types without previews
// (gif, audio) produce an empty set and no error
func (t *Thumbnailer) Generate(ctx context.Context, media *model.MediaFile) ([]model.MediaThumbnail, error) {
	if media.MediaType != model.MediaTypeImage && media.MediaType != model.MediaTypeVideo {
		return nil, nil
	}

	local, cleanup, err := t.fetchSource(ctx, media.FileKey)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var src image.Image
	if media.MediaType == model.MediaTypeVideo {
		src, err = extractFrame(ctx, local)
	} else {
		src, err = imaging.Open(local, imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode thumbnail source, %w", err)
	}

	created := make([]model.MediaThumbnail, 0, len(thumbnailOrder))

	for _, size := range thumbnailOrder {
		row, err := t.makeOne(ctx, media.ID, src, size)
		if err != nil {
			zap.L().Error("Failed to generate thumbnail",
				zap.String("media_id", media.ID),
				zap.String("size", string(size)),
				zap.Error(err))
			continue
		}

		created = append(created, *row)
	}

	if len(created) == 0 {
		return nil, errors.New("no thumbnails produced")
	}

	return created, nil
}

// Regenerate throws the stored set away and rebuilds every size from
// the original bytes
func (t *Thumbnailer) Regenerate(ctx context.Context, media *model.MediaFile) (int, error) {
	var old []model.MediaThumbnail

	err := t.DB.Where("media_file_id = ?", media.ID).Find(&old).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load existing thumbnails, %w", err)
	}

	if len(old) > 0 {
		keys := make([]string, len(old))
		for i, th := range old {
			keys[i] = th.FileKey
		}

		if err := t.Store.Delete(ctx, keys...); err != nil {
			zap.L().Error("Failed to delete old thumbnail blobs", zap.Error(err))
		}

		err = t.DB.Where("media_file_id = ?", media.ID).Delete(model.MediaThumbnail{}).Error
		if err != nil {
			return 0, fmt.Errorf("failed to delete old thumbnail records, %w", err)
		}
	}

	created, err := t.Generate(ctx, media)
	if err != nil {
		return 0, err
	}

	return len(created), nil
}

func (t *Thumbnailer) makeOne(ctx context.Context, mediaID string, src image.Image, size model.ThumbnailSize) (*model.MediaThumbnail, error) {
	box := model.ThumbnailBounds[size]

	// Fit keeps the aspect ratio and never upscales
	thumb := imaging.Fit(src, box, box, imaging.Lanczos)

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, flattenToWhite(thumb), imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail, %w", err)
	}

	key := thumbKey(mediaID, size)
	n := int64(buf.Len())

	err := t.Retry.Do(ctx, func() error {
		return t.Store.Put(ctx, key, bytes.NewReader(buf.Bytes()), n, "image/jpeg")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store thumbnail, %w", err)
	}

	row := &model.MediaThumbnail{
		MediaFileID: mediaID,
		Size:        size,
		FileKey:     key,
		Width:       thumb.Bounds().Dx(),
		Height:      thumb.Bounds().Dy(),
		FileSize:    n,
	}

	if err := t.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to save thumbnail record, %w", err)
	}

	return row, nil
}

func (t *Thumbnailer) fetchSource(ctx context.Context, key string) (p string, cleanup func(), err error) {
	err = t.Retry.Do(ctx, func() error {
		var ferr error
		p, cleanup, ferr = fetchToTemp(ctx, t.Store, key, "media-src-*")
		return ferr
	})

	return p, cleanup, err
}

func thumbKey(mediaID string, size model.ThumbnailSize) string {
	return fmt.Sprintf("media/thumbnails/%s_%s.jpg", mediaID, size)
}

// extractFrame grabs a single frame one second into a video and decodes
// it for the thumbnail pipeline
func extractFrame(ctx context.Context, p string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	zap.L().Debug("Extracting video frame for thumbnails", zap.String("path", p))

	cmd := exec.CommandContext(ctx, "ffmpeg", "-loglevel", "error", "-ss", "1", "-i", p, "-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-")

	var stdOut, stdErr bytes.Buffer
	cmd.Stdout = &stdOut
	cmd.Stderr = &stdErr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed, %w (%s)", err, stdErr.String())
	}

	img, err := imaging.Decode(bytes.NewReader(stdOut.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode extracted frame, %w", err)
	}

	return img, nil
}

// flattenToWhite composites an image over a white background, dropping
// any alpha channel before a JPEG encode
func flattenToWhite(img image.Image) *image.NRGBA {
	bg := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	return imaging.OverlayCenter(bg, img, 1.0)
}
