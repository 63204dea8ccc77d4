// Package service implements the media pipeline behind the API:
// validation, storage, the processing queue, the worker and the sweepers
package service

import (
	"chirpnet/media-api/internal/metrics"
	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/storage"
	"chirpnet/media-api/pkg/retry"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxBulkFiles caps how many files one bulk request may carry
const MaxBulkFiles = 10

var ErrTooManyFiles = errors.New("too many files in one request")

type Uploader struct {
	DB    *gorm.DB
	Store storage.Storage
	Queue *Queue
	Retry retry.Policy
}

func NewUploader(db *gorm.DB, store storage.Storage) *Uploader {
	return &Uploader{
		DB:    db,
		Store: store,
		Queue: NewQueue(db),
		Retry: retry.DefaultPolicy(),
	}
}

// UploadInput carries the request-scoped fields of an upload
type UploadInput struct {
	UserID    string
	UsageType model.UsageType
	AltText   string
}

// Do validates, stores and registers one uploaded file, then enqueues
// its processing pipeline. The row and its queue rows land in one
// transaction so pollers never see half a pipeline. On error the
// returned status code is what the handler should send
func (u *Uploader) Do(ctx context.Context, fh *multipart.FileHeader, in UploadInput) (*model.MediaFile, int, error) {
	code, vf, err := FileValidator(fh)
	if err != nil {
		if code != http.StatusInternalServerError {
			metrics.UploadsRejectedTotal.WithLabelValues(err.Error()).Inc()
		}

		return nil, code, err
	}
	defer vf.File.Close()

	media := &model.MediaFile{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		MediaType:    vf.MediaType,
		UsageType:    in.UsageType,
		FileKey:      buildFileKey(vf.MediaType, vf.Ext),
		OriginalName: fh.Filename,
		FileSize:     fh.Size,
		MimeType:     vf.MimeType,
		AltText:      in.AltText,
		IsApproved:   true,
	}

	// Basic dimensions come inline so the row is useful right away.
	// Failure here never fails the upload
	if vf.MediaType == model.MediaTypeImage || vf.MediaType == model.MediaTypeGIF {
		if w, h, derr := imageDimensionsFromReader(vf.File); derr == nil {
			media.Width = &w
			media.Height = &h
		} else {
			zap.L().Warn("Failed to read image dimensions", zap.String("file", fh.Filename), zap.Error(derr))
		}
	}

	err = u.Retry.Do(ctx, func() error {
		if _, serr := vf.File.Seek(0, io.SeekStart); serr != nil {
			return serr
		}

		return u.Store.Put(ctx, media.FileKey, vf.File, fh.Size, vf.MimeType)
	})
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to store upload, %w", err)
	}

	err = u.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(media).Error; err != nil {
			return fmt.Errorf("failed to save media record, %w", err)
		}

		if _, err := u.Queue.enqueue(tx, media); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		// The blob exists but the row doesn't, don't leak it
		if derr := u.Store.Delete(context.Background(), media.FileKey); derr != nil {
			zap.L().Error("Failed to clean up stored blob", zap.String("key", media.FileKey), zap.Error(derr))
		}

		return nil, http.StatusInternalServerError, err
	}

	metrics.UploadsTotal.WithLabelValues(string(media.MediaType)).Inc()
	metrics.UploadBytes.WithLabelValues(string(media.MediaType)).Add(float64(fh.Size))

	return media, 0, nil
}

type BulkItem struct {
	Name  string           `json:"file_name"`
	Media *model.MediaFile `json:"media,omitempty"`
	Error string           `json:"error,omitempty"`
}

// DoBulk uploads up to MaxBulkFiles files, isolating per-file failures
// so one bad file doesn't cost the rest of the batch
func (u *Uploader) DoBulk(ctx context.Context, files []*multipart.FileHeader, in UploadInput) ([]BulkItem, error) {
	if len(files) > MaxBulkFiles {
		return nil, ErrTooManyFiles
	}

	items := make([]BulkItem, 0, len(files))

	for _, fh := range files {
		media, code, err := u.Do(ctx, fh, in)
		if err != nil {
			msg := err.Error()

			// Validation messages are for the user, everything else isn't
			if code == http.StatusInternalServerError {
				zap.L().Error("Failed to upload file from batch", zap.String("file_name", fh.Filename), zap.Error(err))
				msg = "internal server error"
			}

			items = append(items, BulkItem{Name: fh.Filename, Error: msg})
			continue
		}

		items = append(items, BulkItem{Name: fh.Filename, Media: media})
	}

	return items, nil
}

// buildFileKey lays uploads out by kind: media/{images|videos|gifs|other}/{id}{ext}
func buildFileKey(t model.MediaType, ext string) string {
	var dir string

	switch t {
	case model.MediaTypeImage:
		dir = "images"
	case model.MediaTypeVideo:
		dir = "videos"
	case model.MediaTypeGIF:
		dir = "gifs"
	default:
		dir = "other"
	}

	return fmt.Sprintf("media/%s/%s%s", dir, gonanoid.Must(), ext)
}
