package service

import (
	"chirpnet/media-api/internal/model"
	"errors"
	"mime/multipart"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
)

var (
	ErrNoFile              = errors.New("no file provided")
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileNameTooLong     = errors.New("file name is too long")
	ErrFileTypeUnsupported = errors.New("unsupported file type")
)

const maxFileNameSize = 255

// video/x-msvideo is what content sniffing reports for AVI
var (
	allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	allowedVideoTypes = []string{"video/mp4", "video/webm", "video/quicktime", "video/avi", "video/x-msvideo"}
)

type ValidatedFile struct {
	File      multipart.File
	MediaType model.MediaType
	MimeType  string
	Ext       string
}

// DetectMediaType buckets a MIME type into a media type. Anything
// unrecognized is treated as an image and gets the image size cap
func DetectMediaType(mime string) model.MediaType {
	switch {
	case slices.Contains(allowedImageTypes, mime):
		return model.MediaTypeImage
	case slices.Contains(allowedVideoTypes, mime):
		return model.MediaTypeVideo
	default:
		return model.MediaTypeImage
	}
}

// MaxFileSize returns the configured size cap in bytes for a media type
func MaxFileSize(t model.MediaType) int64 {
	if t == model.MediaTypeVideo {
		return viper.GetInt64("upload.max_video_size") << 20
	}

	return viper.GetInt64("upload.max_image_size") << 20
}

// FileValidator checks an uploaded file before anything is persisted.
// The returned status code is only meaningful when err is set
func FileValidator(fh *multipart.FileHeader) (int, *ValidatedFile, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, ErrNoFile
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, nil, ErrFileNameTooLong
	}

	// Sniff the actual content instead of trusting the Content-Type
	// header malicious clients control
	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, err
	}

	mediaType := DetectMediaType(mime.String())

	if fh.Size > MaxFileSize(mediaType) {
		f.Close()
		return http.StatusRequestEntityTooLarge, nil, ErrFileTooLarge
	}

	var allowed []string
	if mediaType == model.MediaTypeVideo {
		allowed = allowedVideoTypes
	} else {
		allowed = allowedImageTypes
	}

	if !slices.Contains(allowed, mime.String()) {
		f.Close()
		return http.StatusBadRequest, nil, ErrFileTypeUnsupported
	}

	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, err
	}

	ext := strings.ToLower(path.Ext(fh.Filename))
	if ext == "" {
		ext = mime.Extension()
	}

	return 0, &ValidatedFile{
		File:      f,
		MediaType: mediaType,
		MimeType:  mime.String(),
		Ext:       ext,
	}, nil
}
