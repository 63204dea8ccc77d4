// Package storage abstracts where uploaded media bytes live. The API
// only ever talks to the Storage interface so backends can be swapped
// through the config file
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/viper"
)

var ErrNotFound = errors.New("object not found")

type Storage interface {
	// Put writes the object under key, creating parent prefixes as needed
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get returns a reader over the object. The caller closes it
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes objects in bulk. Missing keys are not an error
	Delete(ctx context.Context, keys ...string) error

	// URL returns a public URL for the object, or an empty string when
	// the backend has no CDN and the API must stream the bytes itself
	URL(key string) string
}

func New() (Storage, error) {
	switch viper.GetString("storage.type") {
	case "s3":
		return NewS3()
	case "local":
		return NewLocal(viper.GetString("storage.local_path"))
	default:
		return nil, errors.New("invalid storage type provided")
	}
}
