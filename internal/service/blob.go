package service

import (
	"chirpnet/media-api/internal/storage"
	"context"
	"fmt"
	"io"
	"os"
)

// fetchToTemp copies an object out of storage into a temp file so
// ffmpeg and the image pipeline can work on a local path. The caller
// runs cleanup once done
func fetchToTemp(ctx context.Context, st storage.Storage, key, pattern string) (string, func(), error) {
	r, err := st.Get(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch object %q, %w", key, err)
	}
	defer r.Close()

	temp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file, %w", err)
	}

	if _, err := io.Copy(temp, r); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return "", nil, fmt.Errorf("failed to copy object to temp file, %w", err)
	}

	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return "", nil, err
	}

	return temp.Name(), func() { os.Remove(temp.Name()) }, nil
}
