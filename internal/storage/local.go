package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

type LocalStorage struct {
	root string
}

func NewLocal(root string) (*LocalStorage, error) {
	if root == "" {
		root = "data"
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root, %w", err)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root, %w", err)
	}

	return &LocalStorage{root: abs}, nil
}

// resolve maps a storage key onto a path under root. Keys that would
// escape the root are rejected
func (l *LocalStorage) resolve(key string) (string, error) {
	p := filepath.Join(l.root, filepath.FromSlash(key))
	if p != l.root && !strings.HasPrefix(p, l.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}

	return p, nil
}

func (l *LocalStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := l.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create object dir, %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create object file, %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("failed to write object, %w", err)
	}

	return f.Close()
}

func (l *LocalStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := l.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to open object, %w", err)
	}

	return f, nil
}

func (l *LocalStorage) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		p, err := l.resolve(key)
		if err != nil {
			return err
		}

		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			zap.L().Error("Failed to delete object", zap.String("key", key), zap.Error(err))
		}
	}

	return nil
}

func (l *LocalStorage) URL(string) string {
	return ""
}
