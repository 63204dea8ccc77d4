package service

import (
	"bytes"
	"image/color"
	"mime/multipart"
	"path/filepath"
	"testing"

	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/storage"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB spins up a throwaway sqlite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.MediaFile{},
		&model.MediaThumbnail{},
		&model.ProcessingTask{},
		&model.MediaAnalytics{},
		&model.PostAttachment{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func setupTestStore(t *testing.T) *storage.LocalStorage {
	t.Helper()

	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create test storage: %v", err)
	}

	return store
}

// pngBytes renders a small solid color PNG for pipeline tests
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}

	return buf.Bytes()
}

// fileHeader wraps raw bytes in the multipart.FileHeader the upload
// path expects from gin
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}

	if _, err := fw.Write(content); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	mw.Close()

	form, err := multipart.NewReader(buf, mw.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("Failed to parse multipart form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })

	return form.File["file"][0]
}

// seedMedia inserts a media row directly, skipping the upload path
func seedMedia(t *testing.T, db *gorm.DB, userID string, mt model.MediaType) *model.MediaFile {
	t.Helper()

	media := &model.MediaFile{
		ID:           uuid.NewString(),
		UserID:       userID,
		MediaType:    mt,
		UsageType:    model.UsagePost,
		FileKey:      "media/test/" + uuid.NewString(),
		OriginalName: "seed.bin",
		FileSize:     3,
		MimeType:     "application/octet-stream",
		IsApproved:   true,
	}

	if err := db.Create(media).Error; err != nil {
		t.Fatalf("Failed to seed media: %v", err)
	}

	return media
}

// backdate rewrites created_at on a row so age-based logic can be tested
func backdate(t *testing.T, db *gorm.DB, mdl any, id any, to any) {
	t.Helper()

	err := db.
		Model(mdl).
		Where("id = ?", id).
		Update("created_at", to).
		Error
	if err != nil {
		t.Fatalf("Failed to backdate row: %v", err)
	}
}
