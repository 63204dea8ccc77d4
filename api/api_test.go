package api

import (
	"bytes"
	"encoding/json"
	"image/color"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/service"
	"chirpnet/media-api/internal/storage"
	"chirpnet/media-api/pkg/middleware"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestAPI wires the handlers against a throwaway database and local
// storage. The auth middleware is replaced with headers: X-Test-User
// picks the caller, X-Test-Admin grants admin
func newTestAPI(t *testing.T) *API {
	t.Helper()

	gin.SetMode(gin.TestMode)

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

	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create test storage: %v", err)
	}

	viper.Set("upload.max_image_size", 10)
	viper.Set("upload.max_video_size", 100)
	viper.Set("worker.batch_size", 10)
	viper.Set("cleanup.orphan_after_days", 7)
	viper.Set("cleanup.failed_task_after_days", 3)

	a := &API{
		DB:        db,
		Store:     store,
		Uploader:  service.NewUploader(db, store),
		Queue:     service.NewQueue(db),
		Worker:    service.NewWorker(db, store),
		Thumbs:    service.NewThumbnailer(db, store),
		Analytics: service.NewAnalytics(db),
		Remover:   service.NewRemover(db, store),
		Sweeper:   service.NewSweeper(db, store),
	}
	t.Cleanup(a.Analytics.Close)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("requestID", "test-request")

		user := c.GetHeader("X-Test-User")
		if user == "" {
			user = "tester"
		}
		c.Set("userID", user)
		c.Set("isAdmin", c.GetHeader("X-Test-Admin") == "1")
	})

	admin := middleware.NewAdminMiddleware()

	media := router.Group("/api/media")
	{
		media.POST("", a.MediaUpload)
		media.POST("/bulk", a.MediaUploadBulk)
		media.GET("", a.MediaLibrary)
		media.GET("/popular", a.MediaPopular)
		media.POST("/attach", a.MediaAttach)
		media.GET("/:id", a.MediaFetch)
		media.GET("/:id/file", a.MediaServe)
		media.GET("/:id/thumbnails", a.MediaThumbnails)
		media.POST("/:id/thumbnails/regenerate", a.MediaRegenerate)
		media.GET("/:id/status", a.MediaStatus)
		media.POST("/:id/view", a.MediaTrackView)
		media.POST("/:id/interactions", a.MediaInteract)
		media.GET("/:id/analytics", a.MediaAnalyticsFetch)
		media.DELETE("/:id", a.MediaDelete)
	}

	users := router.Group("/api/users")
	{
		users.PUT("/me/profile-media", a.ProfileMediaUpdate)
	}

	tasks := router.Group("/api/tasks")
	{
		tasks.GET("", admin, a.TaskList)
		tasks.POST("/:id/retry", a.TaskRetry)
	}

	a.Router = router
	return a
}

func doRequest(t *testing.T, a *API, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("Response is not JSON: %v\n%s", err, rr.Body.String())
	}

	return m
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := imaging.New(w, h, color.NRGBA{R: 40, G: 80, B: 200, A: 255})

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}

	return buf.Bytes()
}

// multipartBody builds an upload request body with one or more files
// under the given field name plus optional form fields
func multipartBody(t *testing.T, field string, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("Failed to write form file: %v", err)
		}
	}

	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	return buf, mw.FormDataContentType()
}

// seedMedia inserts an approved media row owned by userID
func seedMedia(t *testing.T, db *gorm.DB, userID string, mt model.MediaType) *model.MediaFile {
	t.Helper()

	media := &model.MediaFile{
		ID:           uuid.NewString(),
		UserID:       userID,
		MediaType:    mt,
		UsageType:    model.UsagePost,
		FileKey:      "media/test/" + uuid.NewString(),
		OriginalName: "seed.bin",
		FileSize:     4,
		MimeType:     "application/octet-stream",
		IsApproved:   true,
	}

	if err := db.Create(media).Error; err != nil {
		t.Fatalf("Failed to seed media: %v", err)
	}

	return media
}

func seedUser(t *testing.T, db *gorm.DB, id string) *model.User {
	t.Helper()

	user := &model.User{ID: id, Username: id}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	return user
}
