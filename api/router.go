// Package api contains all endpoints available
package api

import (
	"chirpnet/media-api/db"
	"chirpnet/media-api/internal/service"
	"chirpnet/media-api/internal/storage"
	"chirpnet/media-api/pkg/middleware"
	"context"
	"fmt"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store persist.CacheStore

type API struct {
	DB        *gorm.DB
	Router    *gin.Engine
	Store     storage.Storage
	Uploader  *service.Uploader
	Queue     *service.Queue
	Worker    *service.Worker
	Thumbs    *service.Thumbnailer
	Analytics *service.Analytics
	Remover   *service.Remover
	Sweeper   *service.Sweeper
}

func NewRouter() (*API, error) {
	a := &API{}

	db, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = db

	makeLogger()

	st, err := storage.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage, %w", err)
	}
	a.Store = st

	a.Uploader = service.NewUploader(db, st)
	a.Queue = service.NewQueue(db)
	a.Worker = service.NewWorker(db, st)
	a.Thumbs = service.NewThumbnailer(db, st)
	a.Analytics = service.NewAnalytics(db)
	a.Remover = service.NewRemover(db, st)
	a.Sweeper = service.NewSweeper(db, st)

	switch viper.GetString("cache.type") {
	case "redis":
		store = persist.NewRedisStore(redis.NewClient(&redis.Options{
			Addr: viper.GetString("cache.redis_addr"),
		}))
	default:
		store = persist.NewMemoryStore(time.Minute)
	}

	router := gin.New()
	a.Router = router

	domain := viper.GetString("host.domain")

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://" + domain, "https://" + domain},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	jwt := middleware.NewJWTMiddleware(db)
	admin := middleware.NewAdminMiddleware()
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: viper.GetInt("ratelimit.rps"),
		Burst:             viper.GetInt("ratelimit.burst"),
	})

	// Multipart encoding adds some overhead on top of the files themselves
	singleLimit := viper.GetInt64("upload.max_video_size")<<20 + 1<<20
	bulkLimit := service.MaxBulkFiles*(viper.GetInt64("upload.max_video_size")<<20) + 1<<20

	// GET /metrics 			-> Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	main := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)
	}

	media := main.Group("/media")
	{
		// POST /api/media 		-> Uploads a new media file
		media.POST("", jwt, middleware.BodySizeLimiter(singleLimit), a.MediaUpload)

		// POST /api/media/bulk 	-> Uploads up to 10 files in one request
		media.POST("/bulk", jwt, middleware.BodySizeLimiter(bulkLimit), a.MediaUploadBulk)

		// GET /api/media 		-> Returns the caller's media library
		media.GET("", jwt, a.MediaLibrary)

		// GET /api/media/popular 	-> Returns the most popular media
		media.GET("/popular", jwt, cacheFor(60), a.MediaPopular)

		// POST /api/media/attach 	-> Replaces the attachments of a post
		media.POST("/attach", jwt, a.MediaAttach)

		// GET /api/media/:id 		-> Returns one media file with details
		media.GET("/:id", jwt, a.MediaFetch)

		// GET /api/media/:id/file 	-> Serves the blob or a thumbnail
		media.GET("/:id/file", a.MediaServe)

		// GET /api/media/:id/thumbnails -> Lists the thumbnails of a media file
		media.GET("/:id/thumbnails", jwt, a.MediaThumbnails)

		// POST /api/media/:id/thumbnails/regenerate -> Drops and recreates thumbnails
		media.POST("/:id/thumbnails/regenerate", jwt, a.MediaRegenerate)

		// GET /api/media/:id/status 	-> Returns the processing pipeline state
		media.GET("/:id/status", jwt, a.MediaStatus)

		// POST /api/media/:id/view 	-> Records a view
		media.POST("/:id/view", jwt, a.MediaTrackView)

		// POST /api/media/:id/interactions -> Records a like, share or download
		media.POST("/:id/interactions", jwt, a.MediaInteract)

		// GET /api/media/:id/analytics	-> Returns engagement counters
		media.GET("/:id/analytics", jwt, a.MediaAnalyticsFetch)

		// DELETE /api/media/:id 	-> Deletes a media file
		media.DELETE("/:id", jwt, a.MediaDelete)
	}

	users := main.Group("/users")
	{
		// PUT /api/users/me/profile-media -> Sets the caller's avatar or banner
		users.PUT("/me/profile-media", jwt, middleware.BodySizeLimiter(1<<20), a.ProfileMediaUpdate)
	}

	tasks := main.Group("/tasks", jwt)
	{
		// GET /api/tasks 		-> Lists queue tasks (admin only)
		tasks.GET("", admin, a.TaskList)

		// POST /api/tasks/:id/retry 	-> Puts a failed task back in line
		tasks.POST("/:id/retry", a.TaskRetry)
	}

	if viper.GetBool("worker.enabled") {
		service.StartWorker(viper.GetDuration("worker.interval"), a.Worker)
		service.StartSweeper(viper.GetDuration("cleanup.interval"), a.Sweeper)
	}

	if viper.GetBool("sweep-now") {
		go func() {
			if _, err := a.Sweeper.SweepOrphans(context.Background()); err != nil {
				zap.L().Error("Orphan sweep failed", zap.Error(err))
			}

			if _, err := a.Sweeper.SweepFailedTasks(); err != nil {
				zap.L().Error("Failed task purge failed", zap.Error(err))
			}
		}()
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
