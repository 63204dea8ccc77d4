package api

import (
	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/service"
	"chirpnet/media-api/internal/storage"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MediaServe serves the blob of an approved media file, or one of its
// thumbnails when ?thumb=small|medium|large is given. Redirects to the
// CDN when storage exposes one, streams the object otherwise
func (a *API) MediaServe(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	mediaID := c.Param("id")
	if mediaID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No media ID provided",
			"requestID": requestID,
		})
		return
	}

	var media model.MediaFile

	err := a.DB.
		Where("id = ? AND is_approved = ?", mediaID, true).
		First(&media).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Media not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check if media exists", zap.String("id", mediaID), zap.Error(err))
		return
	}

	key := media.FileKey
	contentType := media.MimeType
	size := media.FileSize

	if sizeName := c.Query("thumb"); sizeName != "" {
		var thumb model.MediaThumbnail

		err := a.DB.
			Where("media_file_id = ? AND size = ?", mediaID, sizeName).
			First(&thumb).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
					"error":     "Thumbnail not found",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to look up thumbnail", zap.String("id", mediaID), zap.Error(err))
			return
		}

		key = thumb.FileKey
		contentType = "image/jpeg"
		size = int64(thumb.FileSize)
	} else {
		// Thumbnail hits don't count as views of the media
		viewer := service.ViewerKey(c.GetString("userID"), c.ClientIP())
		if err := a.Analytics.TrackView(media.ID, viewer); err != nil {
			zap.L().Error("Failed to track view", zap.String("id", mediaID), zap.Error(err))
		}
	}

	if u := a.Store.URL(key); u != "" {
		c.Redirect(http.StatusFound, u)
		return
	}

	obj, err := a.Store.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Media not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to open stored object", zap.String("key", key), zap.Error(err))
		return
	}
	defer obj.Close()

	c.DataFromReader(http.StatusOK, size, contentType, obj, nil)
}

// mediaURL returns where clients can fetch the blob from: the CDN when
// storage exposes one, the serve endpoint otherwise
func (a *API) mediaURL(mediaID, key string) string {
	if u := a.Store.URL(key); u != "" {
		return u
	}

	return "/api/media/" + mediaID + "/file"
}

func (a *API) thumbURL(mediaID string, t *model.MediaThumbnail) string {
	if u := a.Store.URL(t.FileKey); u != "" {
		return u
	}

	return "/api/media/" + mediaID + "/file?thumb=" + string(t.Size)
}
