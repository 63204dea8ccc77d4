package api

import (
	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mediaDetail struct {
	model.MediaFile
	URL              string                    `json:"url"`
	Thumbnails       []thumbnailInfo           `json:"thumbnails"`
	Analytics        *model.MediaAnalytics     `json:"analytics"`
	ProcessingStatus *service.ProcessingStatus `json:"processing_status"`
}

// MediaFetch returns one media file with its thumbnails, counters and
// pipeline state. Admins can look at anybody's media
func (a *API) MediaFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	mediaID := c.Param("id")
	if mediaID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No media ID provided",
			"requestID": requestID,
		})
		return
	}

	q := a.DB.Where("id = ?", mediaID)
	if !c.GetBool("isAdmin") {
		q = q.Where("user_id = ?", userID)
	}

	var media model.MediaFile

	err := q.First(&media).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Media not found. It either doesn't exist or you don't own it",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch media from db", zap.Error(err))
		return
	}

	var thumbs []model.MediaThumbnail

	err = a.DB.
		Where("media_file_id = ?", mediaID).
		Find(&thumbs).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch thumbnails", zap.Error(err))
		return
	}

	status, err := a.Queue.Status(mediaID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to summarize processing state", zap.Error(err))
		return
	}

	stats, err := a.Analytics.Stats(mediaID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch analytics", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, mediaDetail{
		MediaFile:        media,
		URL:              a.mediaURL(media.ID, media.FileKey),
		Thumbnails:       a.thumbnailList(mediaID, thumbs),
		Analytics:        stats,
		ProcessingStatus: status,
	})
}
