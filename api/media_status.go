package api

import (
	"errors"
	"net/http"

	"chirpnet/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MediaStatus reports how far the processing pipeline got for one
// media file. Clients poll this after an upload until
// is_processed flips
func (a *API) MediaStatus(c *gin.Context) {
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
	if err := q.First(&media).Error; err != nil {
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
		zap.L().Error("Failed to load media for status check", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	status, err := a.Queue.Status(mediaID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to summarize task status", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"media_id":         media.ID,
		"is_processed":     media.IsProcessed,
		"processing_error": media.ProcessingError,
		"tasks":            status,
	})
}
