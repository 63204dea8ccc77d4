package api

import (
	"errors"
	"net/http"

	"chirpnet/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MediaAnalyticsFetch returns the engagement counters for one media
// file. Only the uploader and admins get to see them
func (a *API) MediaAnalyticsFetch(c *gin.Context) {
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
		zap.L().Error("Failed to load media for analytics", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	stats, err := a.Analytics.Stats(mediaID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to load media stats", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"media_id":        media.ID,
		"stats":           stats,
		"engagement_rate": stats.EngagementRate(),
	})
}
