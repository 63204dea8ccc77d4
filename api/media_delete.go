package api

import (
	"errors"
	"net/http"

	"chirpnet/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MediaDelete removes a media file, its thumbnails, its queue rows and
// its counters. Media still attached to a post or used as profile
// media is refused until those references are gone
func (a *API) MediaDelete(c *gin.Context) {
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
		zap.L().Error("Failed to load media for deletion", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	inUse, err := a.Remover.InUse(mediaID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to check media references", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if inUse {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     "Media is still in use and can't be deleted",
			"requestID": requestID,
		})
		return
	}

	if err := a.Remover.Delete(c.Request.Context(), &media); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to delete media", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Status(http.StatusNoContent)
}
