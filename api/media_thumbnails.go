package api

import (
	"chirpnet/media-api/internal/model"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type thumbnailInfo struct {
	Size     model.ThumbnailSize `json:"size"`
	URL      string              `json:"url"`
	Width    int                 `json:"width"`
	Height   int                 `json:"height"`
	FileSize int64               `json:"file_size"`
}

func (a *API) MediaThumbnails(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	mediaID := c.Param("id")
	if mediaID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No media ID provided",
			"requestID": requestID,
		})
		return
	}

	var exists int64

	err := a.DB.
		Model(model.MediaFile{}).
		Where("id = ?", mediaID).
		Count(&exists).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check if media exists", zap.Error(err))
		return
	}

	if exists == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Media not found",
			"requestID": requestID,
		})
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

	c.JSON(http.StatusOK, a.thumbnailList(mediaID, thumbs))
}

func (a *API) thumbnailList(mediaID string, thumbs []model.MediaThumbnail) []thumbnailInfo {
	out := make([]thumbnailInfo, 0, len(thumbs))

	for i := range thumbs {
		t := &thumbs[i]

		out = append(out, thumbnailInfo{
			Size:     t.Size,
			URL:      a.thumbURL(mediaID, t),
			Width:    t.Width,
			Height:   t.Height,
			FileSize: t.FileSize,
		})
	}

	return out
}

// MediaRegenerate drops the existing thumbnails of a media file and
// builds a fresh set
func (a *API) MediaRegenerate(c *gin.Context) {
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

	var media model.MediaFile

	err := a.DB.
		Where("id = ?", mediaID).
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

		zap.L().Error("Failed to fetch media", zap.Error(err))
		return
	}

	if media.UserID != userID && !c.GetBool("isAdmin") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Permission denied",
			"requestID": requestID,
		})
		return
	}

	count, err := a.Thumbs.Regenerate(c.Request.Context(), &media)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to regenerate thumbnails",
			"requestID": requestID,
		})

		zap.L().Error("Failed to regenerate thumbnails", zap.String("id", mediaID), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Thumbnails regenerated successfully",
		"thumbnails_count": count,
	})
}
