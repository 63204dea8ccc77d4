package api

import (
	"fmt"
	"net/http"

	"chirpnet/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// A post carries at most this many media files
const maxAttachments = 4

type attachRequest struct {
	PostID   int64    `json:"post_id" binding:"required"`
	MediaIDs []string `json:"media_ids" binding:"required"`
}

// MediaAttach replaces the media set of a post. The request order
// decides the display position, and every referenced file must be an
// approved upload of the caller
func (a *API) MediaAttach(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if len(req.MediaIDs) == 0 || len(req.MediaIDs) > maxAttachments {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     fmt.Sprintf("A post takes 1 to %d media files", maxAttachments),
			"requestID": requestID,
		})
		return
	}

	var owned int64
	err := a.DB.
		Model(model.MediaFile{}).
		Where("id IN ? AND user_id = ? AND is_approved = ?", req.MediaIDs, userID, true).
		Count(&owned).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to load media for attaching", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	// Duplicate IDs also land here, the count can't match then
	if owned != int64(len(req.MediaIDs)) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Media not found. It either doesn't exist or you don't own it",
			"requestID": requestID,
		})
		return
	}

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", req.PostID).Delete(&model.PostAttachment{}).Error; err != nil {
			return fmt.Errorf("failed to clear old attachments, %w", err)
		}

		for i, id := range req.MediaIDs {
			att := model.PostAttachment{
				PostID:      req.PostID,
				MediaFileID: id,
				Position:    i,
			}
			if err := tx.Create(&att).Error; err != nil {
				return fmt.Errorf("failed to attach media %q, %w", id, err)
			}
		}

		return nil
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to attach media to post", zap.Error(err), zap.Int64("post_id", req.PostID), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Media attached successfully",
		"post_id":  req.PostID,
		"attached": len(req.MediaIDs),
	})
}
