package api

import (
	"errors"
	"net/http"

	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// mediaExists makes sure an approved media row is there before we
// touch its counters. Writes the error response itself and reports
// whether the handler can go on
func (a *API) mediaExists(c *gin.Context, requestID, mediaID string) bool {
	if mediaID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No media ID provided",
			"requestID": requestID,
		})
		return false
	}

	var n int64
	err := a.DB.
		Model(model.MediaFile{}).
		Where("id = ? AND is_approved = ?", mediaID, true).
		Count(&n).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to check media existence", zap.Error(err), zap.String("requestID", requestID))
		return false
	}

	if n == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Media not found",
			"requestID": requestID,
		})
		return false
	}

	return true
}

// MediaTrackView records one view for the calling user. Repeat views
// inside the dedupe window only bump the total, not the unique count
func (a *API) MediaTrackView(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	mediaID := c.Param("id")
	if !a.mediaExists(c, requestID, mediaID) {
		return
	}

	if err := a.Analytics.TrackView(mediaID, service.ViewerKey(userID, c.ClientIP())); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to track view", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "View recorded"})
}

type interactRequest struct {
	Action string `json:"action" binding:"required"`
}

// MediaInteract records likes, shares and downloads against the
// analytics counters. Unlike reverses a like without ever driving the
// count below zero
func (a *API) MediaInteract(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	mediaID := c.Param("id")
	if !a.mediaExists(c, requestID, mediaID) {
		return
	}

	var req interactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Missing action",
			"requestID": requestID,
		})
		return
	}

	var err error
	switch req.Action {
	case "like":
		err = a.Analytics.OnLikeCreated(mediaID)
	case "unlike":
		err = a.Analytics.OnLikeDeleted(mediaID)
	case service.InteractionShare, service.InteractionDownload:
		err = a.Analytics.TrackInteraction(mediaID, req.Action)
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid action",
			"requestID": requestID,
		})
		return
	}

	if err != nil {
		if errors.Is(err, service.ErrUnknownInteraction) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid action",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to record interaction", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Interaction recorded"})
}
