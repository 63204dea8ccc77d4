package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"chirpnet/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type profileMediaRequest struct {
	AvatarMediaID *string `json:"avatar_media_id"`
	BannerMediaID *string `json:"banner_media_id"`
}

// profileImage checks that a media ID can serve as profile media for
// the caller. Only approved images the user uploaded themselves
// qualify
func (a *API) profileImage(c *gin.Context, requestID, userID, mediaID string) bool {
	var media model.MediaFile
	err := a.DB.
		Where("id = ? AND user_id = ? AND is_approved = ?", mediaID, userID, true).
		First(&media).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Media not found. It either doesn't exist or you don't own it",
				"requestID": requestID,
			})
			return false
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to load profile media candidate", zap.Error(err), zap.String("requestID", requestID))
		return false
	}

	if media.MediaType != model.MediaTypeImage && media.MediaType != model.MediaTypeGIF {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Profile media must be an image",
			"requestID": requestID,
		})
		return false
	}

	return true
}

// ProfileMediaUpdate sets or clears the avatar and banner of the
// calling user. Passing null for a field clears it, leaving a field
// out keeps it untouched
func (a *API) ProfileMediaUpdate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	raw, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	var req profileMediaRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	// A second parse of the same bytes to tell "field absent" apart
	// from "field: null", the struct can't carry that difference
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(raw, &fields)

	updates := map[string]any{}

	if _, ok := fields["avatar_media_id"]; ok {
		if req.AvatarMediaID != nil {
			if !a.profileImage(c, requestID, userID, *req.AvatarMediaID) {
				return
			}
		}
		updates["avatar_media_id"] = req.AvatarMediaID
	}

	if _, ok := fields["banner_media_id"]; ok {
		if req.BannerMediaID != nil {
			if !a.profileImage(c, requestID, userID, *req.BannerMediaID) {
				return
			}
		}
		updates["banner_media_id"] = req.BannerMediaID
	}

	if len(updates) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Nothing to update",
			"requestID": requestID,
		})
		return
	}

	err = a.DB.
		Model(model.User{}).
		Where("id = ?", userID).
		Updates(updates).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to update profile media", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	var user model.User
	if err := a.DB.First(&user, "id = ?", userID).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to reload user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, user)
}
