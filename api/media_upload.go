package api

import (
	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/service"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) MediaUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	if !strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request",
			"requestID": requestID,
		})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return
	}

	usage := model.UsageType(c.DefaultPostForm("usage_type", string(model.UsagePost)))
	switch usage {
	case model.UsagePost, model.UsageAvatar, model.UsageBanner, model.UsageMessage:
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid usage type",
			"requestID": requestID,
		})
		return
	}

	media, code, err := a.Uploader.Do(c.Request.Context(), fh, service.UploadInput{
		UserID:    userID,
		UsageType: usage,
		AltText:   c.PostForm("alt_text"),
	})
	if err != nil {
		if code == http.StatusInternalServerError {
			zap.L().Error("Failed to upload media", zap.Error(err), zap.String("requestID", requestID))

			// That's to set the error into a general one for the users
			err = errors.New("internal server error")
		}

		c.AbortWithStatusJSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusCreated, media)
}
