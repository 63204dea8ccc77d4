package api

import (
	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/service"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) MediaUploadBulk(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid multipart form",
			"requestID": requestID,
		})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No files provided",
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

	items, err := a.Uploader.DoBulk(c.Request.Context(), files, service.UploadInput{
		UserID:    userID,
		UsageType: usage,
	})
	if err != nil {
		if errors.Is(err, service.ErrTooManyFiles) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     fmt.Sprintf("Maximum %d files allowed", service.MaxBulkFiles),
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to run bulk upload", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	uploaded := make([]*model.MediaFile, 0, len(items))
	failed := make([]gin.H, 0)

	for i, item := range items {
		if item.Error != "" {
			failed = append(failed, gin.H{
				"file_index": i,
				"filename":   item.Name,
				"error":      item.Error,
			})
			continue
		}

		uploaded = append(uploaded, item.Media)
	}

	code := http.StatusCreated
	if len(uploaded) == 0 {
		code = http.StatusBadRequest
	}

	c.JSON(code, gin.H{
		"uploaded": uploaded,
		"errors":   failed,
		"summary": gin.H{
			"total_files":        len(items),
			"successful_uploads": len(uploaded),
			"failed_uploads":     len(failed),
		},
	})
}
