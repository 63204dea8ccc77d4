package api

import (
	"errors"
	"net/http"
	"strconv"

	"chirpnet/media-api/internal/model"
	"chirpnet/media-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// POST /api/tasks/:id/retry 	-> Puts a failed task back in the queue
func (a *API) TaskRetry(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid task ID",
			"requestID": requestID,
		})
		return
	}

	var task model.ProcessingTask
	if err := a.DB.First(&task, uint(taskID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Task not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to load task", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !c.GetBool("isAdmin") {
		var owned int64
		err := a.DB.
			Model(model.MediaFile{}).
			Where("id = ? AND user_id = ?", task.MediaFileID, userID).
			Count(&owned).
			Error
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})
			zap.L().Error("Failed to check task ownership", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		// Tasks on other people's media don't exist as far as the
		// caller is concerned
		if owned == 0 {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Task not found",
				"requestID": requestID,
			})
			return
		}
	}

	rescheduled, err := a.Queue.Retry(uint(taskID))
	if err != nil {
		if errors.Is(err, service.ErrNotRetryable) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error":     "Task can't be retried",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to retry task", zap.Error(err), zap.Uint64("task_id", taskID), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, rescheduled)
}
