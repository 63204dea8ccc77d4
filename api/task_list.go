package api

import (
	"net/http"
	"slices"
	"strconv"

	"chirpnet/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var listableStatuses = []string{
	string(model.TaskPending),
	string(model.TaskProcessing),
	string(model.TaskCompleted),
	string(model.TaskFailed),
}

// GET /api/tasks 	-> Lists queue rows for admins, newest first
func (a *API) TaskList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	status := c.Query("status")
	if status != "" && !slices.Contains(listableStatuses, status) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid status filter",
			"requestID": requestID,
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	tasks, err := a.Queue.List(model.TaskStatus(status), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		zap.L().Error("Failed to list tasks", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}
