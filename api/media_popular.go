package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) MediaPopular(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 {
		days = 7
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	files, err := a.Analytics.Popular(limit, days)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch popular media", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"media":       files,
		"period_days": days,
	})
}
