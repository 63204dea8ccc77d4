package api

import (
	"chirpnet/media-api/internal/model"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPerPage = 50

// MediaLibrary returns the caller's approved media, newest first, with
// optional type/usage filters
func (a *API) MediaLibrary(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if err != nil || perPage < 1 {
		perPage = 20
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	filter := func() *gorm.DB {
		q := a.DB.
			Model(model.MediaFile{}).
			Where("user_id = ? AND is_approved = ?", userID, true)

		if t := c.Query("type"); t != "" {
			q = q.Where("media_type = ?", t)
		}

		if u := c.Query("usage"); u != "" {
			q = q.Where("usage_type = ?", u)
		}

		return q
	}

	var total int64

	if err := filter().Count(&total).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to count library entries", zap.Error(err))
		return
	}

	var files []model.MediaFile

	err = filter().
		Order("created_at desc").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&files).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch library entries", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"media": files,
		"pagination": gin.H{
			"page":     page,
			"per_page": perPage,
			"total":    total,
			"has_next": total > int64(page*perPage),
		},
	})
}
