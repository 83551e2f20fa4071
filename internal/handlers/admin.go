package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/wayride/wayride-backend/internal/models"
	"gorm.io/gorm"
)

// AdminListRides returns every ride request with offers, newest first
func AdminListRides(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit := pagination(c)
		offset := (page - 1) * limit

		var requests []models.RideRequest
		if err := db.Preload("Rider").Preload("Offers").
			Order("created_at DESC").
			Offset(offset).
			Limit(limit).
			Find(&requests).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch ride requests"})
			return
		}

		var total int64
		db.Model(&models.RideRequest{}).Count(&total)

		c.JSON(200, gin.H{
			"rides": requests,
			"pagination": gin.H{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		})
	}
}
