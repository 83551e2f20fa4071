package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wayride/wayride-backend/internal/models"
	"github.com/wayride/wayride-backend/internal/services"
	"github.com/wayride/wayride-backend/pkg/utils"
	"gorm.io/gorm"
)

// CityAutocomplete suggests cities matching a query prefix. Results are
// cached in Redis since the city table is effectively static.
func CityAutocomplete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := strings.TrimSpace(c.Query("q"))
		if len(query) < 2 {
			c.JSON(200, []models.USCity{})
			return
		}
		query = strings.ToLower(query)

		var cities []models.USCity
		if hit, err := services.GetCachedCityResults(c.Request.Context(), query, &cities); err == nil && hit {
			c.JSON(200, cities)
			return
		}

		if err := db.Where("LOWER(city) LIKE ?", query+"%").
			Order("population DESC").
			Limit(10).
			Find(&cities).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to search cities"})
			return
		}

		services.CacheCityResults(c.Request.Context(), query, cities)
		c.JSON(200, cities)
	}
}

// Distance computes the great-circle distance between two coordinates
func Distance() gin.HandlerFunc {
	return func(c *gin.Context) {
		fromLat, err1 := strconv.ParseFloat(c.Query("from_lat"), 64)
		fromLng, err2 := strconv.ParseFloat(c.Query("from_lng"), 64)
		toLat, err3 := strconv.ParseFloat(c.Query("to_lat"), 64)
		toLng, err4 := strconv.ParseFloat(c.Query("to_lng"), 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			c.JSON(400, gin.H{"error": "Missing or invalid coordinates"})
			return
		}
		if !utils.IsValidCoordinate(fromLat, fromLng) || !utils.IsValidCoordinate(toLat, toLng) {
			c.JSON(400, gin.H{"error": "Missing or invalid coordinates"})
			return
		}

		distance := utils.HaversineMiles(fromLat, fromLng, toLat, toLng)
		c.JSON(200, gin.H{
			"distanceMiles":  distance,
			"suggestedPrice": utils.SuggestedPrice(distance),
		})
	}
}
