package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wayride/wayride-backend/internal/rides"
)

// RateRide handles a rider rating a finished trip; a ride can be rated
// exactly once
func RateRide(engine *rides.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetUint("userId")

		var input struct {
			RideID     uint   `json:"rideId" binding:"required"`
			Rating     int    `json:"rating" binding:"required"`
			ReviewText string `json:"reviewText"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		ride, err := engine.SubmitRating(riderID, input.RideID, input.Rating, strings.TrimSpace(input.ReviewText))
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(200, ride)
	}
}

// PendingRatings lists the rider's finished rides still awaiting a rating
func PendingRatings(engine *rides.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetUint("userId")

		pending, err := engine.PendingRatings(riderID)
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(200, pending)
	}
}
