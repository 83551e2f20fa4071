package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayride/wayride-backend/internal/models"
	"github.com/wayride/wayride-backend/internal/rides"
	"gorm.io/gorm"
)

// CreateOffer handles a driver bidding on an open ride request
func CreateOffer(engine *rides.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var input rides.SubmitOfferInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		offer, err := engine.SubmitOffer(driverID, input)
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(201, offer)
	}
}

// ListOffers returns the offers on a given ride request, cheapest first
func ListOffers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestIDStr := c.Query("ride_request")
		requestID, err := strconv.ParseUint(requestIDStr, 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "ride_request query parameter required"})
			return
		}

		var offers []models.RideOffer
		if err := db.Preload("Driver").
			Where("ride_request_id = ?", requestID).
			Order("price ASC").
			Find(&offers).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch offers"})
			return
		}

		c.JSON(200, offers)
	}
}

// AcceptOffer handles the rider choosing a winning bid
func AcceptOffer(engine *rides.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetUint("userId")

		var input struct {
			OfferID uint `json:"offerId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		req, err := engine.AcceptOffer(riderID, input.OfferID)
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(200, req)
	}
}

// WithdrawOffer handles a driver pulling their pending bid
func WithdrawOffer(engine *rides.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		offerID, err := parseID(c, "id")
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid offer ID"})
			return
		}

		offer, err := engine.WithdrawOffer(driverID, uint(offerID))
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(200, offer)
	}
}
