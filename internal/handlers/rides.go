package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayride/wayride-backend/internal/models"
	"github.com/wayride/wayride-backend/internal/rides"
	"gorm.io/gorm"
)

// CreateRideRequest handles a rider posting a new trip
func CreateRideRequest(engine *rides.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetUint("userId")

		var input rides.CreateRequestInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		req, err := engine.CreateRequest(riderID, input)
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(201, req)
	}
}

// ListRideRequests scopes the listing by caller role: riders see their own
// requests, drivers see the open pool, admins see everything
func ListRideRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := models.Role(c.GetString("userRole"))

		query := db.Preload("Rider").Order("created_at DESC")
		switch role {
		case models.RoleRider:
			query = query.Where("rider_id = ?", userID)
		case models.RoleDriver:
			query = query.Where("status IN ?", []string{models.RideStatusPending, models.RideStatusOffered})
		case models.RoleAdmin:
			// unrestricted
		default:
			c.JSON(403, gin.H{"error": "Insufficient permissions"})
			return
		}

		var requests []models.RideRequest
		if err := query.Find(&requests).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch ride requests"})
			return
		}

		c.JSON(200, requests)
	}
}

// GetRideRequest returns a single request with its rider and accepted offer
func GetRideRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, err := parseID(c, "id")
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride request ID"})
			return
		}

		var req models.RideRequest
		if err := db.Preload("Rider").Preload("AcceptedOffer").Preload("AcceptedOffer.Driver").
			First(&req, requestID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride request not found"})
			return
		}

		c.JSON(200, req)
	}
}

// CancelRideRequest handles a rider cancelling an open request
func CancelRideRequest(engine *rides.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetUint("userId")

		requestID, err := parseID(c, "id")
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride request ID"})
			return
		}

		req, err := engine.CancelRequest(riderID, uint(requestID))
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(200, req)
	}
}

// StartRide handles the accepted driver picking the rider up
func StartRide(engine *rides.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		requestID, err := parseID(c, "id")
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride request ID"})
			return
		}

		req, err := engine.StartRide(driverID, uint(requestID))
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(200, req)
	}
}

// CompleteRide handles the accepted driver finishing the trip
func CompleteRide(engine *rides.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		requestID, err := parseID(c, "id")
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride request ID"})
			return
		}

		req, err := engine.CompleteRide(driverID, uint(requestID))
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(200, req)
	}
}

// ActiveRide returns the caller's in-flight ride, if any
func ActiveRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := models.Role(c.GetString("userRole"))

		var req models.RideRequest
		var err error

		switch role {
		case models.RoleRider:
			err = db.Preload("Rider").Preload("AcceptedOffer").Preload("AcceptedOffer.Driver").
				Where("rider_id = ? AND status IN ?", userID, []string{
					models.RideStatusPending,
					models.RideStatusOffered,
					models.RideStatusAccepted,
					models.RideStatusInProgress,
				}).
				Order("created_at DESC").
				First(&req).Error
		case models.RoleDriver:
			err = db.Preload("Rider").Preload("AcceptedOffer").
				Joins("JOIN ride_offers ON ride_offers.id = ride_requests.accepted_offer_id").
				Where("ride_offers.driver_id = ? AND ride_requests.status IN ?", userID, []string{
					models.RideStatusAccepted,
					models.RideStatusInProgress,
				}).
				Order("ride_requests.created_at DESC").
				First(&req).Error
		default:
			c.JSON(200, nil)
			return
		}

		if err != nil {
			c.JSON(200, nil)
			return
		}
		c.JSON(200, req)
	}
}

// RideHistory lists the caller's completed-ride records, newest first
func RideHistory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := models.Role(c.GetString("userRole"))

		page, limit := pagination(c)
		offset := (page - 1) * limit

		query := db.Preload("Driver").Preload("Rider").Preload("RideRequest").
			Order("created_at DESC").
			Offset(offset).
			Limit(limit)

		switch role {
		case models.RoleRider:
			query = query.Where("rider_id = ?", userID)
		case models.RoleDriver:
			query = query.Where("driver_id = ?", userID)
		default:
			c.JSON(200, []models.CompletedRide{})
			return
		}

		var history []models.CompletedRide
		if err := query.Find(&history).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch ride history"})
			return
		}

		c.JSON(200, history)
	}
}

func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	return uint(id), err
}

func pagination(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
