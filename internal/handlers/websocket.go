package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayride/wayride-backend/internal/rides"
	"github.com/wayride/wayride-backend/internal/services"
)

// DriverWebSocket opens a driver's live channel. Connecting joins the
// driver pool and the driver's personal topic and flips their availability
// flag; disconnecting undoes both.
func DriverWebSocket(hub *services.Hub, engine *rides.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")
		role := c.GetString("userRole")

		topics := []string{
			rides.TopicDriversAvailable,
			rides.TopicDriver(driverID),
		}

		engine.SetDriverAvailability(driverID, true)
		services.SetDriverAvailability(context.Background(), driverID, true)

		services.HandleWebSocket(hub, c.Writer, c.Request, driverID, role, topics, func() {
			engine.SetDriverAvailability(driverID, false)
			services.SetDriverAvailability(context.Background(), driverID, false)
		})
	}
}

// RiderWebSocket opens a rider's live channel scoped to one ride request
func RiderWebSocket(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := c.GetUint("userId")
		role := c.GetString("userRole")

		requestID, err := strconv.ParseUint(c.Param("rideRequestId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride request ID"})
			return
		}

		topics := []string{
			rides.TopicRideRequest(uint(requestID)),
			rides.TopicRider(riderID),
		}

		services.HandleWebSocket(hub, c.Writer, c.Request, riderID, role, topics, nil)
	}
}
