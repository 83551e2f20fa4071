package rides

import (
	"log"

	"github.com/wayride/wayride-backend/internal/models"
	"github.com/wayride/wayride-backend/internal/observability"
)

// SetDriverAvailability flips the availability flag on a driver's profile
// when their live channel opens or closes. Presence is advisory, so a
// missing profile or a failed write is logged and swallowed rather than
// propagated to the connection handler.
func (e *Engine) SetDriverAvailability(driverID uint, available bool) {
	err := e.db.Model(&models.DriverProfile{}).
		Where("user_id = ?", driverID).
		Update("is_available", available).Error
	if err != nil {
		log.Printf("Failed to update availability for driver %d: %v", driverID, err)
		return
	}

	if available {
		observability.DriversOnline.Inc()
	} else {
		observability.DriversOnline.Dec()
	}
}
