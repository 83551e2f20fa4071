package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/wayride/wayride-backend/internal/models"
	"gorm.io/gorm"
)

// GetProfile retrieves the user's profile, including the role-specific
// aggregate record
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		response := gin.H{
			"id":          user.ID,
			"email":       user.Email,
			"fullName":    user.FullName,
			"phoneNumber": user.PhoneNumber,
			"role":        user.Role,
			"isActive":    user.IsActive,
		}

		switch user.Role {
		case models.RoleDriver:
			var profile models.DriverProfile
			if err := db.Where("user_id = ?", userID).First(&profile).Error; err == nil {
				response["driverProfile"] = profile
			}
		case models.RoleRider:
			var profile models.RiderProfile
			if err := db.Where("user_id = ?", userID).First(&profile).Error; err == nil {
				response["riderProfile"] = profile
			}
		}

		c.JSON(200, response)
	}
}

// UpdateProfile updates the user's profile information
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			FullName    *string `json:"fullName"`
			PhoneNumber *string `json:"phoneNumber"`

			VehicleMake  *string `json:"vehicleMake"`
			VehicleModel *string `json:"vehicleModel"`
			VehicleYear  *int    `json:"vehicleYear"`
			VehicleColor *string `json:"vehicleColor"`
			LicensePlate *string `json:"licensePlate"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		if input.FullName != nil {
			user.FullName = *input.FullName
		}
		if input.PhoneNumber != nil {
			user.PhoneNumber = *input.PhoneNumber
		}
		if err := db.Save(&user).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile"})
			return
		}

		if user.Role == models.RoleDriver {
			var profile models.DriverProfile
			if err := db.Where("user_id = ?", userID).First(&profile).Error; err == nil {
				if input.VehicleMake != nil {
					profile.VehicleMake = *input.VehicleMake
				}
				if input.VehicleModel != nil {
					profile.VehicleModel = *input.VehicleModel
				}
				if input.VehicleYear != nil {
					profile.VehicleYear = input.VehicleYear
				}
				if input.VehicleColor != nil {
					profile.VehicleColor = *input.VehicleColor
				}
				if input.LicensePlate != nil {
					profile.LicensePlate = *input.LicensePlate
				}
				db.Save(&profile)
			}
		}

		c.JSON(200, gin.H{"message": "Profile updated successfully"})
	}
}
