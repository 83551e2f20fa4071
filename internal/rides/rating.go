package rides

import (
	"errors"
	"log"
	"math"

	"github.com/wayride/wayride-backend/internal/models"
	"gorm.io/gorm"
)

// SubmitRating stores a rider's one-shot rating of a finished ride and
// refreshes the driver's aggregate. Double-rating is fenced off by a
// compare-and-swap keyed on "rating currently null", the same discipline
// AcceptOffer uses for its status column.
func (e *Engine) SubmitRating(riderID uint, completedRideID uint, rating int, reviewText string) (*models.CompletedRide, error) {
	if rating < 1 || rating > 5 {
		return nil, validationErr("rating must be between 1 and 5")
	}

	var ride models.CompletedRide
	err := e.db.Where("id = ? AND rider_id = ?", completedRideID, riderID).First(&ride).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("ride not found")
		}
		return nil, err
	}

	if ride.DropoffTime == nil {
		return nil, conflictErr("ride is not completed yet")
	}
	if ride.DriverRating != nil {
		return nil, conflictErr("ride already rated")
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CompletedRide{}).
			Where("id = ? AND driver_rating IS NULL", ride.ID).
			Updates(map[string]interface{}{
				"driver_rating": rating,
				"review_text":   reviewText,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictErr("ride already rated")
		}

		return e.recomputeDriverRating(tx, ride.DriverID)
	})
	if err != nil {
		return nil, err
	}

	ride.DriverRating = &rating
	ride.ReviewText = reviewText
	if err := e.db.Preload("Driver").Preload("RideRequest").First(&ride, ride.ID).Error; err != nil {
		log.Printf("Failed to reload completed ride %d: %v", ride.ID, err)
	}
	return &ride, nil
}

// recomputeDriverRating recalculates the unweighted mean of every non-null
// rating across the driver's rides, from scratch. O(n) per submission,
// matching the documented aggregation semantics.
func (e *Engine) recomputeDriverRating(tx *gorm.DB, driverID uint) error {
	var ratings []int
	if err := tx.Model(&models.CompletedRide{}).
		Where("driver_id = ? AND driver_rating IS NOT NULL", driverID).
		Pluck("driver_rating", &ratings).Error; err != nil {
		return err
	}

	// Documented default when no ratings exist
	average := 5.00
	if len(ratings) > 0 {
		sum := 0
		for _, r := range ratings {
			sum += r
		}
		average = math.Round(float64(sum)/float64(len(ratings))*100) / 100
	}

	return tx.Model(&models.DriverProfile{}).
		Where("user_id = ?", driverID).
		Update("rating", average).Error
}

// PendingRatings lists the rider's finished-but-unrated rides
func (e *Engine) PendingRatings(riderID uint) ([]models.CompletedRide, error) {
	var rides []models.CompletedRide
	err := e.db.Preload("Driver").Preload("RideRequest").
		Where("rider_id = ? AND driver_rating IS NULL AND dropoff_time IS NOT NULL", riderID).
		Order("created_at DESC").
		Find(&rides).Error
	return rides, err
}
