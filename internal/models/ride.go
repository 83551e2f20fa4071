package models

import (
	"time"

	"gorm.io/gorm"
)

// RideRequest represents a rider's posted trip
type RideRequest struct {
	gorm.Model
	RiderID uint `json:"riderId" gorm:"not null;index"`

	PickupCity  string  `json:"pickupCity" gorm:"not null"`
	PickupState string  `json:"pickupState" gorm:"not null"`
	PickupLat   float64 `json:"pickupLat" gorm:"not null"`
	PickupLng   float64 `json:"pickupLng" gorm:"not null"`

	DropoffCity  string  `json:"dropoffCity" gorm:"not null"`
	DropoffState string  `json:"dropoffState" gorm:"not null"`
	DropoffLat   float64 `json:"dropoffLat" gorm:"not null"`
	DropoffLng   float64 `json:"dropoffLng" gorm:"not null"`

	DistanceMiles  float64 `json:"distanceMiles" gorm:"not null"`
	SuggestedPrice float64 `json:"suggestedPrice" gorm:"not null"`

	TimeType       string     `json:"timeType" gorm:"not null"` // immediate, specific, range
	RequestedTime  *time.Time `json:"requestedTime,omitempty"`
	TimeRangeStart *time.Time `json:"timeRangeStart,omitempty"`
	TimeRangeEnd   *time.Time `json:"timeRangeEnd,omitempty"`

	Status          string     `json:"status" gorm:"not null;default:'pending'"` // pending, offered, accepted, in_progress, completed, cancelled
	AcceptedOfferID *uint      `json:"acceptedOfferId,omitempty" gorm:"null"`
	AcceptedOffer   *RideOffer `json:"acceptedOffer,omitempty" gorm:"foreignKey:AcceptedOfferID"`

	Rider  *User       `json:"rider,omitempty" gorm:"foreignKey:RiderID"`
	Offers []RideOffer `json:"offers,omitempty" gorm:"foreignKey:RideRequestID"`
}

// TableName specifies the table name
func (RideRequest) TableName() string {
	return "ride_requests"
}

// RideOffer represents a driver's bid against a RideRequest.
// A driver may hold at most one offer per request, enforced by the
// composite unique index rather than a read-then-write check.
type RideOffer struct {
	gorm.Model
	RideRequestID uint `json:"rideRequestId" gorm:"not null;uniqueIndex:idx_offer_request_driver"`
	DriverID      uint `json:"driverId" gorm:"not null;uniqueIndex:idx_offer_request_driver"`

	Price                   float64 `json:"price" gorm:"not null"`
	EstimatedArrivalMinutes int     `json:"estimatedArrivalMinutes" gorm:"not null;default:0"`
	Message                 string  `json:"message,omitempty"`

	Status string `json:"status" gorm:"not null;default:'pending'"` // pending, accepted, rejected, withdrawn

	Driver      *User        `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	RideRequest *RideRequest `json:"rideRequest,omitempty" gorm:"foreignKey:RideRequestID"`
}

// TableName specifies the table name
func (RideOffer) TableName() string {
	return "ride_offers"
}

// CompletedRide is the history row for a matched ride. It is created the
// moment an offer is accepted, so a driver's history shows rides still
// underway; DropoffTime stays null until the driver completes the trip.
type CompletedRide struct {
	gorm.Model
	RideRequestID uint `json:"rideRequestId" gorm:"not null;uniqueIndex"`
	DriverID      uint `json:"driverId" gorm:"not null;index"`
	RiderID       uint `json:"riderId" gorm:"not null;index"`

	FinalPrice    float64 `json:"finalPrice" gorm:"not null"`
	DistanceMiles float64 `json:"distanceMiles" gorm:"not null"`

	PickupTime  *time.Time `json:"pickupTime,omitempty"`
	DropoffTime *time.Time `json:"dropoffTime,omitempty"`

	DriverRating *int   `json:"driverRating,omitempty" gorm:"check:driver_rating >= 1 AND driver_rating <= 5"`
	RiderRating  *int   `json:"riderRating,omitempty" gorm:"check:rider_rating >= 1 AND rider_rating <= 5"`
	ReviewText   string `json:"reviewText,omitempty"`

	Driver      *User        `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	Rider       *User        `json:"rider,omitempty" gorm:"foreignKey:RiderID"`
	RideRequest *RideRequest `json:"rideRequest,omitempty" gorm:"foreignKey:RideRequestID"`
}

// TableName specifies the table name
func (CompletedRide) TableName() string {
	return "completed_rides"
}

// IsCompleted reports whether the trip itself has finished
func (r *CompletedRide) IsCompleted() bool {
	return r.DropoffTime != nil
}

// RideRequest status constants
const (
	RideStatusPending    = "pending"
	RideStatusOffered    = "offered"
	RideStatusAccepted   = "accepted"
	RideStatusInProgress = "in_progress"
	RideStatusCompleted  = "completed"
	RideStatusCancelled  = "cancelled"
)

// RideOffer status constants
const (
	OfferStatusPending   = "pending"
	OfferStatusAccepted  = "accepted"
	OfferStatusRejected  = "rejected"
	OfferStatusWithdrawn = "withdrawn"
)

// Requested-time mode constants
const (
	TimeTypeImmediate = "immediate"
	TimeTypeSpecific  = "specific"
	TimeTypeRange     = "range"
)
