package rides

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/wayride/wayride-backend/internal/models"
)

// Publisher is the fan-out contract the engine needs: fire-and-forget
// delivery of a payload to every live subscriber of a topic.
type Publisher interface {
	Publish(topic string, message []byte)
}

// Event type constants
const (
	EventNewRideRequest = "new_ride_request"
	EventNewOffer       = "new_offer"
	EventOfferAccepted  = "offer_accepted"
	EventOfferWithdrawn = "offer_withdrawn"
	EventRideConfirmed  = "ride_confirmed"
	EventRideCancelled  = "ride_cancelled"
	EventRideStarted    = "ride_started"
	EventRideCompleted  = "ride_completed"
)

// Fan-out topic names. Driver-pool is a single shared topic; the rest are
// scoped per ride request or per user.
const TopicDriversAvailable = "drivers_available"

func TopicRideRequest(id uint) string {
	return fmt.Sprintf("ride_request:%d", id)
}

func TopicDriver(id uint) string {
	return fmt.Sprintf("driver:%d", id)
}

func TopicRider(id uint) string {
	return fmt.Sprintf("rider:%d", id)
}

// Event is the envelope delivered to live subscribers
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// publish marshals an event envelope and hands it to the fan-out layer.
// Called only after the triggering transaction has committed.
func (e *Engine) publish(topic, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("Error marshaling %s event: %v", eventType, err)
		return
	}
	e.pub.Publish(topic, payload)
}

// rideSummary is the ride-request record shared with subscribers
func rideSummary(req *models.RideRequest) map[string]interface{} {
	summary := map[string]interface{}{
		"id":              req.ID,
		"riderId":         req.RiderID,
		"pickupCity":      req.PickupCity,
		"pickupState":     req.PickupState,
		"pickupLat":       req.PickupLat,
		"pickupLng":       req.PickupLng,
		"dropoffCity":     req.DropoffCity,
		"dropoffState":    req.DropoffState,
		"dropoffLat":      req.DropoffLat,
		"dropoffLng":      req.DropoffLng,
		"distanceMiles":   req.DistanceMiles,
		"suggestedPrice":  req.SuggestedPrice,
		"timeType":        req.TimeType,
		"requestedTime":   req.RequestedTime,
		"timeRangeStart":  req.TimeRangeStart,
		"timeRangeEnd":    req.TimeRangeEnd,
		"status":          req.Status,
		"acceptedOfferId": req.AcceptedOfferID,
		"createdAt":       req.CreatedAt,
	}
	if req.Rider != nil {
		summary["rider"] = userSummary(req.Rider)
	}
	return summary
}

// offerSummary is the offer record shared with subscribers
func offerSummary(offer *models.RideOffer) map[string]interface{} {
	summary := map[string]interface{}{
		"id":                      offer.ID,
		"rideRequestId":           offer.RideRequestID,
		"driverId":                offer.DriverID,
		"price":                   offer.Price,
		"estimatedArrivalMinutes": offer.EstimatedArrivalMinutes,
		"message":                 offer.Message,
		"status":                  offer.Status,
		"createdAt":               offer.CreatedAt,
	}
	if offer.Driver != nil {
		summary["driver"] = userSummary(offer.Driver)
	}
	return summary
}

func userSummary(user *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":          user.ID,
		"fullName":    user.FullName,
		"phoneNumber": user.PhoneNumber,
		"role":        user.Role,
	}
}
