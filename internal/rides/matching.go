package rides

import (
	"errors"
	"log"
	"time"

	"github.com/wayride/wayride-backend/internal/models"
	"github.com/wayride/wayride-backend/internal/observability"
	"github.com/wayride/wayride-backend/pkg/utils"
	"gorm.io/gorm"
)

// Engine owns the ride-request/offer state machine. All mutations run
// through ledger transactions; events go out only after commit, so a slow
// subscriber can never hold up a state transition.
type Engine struct {
	db  *gorm.DB
	pub Publisher
}

// NewEngine creates a matching engine on top of the given ledger and fan-out
func NewEngine(db *gorm.DB, pub Publisher) *Engine {
	return &Engine{db: db, pub: pub}
}

// CreateRequestInput carries the rider-supplied fields for a new trip
type CreateRequestInput struct {
	PickupCity   string  `json:"pickupCity" binding:"required"`
	PickupState  string  `json:"pickupState" binding:"required"`
	PickupLat    float64 `json:"pickupLat"`
	PickupLng    float64 `json:"pickupLng"`
	DropoffCity  string  `json:"dropoffCity" binding:"required"`
	DropoffState string  `json:"dropoffState" binding:"required"`
	DropoffLat   float64 `json:"dropoffLat"`
	DropoffLng   float64 `json:"dropoffLng"`

	TimeType       string     `json:"timeType" binding:"required"`
	RequestedTime  *time.Time `json:"requestedTime,omitempty"`
	TimeRangeStart *time.Time `json:"timeRangeStart,omitempty"`
	TimeRangeEnd   *time.Time `json:"timeRangeEnd,omitempty"`
}

func (in *CreateRequestInput) validate() error {
	if !utils.IsValidCoordinate(in.PickupLat, in.PickupLng) {
		return validationErr("invalid pickup coordinates")
	}
	if !utils.IsValidCoordinate(in.DropoffLat, in.DropoffLng) {
		return validationErr("invalid dropoff coordinates")
	}

	switch in.TimeType {
	case models.TimeTypeImmediate:
	case models.TimeTypeSpecific:
		if in.RequestedTime == nil {
			return validationErr("requestedTime is required for a specific-time ride")
		}
	case models.TimeTypeRange:
		if in.TimeRangeStart == nil || in.TimeRangeEnd == nil {
			return validationErr("timeRangeStart and timeRangeEnd are required for a time-range ride")
		}
		if !in.TimeRangeStart.Before(*in.TimeRangeEnd) {
			return validationErr("timeRangeStart must be before timeRangeEnd")
		}
	default:
		return validationErr("invalid timeType %q", in.TimeType)
	}
	return nil
}

// CreateRequest computes distance and suggested price, persists a pending
// request and announces it to the driver pool.
func (e *Engine) CreateRequest(riderID uint, in CreateRequestInput) (*models.RideRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	distance := utils.HaversineMiles(in.PickupLat, in.PickupLng, in.DropoffLat, in.DropoffLng)

	req := models.RideRequest{
		RiderID:        riderID,
		PickupCity:     in.PickupCity,
		PickupState:    in.PickupState,
		PickupLat:      in.PickupLat,
		PickupLng:      in.PickupLng,
		DropoffCity:    in.DropoffCity,
		DropoffState:   in.DropoffState,
		DropoffLat:     in.DropoffLat,
		DropoffLng:     in.DropoffLng,
		DistanceMiles:  distance,
		SuggestedPrice: utils.SuggestedPrice(distance),
		TimeType:       in.TimeType,
		RequestedTime:  in.RequestedTime,
		TimeRangeStart: in.TimeRangeStart,
		TimeRangeEnd:   in.TimeRangeEnd,
		Status:         models.RideStatusPending,
	}

	if err := e.db.Create(&req).Error; err != nil {
		return nil, err
	}

	if err := e.db.Preload("Rider").First(&req, req.ID).Error; err != nil {
		log.Printf("Failed to reload ride request %d: %v", req.ID, err)
	}
	observability.RideRequestsCreated.Inc()

	e.publish(TopicDriversAvailable, EventNewRideRequest, rideSummary(&req))
	return &req, nil
}

// SubmitOfferInput carries the driver-supplied fields for a bid
type SubmitOfferInput struct {
	RideRequestID           uint    `json:"rideRequestId" binding:"required"`
	Price                   float64 `json:"price" binding:"required"`
	EstimatedArrivalMinutes int     `json:"estimatedArrivalMinutes"`
	Message                 string  `json:"message,omitempty"`
}

// SubmitOffer records a driver's bid. The (request, driver) uniqueness is
// enforced by the ledger's composite key, not a read-then-write check.
func (e *Engine) SubmitOffer(driverID uint, in SubmitOfferInput) (*models.RideOffer, error) {
	if in.Price <= 0 {
		return nil, validationErr("price must be positive")
	}
	if in.EstimatedArrivalMinutes < 0 {
		return nil, validationErr("estimatedArrivalMinutes must be non-negative")
	}

	var req models.RideRequest
	if err := e.db.First(&req, in.RideRequestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("ride request not found")
		}
		return nil, err
	}

	if req.Status != models.RideStatusPending && req.Status != models.RideStatusOffered {
		return nil, conflictErr("this ride is no longer accepting offers")
	}

	offer := models.RideOffer{
		RideRequestID:           req.ID,
		DriverID:                driverID,
		Price:                   in.Price,
		EstimatedArrivalMinutes: in.EstimatedArrivalMinutes,
		Message:                 in.Message,
		Status:                  models.OfferStatusPending,
	}

	if err := e.db.Create(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, duplicateErr("you already have an offer on this ride")
		}
		return nil, err
	}

	// First offer moves the request out of pending; concurrent submitters
	// racing here is harmless since the target state is identical.
	e.db.Model(&models.RideRequest{}).
		Where("id = ? AND status = ?", req.ID, models.RideStatusPending).
		Update("status", models.RideStatusOffered)

	if err := e.db.Preload("Driver").First(&offer, offer.ID).Error; err != nil {
		log.Printf("Failed to reload offer %d: %v", offer.ID, err)
	}
	observability.OffersSubmitted.Inc()

	e.publish(TopicRideRequest(req.ID), EventNewOffer, offerSummary(&offer))
	return &offer, nil
}

// AcceptOffer is the critical section of the marketplace: many drivers'
// offers may race to acceptance but exactly one can win. The whole
// read-check-mutate sequence runs in one ledger transaction, and the
// request's status transition is a compare-and-swap: the loser of a race
// observes zero affected rows and backs out with a conflict, never a
// partial write.
func (e *Engine) AcceptOffer(riderID uint, offerID uint) (*models.RideRequest, error) {
	var offer models.RideOffer
	var req models.RideRequest

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Driver").First(&offer, offerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("offer not found")
			}
			return err
		}

		if err := tx.First(&req, offer.RideRequestID).Error; err != nil {
			return err
		}

		if req.RiderID != riderID {
			return forbiddenErr("not your ride")
		}

		if offer.Status == models.OfferStatusWithdrawn {
			return conflictErr("offer has been withdrawn")
		}

		res := tx.Model(&models.RideRequest{}).
			Where("id = ? AND status IN ?", req.ID, []string{models.RideStatusPending, models.RideStatusOffered}).
			Updates(map[string]interface{}{
				"status":            models.RideStatusAccepted,
				"accepted_offer_id": offer.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictErr("ride already accepted")
		}

		if err := tx.Model(&offer).Update("status", models.OfferStatusAccepted).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.RideOffer{}).
			Where("ride_request_id = ? AND id <> ? AND status = ?", req.ID, offer.ID, models.OfferStatusPending).
			Update("status", models.OfferStatusRejected).Error; err != nil {
			return err
		}

		// History row is created at acceptance, not completion, so a
		// driver's history shows rides still underway.
		now := time.Now().UTC()
		completed := models.CompletedRide{
			RideRequestID: req.ID,
			DriverID:      offer.DriverID,
			RiderID:       req.RiderID,
			FinalPrice:    offer.Price,
			DistanceMiles: req.DistanceMiles,
			PickupTime:    &now,
		}
		return tx.Create(&completed).Error
	})
	if err != nil {
		if IsConflict(err) {
			observability.AcceptConflicts.Inc()
		}
		return nil, err
	}

	req.Status = models.RideStatusAccepted
	req.AcceptedOfferID = &offer.ID
	if err := e.db.Preload("Rider").First(&req, req.ID).Error; err != nil {
		log.Printf("Failed to reload ride request %d: %v", req.ID, err)
	}
	observability.OffersAccepted.Inc()

	summary := rideSummary(&req)
	e.publish(TopicDriver(offer.DriverID), EventOfferAccepted, summary)
	e.publish(TopicDriversAvailable, EventRideCancelled, map[string]interface{}{
		"rideRequestId": req.ID,
	})
	e.publish(TopicRideRequest(req.ID), EventRideConfirmed, map[string]interface{}{
		"rideRequest": summary,
		"driver":      userSummary(offer.Driver),
		"price":       offer.Price,
	})

	return &req, nil
}

// WithdrawOffer lets a driver pull a still-pending bid. If it was the last
// live offer the request falls back to pending.
func (e *Engine) WithdrawOffer(driverID uint, offerID uint) (*models.RideOffer, error) {
	var offer models.RideOffer
	if err := e.db.First(&offer, offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("offer not found")
		}
		return nil, err
	}

	if offer.DriverID != driverID {
		return nil, forbiddenErr("not your offer")
	}

	res := e.db.Model(&models.RideOffer{}).
		Where("id = ? AND status = ?", offer.ID, models.OfferStatusPending).
		Update("status", models.OfferStatusWithdrawn)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, conflictErr("offer is no longer open")
	}
	offer.Status = models.OfferStatusWithdrawn

	var remaining int64
	e.db.Model(&models.RideOffer{}).
		Where("ride_request_id = ? AND status = ?", offer.RideRequestID, models.OfferStatusPending).
		Count(&remaining)
	if remaining == 0 {
		e.db.Model(&models.RideRequest{}).
			Where("id = ? AND status = ?", offer.RideRequestID, models.RideStatusOffered).
			Update("status", models.RideStatusPending)
	}

	e.publish(TopicRideRequest(offer.RideRequestID), EventOfferWithdrawn, map[string]interface{}{
		"offerId": offer.ID,
	})
	return &offer, nil
}

// CancelRequest moves a pending or offered request to cancelled. Anything
// already accepted is left untouched: cancellation past acceptance is a
// silent no-op and publishes nothing.
func (e *Engine) CancelRequest(riderID uint, requestID uint) (*models.RideRequest, error) {
	var req models.RideRequest
	if err := e.db.Where("id = ? AND rider_id = ?", requestID, riderID).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("ride request not found")
		}
		return nil, err
	}

	if req.Status != models.RideStatusPending && req.Status != models.RideStatusOffered {
		return &req, nil
	}

	res := e.db.Model(&models.RideRequest{}).
		Where("id = ? AND status IN ?", req.ID, []string{models.RideStatusPending, models.RideStatusOffered}).
		Update("status", models.RideStatusCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost a race against acceptance; treat as the no-op branch
		e.db.First(&req, req.ID)
		return &req, nil
	}
	req.Status = models.RideStatusCancelled

	e.publish(TopicDriversAvailable, EventRideCancelled, map[string]interface{}{
		"rideRequestId": req.ID,
	})
	return &req, nil
}

// StartRide moves an accepted request to in_progress. Only the driver whose
// offer was accepted may start the trip.
func (e *Engine) StartRide(driverID uint, requestID uint) (*models.RideRequest, error) {
	req, err := e.assignedRequest(driverID, requestID, []string{models.RideStatusAccepted})
	if err != nil {
		return nil, err
	}

	res := e.db.Model(&models.RideRequest{}).
		Where("id = ? AND status = ?", req.ID, models.RideStatusAccepted).
		Update("status", models.RideStatusInProgress)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, conflictErr("ride is not awaiting pickup")
	}
	req.Status = models.RideStatusInProgress

	e.publish(TopicRideRequest(req.ID), EventRideStarted, rideSummary(req))
	return req, nil
}

// CompleteRide finishes the trip: the request goes terminal, the history
// row gets its dropoff time and both profiles' ride counters move, all in
// one transaction. The rider is then told on their personal topic.
func (e *Engine) CompleteRide(driverID uint, requestID uint) (*models.RideRequest, error) {
	active := []string{models.RideStatusAccepted, models.RideStatusInProgress}
	req, err := e.assignedRequest(driverID, requestID, active)
	if err != nil {
		return nil, err
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RideRequest{}).
			Where("id = ? AND status IN ?", req.ID, active).
			Update("status", models.RideStatusCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictErr("ride is not in progress")
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.CompletedRide{}).
			Where("ride_request_id = ? AND dropoff_time IS NULL", req.ID).
			Update("dropoff_time", now).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.DriverProfile{}).
			Where("user_id = ?", driverID).
			Update("total_rides", gorm.Expr("total_rides + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.RiderProfile{}).
			Where("user_id = ?", req.RiderID).
			Update("total_rides", gorm.Expr("total_rides + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	req.Status = models.RideStatusCompleted
	if err := e.db.Preload("Rider").First(req, req.ID).Error; err != nil {
		log.Printf("Failed to reload ride request %d: %v", req.ID, err)
	}
	observability.RidesCompleted.Inc()

	e.publish(TopicRider(req.RiderID), EventRideCompleted, rideSummary(req))
	return req, nil
}

// assignedRequest loads a request in one of the wanted states and verifies
// the caller is the driver behind its accepted offer
func (e *Engine) assignedRequest(driverID, requestID uint, statuses []string) (*models.RideRequest, error) {
	var req models.RideRequest
	err := e.db.Preload("AcceptedOffer").
		Where("id = ? AND status IN ?", requestID, statuses).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("ride not found")
		}
		return nil, err
	}

	if req.AcceptedOffer == nil || req.AcceptedOffer.DriverID != driverID {
		return nil, forbiddenErr("not your ride")
	}
	return &req, nil
}
