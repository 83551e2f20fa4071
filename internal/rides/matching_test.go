package rides

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayride/wayride-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type publishedEvent struct {
	Topic string
	Type  string
	Data  map[string]interface{}
}

// recordingPublisher captures fan-out traffic for assertions
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(topic string, message []byte) {
	var env struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	json.Unmarshal(message, &env)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Type: env.Type, Data: env.Data})
}

func (p *recordingPublisher) byType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB, *recordingPublisher) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection serializes transactions the way a row lock
	// would, which is what the concurrency tests depend on
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.DriverProfile{},
		&models.RiderProfile{},
		&models.RideRequest{},
		&models.RideOffer{},
		&models.CompletedRide{},
	))

	pub := &recordingPublisher{}
	return NewEngine(db, pub), db, pub
}

func createRider(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, FullName: "Test Rider", Role: models.RoleRider, IsActive: true, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.RiderProfile{UserID: user.ID, Rating: 5.00}).Error)
	return &user
}

func createDriver(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, FullName: "Test Driver", Role: models.RoleDriver, IsActive: true, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.DriverProfile{UserID: user.ID, Rating: 5.00}).Error)
	return &user
}

func validRequestInput() CreateRequestInput {
	return CreateRequestInput{
		PickupCity:   "New York",
		PickupState:  "NY",
		PickupLat:    40.7128,
		PickupLng:    -74.0060,
		DropoffCity:  "Los Angeles",
		DropoffState: "CA",
		DropoffLat:   34.0522,
		DropoffLng:   -118.2437,
		TimeType:     models.TimeTypeImmediate,
	}
}

func TestCreateRequest(t *testing.T) {
	engine, _, pub := newTestEngine(t)
	rider := createRider(t, engine.db, "rider@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusPending, req.Status)
	assert.InDelta(t, 2445.59, req.DistanceMiles, 0.01)
	assert.InDelta(t, 1222.80, req.SuggestedPrice, 0.01)
	assert.Nil(t, req.AcceptedOfferID)
	require.NotNil(t, req.Rider)
	assert.Equal(t, rider.ID, req.Rider.ID)

	events := pub.byType(EventNewRideRequest)
	require.Len(t, events, 1)
	assert.Equal(t, TopicDriversAvailable, events[0].Topic)
}

func TestCreateRequestValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	rider := createRider(t, engine.db, "rider@example.com")

	cases := []struct {
		name   string
		mutate func(*CreateRequestInput)
	}{
		{"bad pickup latitude", func(in *CreateRequestInput) { in.PickupLat = 91 }},
		{"bad dropoff longitude", func(in *CreateRequestInput) { in.DropoffLng = -200 }},
		{"unknown time type", func(in *CreateRequestInput) { in.TimeType = "someday" }},
		{"specific without time", func(in *CreateRequestInput) { in.TimeType = models.TimeTypeSpecific }},
		{"range without bounds", func(in *CreateRequestInput) { in.TimeType = models.TimeTypeRange }},
		{"inverted range", func(in *CreateRequestInput) {
			in.TimeType = models.TimeTypeRange
			start := time.Now().Add(2 * time.Hour)
			end := time.Now().Add(time.Hour)
			in.TimeRangeStart = &start
			in.TimeRangeEnd = &end
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validRequestInput()
			tc.mutate(&input)

			_, err := engine.CreateRequest(rider.ID, input)
			require.Error(t, err)
			kind, ok := ErrKind(err)
			require.True(t, ok)
			assert.Equal(t, KindValidation, kind)
		})
	}
}

func TestSubmitOffer(t *testing.T) {
	engine, db, pub := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")
	driver := createDriver(t, db, "driver@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)

	offer, err := engine.SubmitOffer(driver.ID, SubmitOfferInput{
		RideRequestID:           req.ID,
		Price:                   950.00,
		EstimatedArrivalMinutes: 15,
		Message:                 "Leaving now",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusPending, offer.Status)

	// First offer moves the request out of pending
	var reloaded models.RideRequest
	require.NoError(t, db.First(&reloaded, req.ID).Error)
	assert.Equal(t, models.RideStatusOffered, reloaded.Status)

	events := pub.byType(EventNewOffer)
	require.Len(t, events, 1)
	assert.Equal(t, TopicRideRequest(req.ID), events[0].Topic)
}

func TestSubmitOfferDuplicate(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")
	driver := createDriver(t, db, "driver@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)

	_, err = engine.SubmitOffer(driver.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 900})
	require.NoError(t, err)

	_, err = engine.SubmitOffer(driver.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 850})
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))
}

func TestSubmitOfferClosedRequest(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")
	driverA := createDriver(t, db, "a@example.com")
	driverB := createDriver(t, db, "b@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)

	offer, err := engine.SubmitOffer(driverA.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 900})
	require.NoError(t, err)

	_, err = engine.AcceptOffer(rider.ID, offer.ID)
	require.NoError(t, err)

	_, err = engine.SubmitOffer(driverB.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 800})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestAcceptOffer(t *testing.T) {
	engine, db, pub := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")
	driverA := createDriver(t, db, "a@example.com")
	driverB := createDriver(t, db, "b@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)

	offerA, err := engine.SubmitOffer(driverA.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 20})
	require.NoError(t, err)
	offerB, err := engine.SubmitOffer(driverB.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 18})
	require.NoError(t, err)

	updated, err := engine.AcceptOffer(rider.ID, offerB.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusAccepted, updated.Status)
	require.NotNil(t, updated.AcceptedOfferID)
	assert.Equal(t, offerB.ID, *updated.AcceptedOfferID)
	require.NotNil(t, updated.Rider)

	// Winner accepted, sibling rejected
	var a, b models.RideOffer
	require.NoError(t, db.First(&a, offerA.ID).Error)
	require.NoError(t, db.First(&b, offerB.ID).Error)
	assert.Equal(t, models.OfferStatusRejected, a.Status)
	assert.Equal(t, models.OfferStatusAccepted, b.Status)

	// History row exists already, with no dropoff yet
	var completed models.CompletedRide
	require.NoError(t, db.Where("ride_request_id = ?", req.ID).First(&completed).Error)
	assert.Equal(t, driverB.ID, completed.DriverID)
	assert.Equal(t, 18.0, completed.FinalPrice)
	assert.NotNil(t, completed.PickupTime)
	assert.Nil(t, completed.DropoffTime)

	// Three independent events, in transaction order
	require.Len(t, pub.byType(EventOfferAccepted), 1)
	assert.Equal(t, TopicDriver(driverB.ID), pub.byType(EventOfferAccepted)[0].Topic)
	require.Len(t, pub.byType(EventRideCancelled), 1)
	assert.Equal(t, TopicDriversAvailable, pub.byType(EventRideCancelled)[0].Topic)
	require.Len(t, pub.byType(EventRideConfirmed), 1)
	assert.Equal(t, TopicRideRequest(req.ID), pub.byType(EventRideConfirmed)[0].Topic)
}

func TestAcceptOfferPreconditions(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")
	other := createRider(t, db, "other@example.com")
	driver := createDriver(t, db, "driver@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)
	offer, err := engine.SubmitOffer(driver.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 900})
	require.NoError(t, err)

	_, err = engine.AcceptOffer(rider.ID, offer.ID+1000)
	assert.True(t, IsNotFound(err))

	_, err = engine.AcceptOffer(other.ID, offer.ID)
	kind, ok := ErrKind(err)
	require.True(t, ok)
	assert.Equal(t, KindForbidden, kind)

	// Nothing mutated by the failed attempts
	var reloaded models.RideRequest
	require.NoError(t, db.First(&reloaded, req.ID).Error)
	assert.Equal(t, models.RideStatusOffered, reloaded.Status)
	assert.Nil(t, reloaded.AcceptedOfferID)
}

func TestAcceptOfferConcurrent(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)

	const drivers = 8
	offerIDs := make([]uint, 0, drivers)
	for i := 0; i < drivers; i++ {
		driver := createDriver(t, db, string(rune('a'+i))+"@example.com")
		offer, err := engine.SubmitOffer(driver.ID, SubmitOfferInput{RideRequestID: req.ID, Price: float64(100 + i)})
		require.NoError(t, err)
		offerIDs = append(offerIDs, offer.ID)
	}

	var wg sync.WaitGroup
	results := make(chan error, drivers)
	for _, offerID := range offerIDs {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := engine.AcceptOffer(rider.ID, id)
			results <- err
		}(offerID)
	}
	wg.Wait()
	close(results)

	// Exactly one acceptor wins; every loser observes a clean conflict
	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, drivers-1, conflicts)

	var accepted, rejected int64
	db.Model(&models.RideOffer{}).Where("ride_request_id = ? AND status = ?", req.ID, models.OfferStatusAccepted).Count(&accepted)
	db.Model(&models.RideOffer{}).Where("ride_request_id = ? AND status = ?", req.ID, models.OfferStatusRejected).Count(&rejected)
	assert.EqualValues(t, 1, accepted)
	assert.EqualValues(t, drivers-1, rejected)

	var reloaded models.RideRequest
	require.NoError(t, db.First(&reloaded, req.ID).Error)
	assert.Equal(t, models.RideStatusAccepted, reloaded.Status)
	require.NotNil(t, reloaded.AcceptedOfferID)

	var historyRows int64
	db.Model(&models.CompletedRide{}).Where("ride_request_id = ?", req.ID).Count(&historyRows)
	assert.EqualValues(t, 1, historyRows)
}

func TestCancelRequest(t *testing.T) {
	engine, db, pub := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)

	cancelled, err := engine.CancelRequest(rider.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusCancelled, cancelled.Status)

	events := pub.byType(EventRideCancelled)
	require.Len(t, events, 1)
	assert.Equal(t, TopicDriversAvailable, events[0].Topic)

	_, err = engine.CancelRequest(rider.ID, req.ID+100)
	assert.True(t, IsNotFound(err))
}

func TestCancelAcceptedRequestIsNoOp(t *testing.T) {
	engine, db, pub := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")
	driver := createDriver(t, db, "driver@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)
	offer, err := engine.SubmitOffer(driver.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 900})
	require.NoError(t, err)
	_, err = engine.AcceptOffer(rider.ID, offer.ID)
	require.NoError(t, err)

	eventsBefore := pub.count()

	result, err := engine.CancelRequest(rider.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusAccepted, result.Status)

	// No event published for the no-op
	assert.Equal(t, eventsBefore, pub.count())
}

func TestWithdrawOffer(t *testing.T) {
	engine, db, pub := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")
	driver := createDriver(t, db, "driver@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)
	offer, err := engine.SubmitOffer(driver.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 900})
	require.NoError(t, err)

	withdrawn, err := engine.WithdrawOffer(driver.ID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusWithdrawn, withdrawn.Status)

	// Last live offer gone: request falls back to pending
	var reloaded models.RideRequest
	require.NoError(t, db.First(&reloaded, req.ID).Error)
	assert.Equal(t, models.RideStatusPending, reloaded.Status)

	require.Len(t, pub.byType(EventOfferWithdrawn), 1)

	// A withdrawn offer cannot be withdrawn again or accepted
	_, err = engine.WithdrawOffer(driver.ID, offer.ID)
	assert.True(t, IsConflict(err))
	_, err = engine.AcceptOffer(rider.ID, offer.ID)
	assert.True(t, IsConflict(err))
}

func TestCompleteRide(t *testing.T) {
	engine, db, pub := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")
	driver := createDriver(t, db, "driver@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)
	offer, err := engine.SubmitOffer(driver.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 900})
	require.NoError(t, err)
	_, err = engine.AcceptOffer(rider.ID, offer.ID)
	require.NoError(t, err)

	// Only the accepted driver may complete
	stranger := createDriver(t, db, "stranger@example.com")
	_, err = engine.CompleteRide(stranger.ID, req.ID)
	kind, ok := ErrKind(err)
	require.True(t, ok)
	assert.Equal(t, KindForbidden, kind)

	completed, err := engine.CompleteRide(driver.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusCompleted, completed.Status)

	var history models.CompletedRide
	require.NoError(t, db.Where("ride_request_id = ?", req.ID).First(&history).Error)
	assert.NotNil(t, history.DropoffTime)
	assert.True(t, history.IsCompleted())

	// Both profiles' counters moved exactly once
	var driverProfile models.DriverProfile
	var riderProfile models.RiderProfile
	require.NoError(t, db.Where("user_id = ?", driver.ID).First(&driverProfile).Error)
	require.NoError(t, db.Where("user_id = ?", rider.ID).First(&riderProfile).Error)
	assert.EqualValues(t, 1, driverProfile.TotalRides)
	assert.EqualValues(t, 1, riderProfile.TotalRides)

	events := pub.byType(EventRideCompleted)
	require.Len(t, events, 1)
	assert.Equal(t, TopicRider(rider.ID), events[0].Topic)

	// Terminal state: completing again reports not found
	_, err = engine.CompleteRide(driver.ID, req.ID)
	assert.True(t, IsNotFound(err))
}

func TestStartRide(t *testing.T) {
	engine, db, pub := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")
	driver := createDriver(t, db, "driver@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)
	offer, err := engine.SubmitOffer(driver.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 900})
	require.NoError(t, err)
	_, err = engine.AcceptOffer(rider.ID, offer.ID)
	require.NoError(t, err)

	started, err := engine.StartRide(driver.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusInProgress, started.Status)
	require.Len(t, pub.byType(EventRideStarted), 1)

	// Completion works from in_progress too
	completed, err := engine.CompleteRide(driver.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusCompleted, completed.Status)
}

// Invariant: accepted_offer is set exactly when the request is at or past
// acceptance
func TestAcceptedOfferInvariant(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	rider := createRider(t, db, "rider@example.com")
	driver := createDriver(t, db, "driver@example.com")

	req, err := engine.CreateRequest(rider.ID, validRequestInput())
	require.NoError(t, err)

	check := func() {
		var r models.RideRequest
		require.NoError(t, db.First(&r, req.ID).Error)
		atOrPastAcceptance := r.Status == models.RideStatusAccepted ||
			r.Status == models.RideStatusInProgress ||
			r.Status == models.RideStatusCompleted
		assert.Equal(t, atOrPastAcceptance, r.AcceptedOfferID != nil,
			"status %s, acceptedOfferId %v", r.Status, r.AcceptedOfferID)
	}

	check()
	offer, err := engine.SubmitOffer(driver.ID, SubmitOfferInput{RideRequestID: req.ID, Price: 900})
	require.NoError(t, err)
	check()
	_, err = engine.AcceptOffer(rider.ID, offer.ID)
	require.NoError(t, err)
	check()
	_, err = engine.StartRide(driver.ID, req.ID)
	require.NoError(t, err)
	check()
	_, err = engine.CompleteRide(driver.ID, req.ID)
	require.NoError(t, err)
	check()
}
