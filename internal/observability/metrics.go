package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RideRequestsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: "wayride", Name: "ride_requests_created_total", Help: "Total ride requests posted by riders"})
	OffersSubmitted     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "wayride", Name: "offers_submitted_total", Help: "Total driver offers submitted"})
	OffersAccepted      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "wayride", Name: "offers_accepted_total", Help: "Total offers accepted by riders"})
	AcceptConflicts     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "wayride", Name: "accept_conflicts_total", Help: "Accept attempts that lost the acceptance race"})
	RidesCompleted      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "wayride", Name: "rides_completed_total", Help: "Total rides driven to completion"})
	DriversOnline       = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "wayride", Name: "drivers_online", Help: "Drivers currently marked available"})
	ConnectedClients    = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "wayride", Name: "ws_connected_clients", Help: "Live WebSocket connections"})
)
