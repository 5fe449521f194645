package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_transitions_total",
			Help: "Checkout state machine transitions by target step",
		},
		[]string{"step"},
	)

	checkoutOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_outcomes_total",
			Help: "Finished checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	signingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticket_signing_duration_seconds",
			Help:    "Time spent waiting for the signer",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"result"},
	)

	storeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_store_operations_total",
			Help: "Ticket store operations",
		},
		[]string{"operation", "status"},
	)

	storedTickets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickets_stored_total",
			Help: "Tickets currently held in the ticket store",
		},
	)

	redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_redemptions_total",
			Help: "Redemption attempts by result",
		},
		[]string{"result"},
	)
)

// Monitor records service metrics. A nil *Monitor is valid and records
// nothing.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) TrackCheckoutStep(step string) {
	if m == nil {
		return
	}
	checkoutTransitions.WithLabelValues(step).Inc()
}

func (m *Monitor) TrackCheckoutOutcome(outcome string) {
	if m == nil {
		return
	}
	checkoutOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Monitor) TrackSigning(result string, duration time.Duration) {
	if m == nil {
		return
	}
	signingDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func (m *Monitor) TrackStoreOperation(operation, status string) {
	if m == nil {
		return
	}
	storeOperations.WithLabelValues(operation, status).Inc()
}

func (m *Monitor) SetStoredTickets(n int) {
	if m == nil {
		return
	}
	storedTickets.Set(float64(n))
}

func (m *Monitor) TrackRedemption(result string) {
	if m == nil {
		return
	}
	redemptions.WithLabelValues(result).Inc()
}
