// Package observability provides Prometheus metrics and OpenTelemetry spans
// for meeting store operations.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation result labels.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Degraded-load reasons.
const (
	ReasonParse         = "parse"
	ReasonBackend       = "backend"
	ReasonInvalidRecord = "invalid_record"
)

// StoreMetrics holds the Prometheus metrics for the meeting store.
type StoreMetrics struct {
	OperationsTotal        *prometheus.CounterVec
	OperationSeconds       *prometheus.HistogramVec
	DegradedLoadsTotal     *prometheus.CounterVec
	StatusTransitionsTotal *prometheus.CounterVec
	MeetingsStored         prometheus.Gauge
	EventsPublishedTotal   *prometheus.CounterVec
}

// NewStoreMetrics registers the store metrics with reg.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	factory := promauto.With(reg)

	return &StoreMetrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breeze_store_operations_total",
				Help: "Meeting store operations by outcome",
			},
			[]string{"operation", "result"},
		),
		OperationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "breeze_store_operation_seconds",
				Help:    "Meeting store operation latency",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),
		DegradedLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breeze_store_degraded_loads_total",
				Help: "Loads that fell back to an empty collection",
			},
			[]string{"reason"},
		),
		StatusTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breeze_meeting_status_transitions_total",
				Help: "Meeting status changes",
			},
			[]string{"from", "to"},
		),
		MeetingsStored: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "breeze_meetings_stored",
				Help: "Size of the meeting collection at the last load",
			},
		),
		EventsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breeze_events_published_total",
				Help: "Meeting events published by outcome",
			},
			[]string{"event_type", "result"},
		),
	}
}

// ObserveOperation records one store operation. Safe on a nil receiver.
func (m *StoreMetrics) ObserveOperation(operation, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
	m.OperationSeconds.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveDegradedLoad records a load that fell back to an empty collection.
func (m *StoreMetrics) ObserveDegradedLoad(reason string) {
	if m == nil {
		return
	}
	m.DegradedLoadsTotal.WithLabelValues(reason).Inc()
}

// ObserveTransition records a status change.
func (m *StoreMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SetMeetingsStored records the collection size.
func (m *StoreMetrics) SetMeetingsStored(n int) {
	if m == nil {
		return
	}
	m.MeetingsStored.Set(float64(n))
}

// ObserveEvent records a publish attempt.
func (m *StoreMetrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.EventsPublishedTotal.WithLabelValues(eventType, result).Inc()
}
