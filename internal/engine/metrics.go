package engine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/rotex-can-core/internal/derived"
	"github.com/nerrad567/rotex-can-core/internal/entity"
)

const metricsNamespace = "rotexcan"

// Metrics holds the engine's Prometheus collectors. It satisfies
// registry.Observer.
type Metrics struct {
	requests   *prometheus.CounterVec
	timeouts   *prometheus.CounterVec
	routed     *prometheus.CounterVec
	unhandled  *prometheus.CounterVec
	dispatched *prometheus.CounterVec
	faults     *prometheus.CounterVec
	regulator  prometheus.Counter
	custom     prometheus.Counter
	values     *prometheus.GaugeVec
	overdue    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_sent_total",
			Help:      "Poll requests sent per entity.",
		}, []string{"entity"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "request_timeouts_total",
			Help:      "Poll requests abandoned without an answer.",
		}, []string{"entity"}),
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_routed_total",
			Help:      "Inbound frames matched to an entity.",
		}, []string{"entity"}),
		unhandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_unhandled_total",
			Help:      "Inbound frames no entity claimed, by CAN id.",
		}, []string{"can_id"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "values_dispatched_total",
			Help:      "Values written to the controller.",
		}, []string{"entity"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "faults_confirmed_total",
			Help:      "Plant faults confirmed by the debouncers.",
		}, []string{"fault"}),
		regulator: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "regulator_adjustments_total",
			Help:      "Max flow temperature writes issued by the regulator.",
		}),
		custom: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "custom_requests_total",
			Help:      "Freeform frames sent on operator request.",
		}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "entity_value",
			Help:      "Latest numeric or boolean entity value.",
		}, []string{"entity"}),
		overdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "entities_due",
			Help:      "Entities waiting for a poll request.",
		}),
	}
	reg.MustRegister(m.requests, m.timeouts, m.routed, m.unhandled, m.dispatched,
		m.faults, m.regulator, m.custom, m.values, m.overdue)
	return m
}

func (m *Metrics) RequestSent(id string)     { m.requests.WithLabelValues(id).Inc() }
func (m *Metrics) RequestTimedOut(id string) { m.timeouts.WithLabelValues(id).Inc() }
func (m *Metrics) FrameRouted(id string)     { m.routed.WithLabelValues(id).Inc() }
func (m *Metrics) ValueDispatched(id string) { m.dispatched.WithLabelValues(id).Inc() }

func (m *Metrics) FrameUnhandled(canID uint32) {
	m.unhandled.WithLabelValues(fmt.Sprintf("0x%03X", canID)).Inc()
}

// ObserveValue records numeric and boolean values; text is ignored.
func (m *Metrics) ObserveValue(id string, v entity.Value) {
	if v.Type() == entity.TypeString {
		return
	}
	if f, ok := v.Float(); ok {
		m.values.WithLabelValues(id).Set(f)
	}
}

func (m *Metrics) FaultConfirmed(f derived.Fault) { m.faults.WithLabelValues(string(f)).Inc() }
func (m *Metrics) RegulatorAdjusted()             { m.regulator.Inc() }
func (m *Metrics) CustomSent()                    { m.custom.Inc() }
func (m *Metrics) SetDue(n int)                   { m.overdue.Set(float64(n)) }
