package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-formwizard/pkg/events"
)

// Metrics provides observability for a wizard session. It is fed entirely
// from the event bus.
type Metrics struct {
	StepActivations   *prometheus.CounterVec
	DisclosureChanges prometheus.Counter
	Ineligible        prometheus.Gauge
	EntityChanges     *prometheus.CounterVec
	StoreWrites       *prometheus.CounterVec
	StoreTeardowns    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		StepActivations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formwizard_step_activations_total",
			Help: "Total number of step activations by step index",
		}, []string{"step"}),
		DisclosureChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "formwizard_disclosure_changes_total",
			Help: "Total number of disclosure cascades run",
		}),
		Ineligible: factory.NewGauge(prometheus.GaugeOpts{
			Name: "formwizard_ineligible",
			Help: "1 while an out condition holds, 0 otherwise",
		}),
		EntityChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formwizard_entity_changes_total",
			Help: "Total number of entity collection mutations",
		}, []string{"collection", "op"}),
		StoreWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formwizard_store_writes_total",
			Help: "Total number of session store writes by owner",
		}, []string{"owner"}),
		StoreTeardowns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formwizard_store_teardowns_total",
			Help: "Total number of session teardowns, split by whether forwarding kept the records",
		}, []string{"suppressed"}),
	}
}

// Observe updates the collectors for ev. It is an events.Handler.
func (m *Metrics) Observe(ev events.Event) {
	switch e := ev.(type) {
	case events.StepActivated:
		m.StepActivations.WithLabelValues(strconv.Itoa(e.Index)).Inc()
	case events.DisclosureChanged:
		m.DisclosureChanges.Inc()
	case events.EligibilityChanged:
		if e.Ineligible {
			m.Ineligible.Set(1)
		} else {
			m.Ineligible.Set(0)
		}
	case events.EntityChanged:
		m.EntityChanges.WithLabelValues(e.Collection, string(e.Op)).Inc()
	case events.RecordSaved:
		m.StoreWrites.WithLabelValues(e.Owner).Inc()
	case events.StoreTeardown:
		m.StoreTeardowns.WithLabelValues(strconv.FormatBool(e.Suppressed)).Inc()
	}
}

// Attach subscribes the collectors to every event on bus. The returned
// function detaches them.
func (m *Metrics) Attach(bus *events.Bus) (cancel func()) {
	return bus.SubscribeAll(m.Observe)
}
