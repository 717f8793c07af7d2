package metrics_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/events"
	"github.com/goliatone/go-formwizard/pkg/intake"
	"github.com/goliatone/go-formwizard/pkg/metrics"
)

func TestMetrics_ObserveEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	bus := events.NewBus()
	cancel := m.Attach(bus)

	bus.Publish(events.StepActivated{Index: 1, Previous: 0})
	bus.Publish(events.StepActivated{Index: 1, Previous: 2})
	bus.Publish(events.DisclosureChanged{Control: "s1q1-op2"})
	bus.Publish(events.EligibilityChanged{Ineligible: true, Step: 1})
	bus.Publish(events.EntityChanged{Collection: "mailRecipients", Op: events.EntityAdded, Ref: "0", Count: 1})
	bus.Publish(events.RecordSaved{Key: "currentStep", Owner: "navigator"})
	bus.Publish(events.StoreTeardown{Suppressed: true})

	if got := testutil.ToFloat64(m.StepActivations.WithLabelValues("1")); got != 2 {
		t.Errorf("step activations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.DisclosureChanges); got != 1 {
		t.Errorf("disclosure changes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Ineligible); got != 1 {
		t.Errorf("ineligible = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EntityChanges.WithLabelValues("mailRecipients", "add")); got != 1 {
		t.Errorf("entity changes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StoreWrites.WithLabelValues("navigator")); got != 1 {
		t.Errorf("store writes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StoreTeardowns.WithLabelValues("true")); got != 1 {
		t.Errorf("teardowns = %v, want 1", got)
	}

	bus.Publish(events.EligibilityChanged{Ineligible: false, Step: 1})
	if got := testutil.ToFloat64(m.Ineligible); got != 0 {
		t.Errorf("ineligible after recovery = %v, want 0", got)
	}

	cancel()
	bus.Publish(events.DisclosureChanged{Control: "s1q1-op1"})
	if got := testutil.ToFloat64(m.DisclosureChanges); got != 1 {
		t.Errorf("detached collectors still counting: %v", got)
	}
}

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Observe(events.DisclosureChanged{Control: "x"})

	count, err := testutil.GatherAndCount(reg, "formwizard_disclosure_changes_total", "formwizard_ineligible")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("gathered %d series, want 2", count)
	}
}

func TestMetrics_WizardSession(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	bus := events.NewBus()
	defer m.Attach(bus)()

	def, err := config.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	w, err := intake.New(def, intake.WithBus(bus))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	if err := w.Start(ctx, intake.Task{UserLevel: 2}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Next(ctx)
	w.Select("s1q1-op2")

	if got := testutil.ToFloat64(m.StepActivations.WithLabelValues("1")); got != 1 {
		t.Errorf("step 1 activations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Ineligible); got != 1 {
		t.Errorf("ineligible = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StoreWrites.WithLabelValues(intake.OwnerSession)); got == 0 {
		t.Error("session writes were not counted")
	}
}
