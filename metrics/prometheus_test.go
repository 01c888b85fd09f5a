package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CreatesTotal.Inc()
	m.SweepMarkedTotal.Add(3)

	if got := testutil.ToFloat64(m.CreatesTotal); got != 1 {
		t.Errorf("want 1 create counted, got %v", got)
	}
	if got := testutil.ToFloat64(m.SweepMarkedTotal); got != 3 {
		t.Errorf("want 3 marked entries counted, got %v", got)
	}

	// Constructing against a second registry must not collide.
	New(prometheus.NewRegistry())
}
