package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromSink_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	require.NoError(t, err)

	sink.RecordUnit("RECONCILED")
	sink.RecordUnit("RECONCILED")
	sink.RecordUnit("PENDING")
	sink.RecordCreated("absence")
	sink.RecordRun("window", 150*time.Millisecond)

	expected := `
# HELP reconcile_units_total Reconciliation units processed by final status
# TYPE reconcile_units_total counter
reconcile_units_total{status="PENDING"} 1
reconcile_units_total{status="RECONCILED"} 2
`
	assert.NoError(t, testutil.CollectAndCompare(sink.units, strings.NewReader(expected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.records.WithLabelValues("absence")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.runs))
}

func TestNewPromSink_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSink(reg)
	require.NoError(t, err)
	second, err := NewPromSink(reg)
	require.NoError(t, err)

	first.RecordCreated("overtime:unscheduled-extra")
	assert.Equal(t, 1.0, testutil.ToFloat64(second.records.WithLabelValues("overtime:unscheduled-extra")))
}

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	s.RecordUnit("FAILED")
	s.RecordCreated("absence")
	s.RecordRun("unit", time.Second)
}
