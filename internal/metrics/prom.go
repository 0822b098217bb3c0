package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromSink пишет события сверки в метрики Prometheus
type PromSink struct {
	units   *prometheus.CounterVec
	records *prometheus.CounterVec
	runs    *prometheus.HistogramVec
}

// NewPromSink регистрирует метрики на reg (или на реестре по умолчанию).
// Уже зарегистрированные коллекторы переиспользуются.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_units_total",
		Help: "Reconciliation units processed by final status",
	}, []string{"status"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_records_created_total",
		Help: "Exception records created by kind",
	}, []string{"kind"})
	runs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_run_duration_seconds",
		Help:    "Duration of reconciliation runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})

	if err := reg.Register(units); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			units = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(records); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			records = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{units: units, records: records, runs: runs}, nil
}

func (s *PromSink) RecordUnit(status string) {
	s.units.WithLabelValues(status).Inc()
}

func (s *PromSink) RecordCreated(kind string) {
	s.records.WithLabelValues(kind).Inc()
}

func (s *PromSink) RecordRun(trigger string, d time.Duration) {
	s.runs.WithLabelValues(trigger).Observe(d.Seconds())
}
