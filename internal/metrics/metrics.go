package metrics

import "time"

// Sink принимает события сверки для мониторинга
type Sink interface {
	RecordUnit(status string)
	RecordCreated(kind string)
	RecordRun(trigger string, d time.Duration)
}

// NopSink - сток, который ничего не делает
type NopSink struct{}

func (NopSink) RecordUnit(string)               {}
func (NopSink) RecordCreated(string)            {}
func (NopSink) RecordRun(string, time.Duration) {}
