package watch

import "sync/atomic"

type MetricsSnapshot struct {
	Watchers  int64
	Delivered int64
	Dropped   int64
}

type Metrics struct {
	watchers  atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordWatcher(delta int) {
	m.watchers.Add(int64(delta))
}

func (m *Metrics) RecordDelivered(delta int) {
	m.delivered.Add(int64(delta))
}

func (m *Metrics) RecordDropped(delta int) {
	m.dropped.Add(int64(delta))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Watchers:  m.watchers.Load(),
		Delivered: m.delivered.Load(),
		Dropped:   m.dropped.Load(),
	}
}
