package world

import "time"

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Robots      int `json:"robots"`
	Statics     int `json:"statics"`
	Connections int `json:"connections"`

	StepMS float64 `json:"step_ms"`

	Totals StatsTotals `json:"totals"`

	StatsWindowTicks uint64      `json:"stats_window_ticks"`
	StatsWindow      StatsBucket `json:"stats_window"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(now uint64) {
	w.publishMetricsTimed(now, 0)
}

func (w *World) publishMetricsTimed(now uint64, elapsed time.Duration) {
	w.metrics.Store(WorldMetrics{
		Tick:             now,
		Robots:           len(w.robots),
		Statics:          len(w.statics),
		Connections:      w.conns.count(),
		StepMS:           float64(elapsed.Microseconds()) / 1000.0,
		Totals:           w.stats.Totals(),
		StatsWindowTicks: w.stats.WindowTicks(),
		StatsWindow:      w.stats.Summarize(now),
	})
}
