package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one tick window.
type WindowStats struct {
	WindowStartTick int `csv:"-"`
	WindowEndTick   int `csv:"window_end"`

	// Gauges sampled at window end
	LiveEntities   int `csv:"live_entities"`
	SolidMembers   int `csv:"solid_members"`
	TriggerMembers int `csv:"trigger_members"`

	// Events during the window
	Moves            int    `csv:"moves"`
	Collisions       int    `csv:"collisions"`
	Rollbacks        int    `csv:"rollbacks"`
	Touches          int    `csv:"touches"`
	Queries          int    `csv:"queries"`
	TruncatedQueries int    `csv:"truncated_queries"`
	Created          int    `csv:"created"`
	Destroyed        int    `csv:"destroyed"`
	DroppedInserts   uint64 `csv:"dropped_inserts"`

	// Step wall-clock timing over the window, microseconds
	StepMeanUS float64 `csv:"step_us_mean"`
	StepStdUS  float64 `csv:"step_us_std"`
	StepP50US  float64 `csv:"step_us_p50"`
	StepP90US  float64 `csv:"step_us_p90"`
	StepMaxUS  float64 `csv:"step_us_max"`
}

// fillStepStats computes timing aggregates from per-step durations.
func (s *WindowStats) fillStepStats(stepSeconds []float64) {
	n := len(stepSeconds)
	if n == 0 {
		return
	}

	us := make([]float64, n)
	for i, v := range stepSeconds {
		us[i] = v * 1e6
	}
	sort.Float64s(us)

	s.StepMeanUS = stat.Mean(us, nil)
	if n > 1 {
		s.StepStdUS = stat.StdDev(us, nil)
	}
	s.StepP50US = stat.Quantile(0.50, stat.Empirical, us, nil)
	s.StepP90US = stat.Quantile(0.90, stat.Empirical, us, nil)
	s.StepMaxUS = us[n-1]
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStartTick),
		slog.Int("window_end", s.WindowEndTick),
		slog.Int("live_entities", s.LiveEntities),
		slog.Int("solid_members", s.SolidMembers),
		slog.Int("trigger_members", s.TriggerMembers),
		slog.Int("moves", s.Moves),
		slog.Int("collisions", s.Collisions),
		slog.Int("rollbacks", s.Rollbacks),
		slog.Int("touches", s.Touches),
		slog.Int("queries", s.Queries),
		slog.Int("truncated_queries", s.TruncatedQueries),
		slog.Int("created", s.Created),
		slog.Int("destroyed", s.Destroyed),
		slog.Uint64("dropped_inserts", s.DroppedInserts),
		slog.Float64("step_us_mean", s.StepMeanUS),
		slog.Float64("step_us_std", s.StepStdUS),
		slog.Float64("step_us_p50", s.StepP50US),
		slog.Float64("step_us_p90", s.StepP90US),
		slog.Float64("step_us_max", s.StepMaxUS),
	)
}

// LogStats logs the window stats using slog. Dropped inserts get their own
// warning because they mean queries in dense regions may under-report.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
	if s.DroppedInserts > 0 {
		slog.Warn("overflow arena exhausted, inserts dropped",
			"window_end", s.WindowEndTick,
			"dropped_inserts", s.DroppedInserts,
		)
	}
}
