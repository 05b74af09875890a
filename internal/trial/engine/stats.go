package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RunStats is the aggregate outcome of one batch run. Processed counts
// records successfully inserted or updated; Updated is counted in addition
// to Processed for replacements. Skipped and Errored are disjoint from
// Processed. Failures retains one message per errored record, keyed by the
// record's position in the input, so an operator can locate and re-submit
// failed records.
type RunStats struct {
	RunID      uuid.UUID      `json:"run_id"`
	Total      int            `json:"total"`
	Processed  int            `json:"processed"`
	Skipped    int            `json:"skipped"`
	Updated    int            `json:"updated"`
	Errored    int            `json:"errored"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Failures   map[int]string `json:"failures,omitempty"`
}

func newRunStats(total int) *RunStats {
	return &RunStats{
		RunID:     uuid.New(),
		Total:     total,
		StartedAt: time.Now().UTC(),
		Failures:  make(map[int]string),
	}
}

func (s *RunStats) recordFailure(position int, err error) {
	s.Errored++
	s.Failures[position] = err.Error()
}

// Duration is the wall-clock time of the run.
func (s *RunStats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// LogValue implements slog.LogValuer for structured run summaries.
func (s *RunStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", s.RunID.String()),
		slog.Int("total", s.Total),
		slog.Int("processed", s.Processed),
		slog.Int("skipped", s.Skipped),
		slog.Int("updated", s.Updated),
		slog.Int("errored", s.Errored),
		slog.Duration("duration", s.Duration()),
	)
}
