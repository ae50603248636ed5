package departments

import (
	"context"

	"papershare-backend/internal/shared/telemetry"
)

// Summary is a department with its live content counters.
type Summary struct {
	Department
	PaperCount int `json:"paperCount"`
	NoteCount  int `json:"noteCount"`
}

// Counter reports how many papers and notes each department holds.
type Counter interface {
	DepartmentCounts(ctx context.Context) (papers map[string]int, notes map[string]int, err error)
}

type Service struct {
	Counts Counter
}

func NewService(counts Counter) *Service {
	return &Service{Counts: counts}
}

func (s *Service) counts(ctx context.Context) (map[string]int, map[string]int) {
	if s.Counts == nil {
		return map[string]int{}, map[string]int{}
	}
	papers, notes, err := s.Counts.DepartmentCounts(ctx)
	if err != nil {
		telemetry.Warn("departments.count_failed", map[string]any{"error": err.Error()})
		return map[string]int{}, map[string]int{}
	}
	return papers, notes
}

func (s *Service) List(ctx context.Context) []Summary {
	papers, notes := s.counts(ctx)
	out := make([]Summary, 0, len(catalog))
	for _, d := range All() {
		out = append(out, Summary{Department: d, PaperCount: papers[d.ID], NoteCount: notes[d.ID]})
	}
	return out
}

func (s *Service) Get(ctx context.Context, id string) (Summary, error) {
	d, ok := Lookup(id)
	if !ok {
		return Summary{}, ErrNotFound
	}
	papers, notes := s.counts(ctx)
	return Summary{Department: d, PaperCount: papers[d.ID], NoteCount: notes[d.ID]}, nil
}
