// internal/summary/stats.go
package summary

import (
	"time"

	"github.com/user/vaultscribe/internal/types"
)

// PeriodStats aggregates one log period.
type PeriodStats struct {
	Count int
	First time.Time
	Last  time.Time
}

// Stats is the aggregate state both summary artifacts are rendered from.
// It is fully derived: a rebuild recomputes it from the period files alone.
type Stats struct {
	Total   int
	ByKind  map[types.EventKind]int
	Periods map[string]PeriodStats
	First   time.Time
	Last    time.Time
	Recent  []*types.EventRecord
}

func newStats() Stats {
	return Stats{
		ByKind:  make(map[types.EventKind]int),
		Periods: make(map[string]PeriodStats),
	}
}

// add folds one record into the stats, keeping at most recentN records in
// the recency ring.
func (s *Stats) add(rec *types.EventRecord, periodKey string, recentN int) {
	s.Total++
	s.ByKind[rec.Type]++

	p := s.Periods[periodKey]
	p.Count++
	if p.First.IsZero() || rec.Timestamp.Before(p.First) {
		p.First = rec.Timestamp
	}
	if rec.Timestamp.After(p.Last) {
		p.Last = rec.Timestamp
	}
	s.Periods[periodKey] = p

	if s.First.IsZero() || rec.Timestamp.Before(s.First) {
		s.First = rec.Timestamp
	}
	if rec.Timestamp.After(s.Last) {
		s.Last = rec.Timestamp
	}

	s.Recent = append(s.Recent, rec)
	if len(s.Recent) > recentN {
		s.Recent = s.Recent[len(s.Recent)-recentN:]
	}
}

// clone returns an independent copy safe to hand to callers.
func (s Stats) clone() Stats {
	out := Stats{
		Total:   s.Total,
		ByKind:  make(map[types.EventKind]int, len(s.ByKind)),
		Periods: make(map[string]PeriodStats, len(s.Periods)),
		First:   s.First,
		Last:    s.Last,
		Recent:  append([]*types.EventRecord(nil), s.Recent...),
	}
	for k, v := range s.ByKind {
		out.ByKind[k] = v
	}
	for k, v := range s.Periods {
		out.Periods[k] = v
	}
	return out
}
