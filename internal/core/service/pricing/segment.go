package pricing

import (
	"sort"
	"time"

	"github.com/Tamerlan-hash/diploma-backend/internal/core/domain"
)

// segmentBoundaries returns the ordered instants cutting [start, end)
// into maximal sub-intervals within which the matching rule cannot
// change: the interval endpoints, every occurrence of a rule window's
// clock edge, local midnights when any rule discriminates by day, and
// rule validity bounds. A snapshot with no crossable boundary yields
// exactly [start, end].
func (e *Engine) segmentBoundaries(start, end time.Time, snap domain.RuleSnapshot) []time.Time {
	clockEdges := make(map[domain.ClockTime]struct{})
	needMidnights := false
	var validity []time.Time

	for _, rule := range snap.Rules() {
		for _, edge := range rule.Period.Edges() {
			clockEdges[edge] = struct{}{}
		}
		if rule.Days.Kind != domain.DaysAll {
			// Day category can flip at the date boundary.
			needMidnights = true
		}
		if !rule.ValidFrom.IsZero() {
			validity = append(validity, rule.ValidFrom)
		}
		if rule.ValidTo != nil {
			validity = append(validity, *rule.ValidTo)
		}
	}

	cuts := make(map[int64]time.Time)
	add := func(t time.Time) {
		if t.After(start) && t.Before(end) {
			cuts[t.UnixNano()] = t
		}
	}

	// Walk each local calendar date the interval touches and materialize
	// the recurring clock edges on that date.
	localStart := start.In(e.loc)
	localEnd := end.In(e.loc)
	day := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, e.loc)
	for !day.After(localEnd) {
		if needMidnights {
			add(day)
		}
		for edge := range clockEdges {
			add(time.Date(day.Year(), day.Month(), day.Day(), edge.Hour(), edge.Minute(), 0, 0, e.loc))
		}
		day = day.AddDate(0, 0, 1)
	}

	for _, t := range validity {
		add(t)
	}

	boundaries := make([]time.Time, 0, len(cuts)+2)
	boundaries = append(boundaries, start)
	for _, t := range cuts {
		boundaries = append(boundaries, t)
	}
	boundaries = append(boundaries, end)

	sort.Slice(boundaries, func(i, j int) bool {
		return boundaries[i].Before(boundaries[j])
	})
	return boundaries
}
