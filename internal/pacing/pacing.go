// Package pacing orders run candidates and spaces actions with randomized
// delays so outreach never fires in a mechanical rhythm.
package pacing

import (
	"math/rand"
	"sort"
	"time"

	"outreachbot/internal/prospect"
)

// Step pairs a candidate with the delay to wait before acting on it.
type Step struct {
	Prospect prospect.Prospect
	Delay    time.Duration
}

// Order sorts candidates in place by (fewest prior attempts, then oldest
// discovery). Every prospect gets a first attempt before any retry, and
// older discoveries go first to bound staleness.
func Order(list []prospect.Prospect) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Attempts != list[j].Attempts {
			return list[i].Attempts < list[j].Attempts
		}
		return list[i].DiscoveredAt.Before(list[j].DiscoveredAt)
	})
}

// Schedule is a finite, lazily-consumed sequence of steps for one run.
// It is created fresh per run and is not restartable.
type Schedule struct {
	rng      *rand.Rand
	min, max time.Duration
	queue    []prospect.Prospect
	idx      int
}

// New orders a copy of candidates and builds the run's schedule. The random
// source is injected so delay sequences are reproducible under a fixed seed;
// delays are drawn uniformly from [min, max], independently per step.
func New(candidates []prospect.Prospect, min, max time.Duration, rng *rand.Rand) *Schedule {
	queue := append([]prospect.Prospect(nil), candidates...)
	Order(queue)
	if max < min {
		max = min
	}
	return &Schedule{rng: rng, min: min, max: max, queue: queue}
}

// Len reports how many steps remain.
func (s *Schedule) Len() int { return len(s.queue) - s.idx }

// Next produces the next step, drawing a fresh delay. It returns ok=false
// once the candidate list is exhausted. The caller decides whether to stop
// consuming early (budget exhausted, abort); Next itself never blocks.
func (s *Schedule) Next() (Step, bool) {
	if s.idx >= len(s.queue) {
		return Step{}, false
	}
	st := Step{Prospect: s.queue[s.idx], Delay: s.draw()}
	s.idx++
	return st, true
}

func (s *Schedule) draw() time.Duration {
	if s.max <= s.min {
		return s.min
	}
	span := int64(s.max - s.min)
	return s.min + time.Duration(s.rng.Int63n(span+1))
}
