package store

import (
	"github.com/xtxerr/dmxnode/internal/storage/aggregate"
)

// Stats summarises store activity.
type Stats struct {
	State   State
	Durable bool

	// Mutations counts changes that dirtied the record, boot resets
	// included.
	Mutations int64
	Resets    int64

	Cycles      int64
	Requeued    int64
	EraseQuanta int64
	WriteQuanta int64
	IOErrors    int64

	// CycleMs is the duration of completed erase+write cycles in
	// milliseconds of the timer clock.
	CycleMs aggregate.Summary
}

type statsCollector struct {
	mutations   int64
	resets      int64
	cycles      int64
	requeued    int64
	eraseQuanta int64
	writeQuanta int64
	ioErrors    int64

	cycleStart uint32
	cycleMs    *aggregate.StreamingAggregate
}

func newStatsCollector() statsCollector {
	return statsCollector{
		cycleMs: aggregate.New("cycle_ms", true),
	}
}

func (c *statsCollector) beginCycle(now uint32) {
	c.cycleStart = now
}

func (c *statsCollector) endCycle(now uint32) {
	c.cycles++
	c.cycleMs.Add(float64(now - c.cycleStart))
}

// Stats returns a snapshot of the counters.
func (s *Store) Stats() Stats {
	return Stats{
		State:       s.state,
		Durable:     s.durable,
		Mutations:   s.stats.mutations,
		Resets:      s.stats.resets,
		Cycles:      s.stats.cycles,
		Requeued:    s.stats.requeued,
		EraseQuanta: s.stats.eraseQuanta,
		WriteQuanta: s.stats.writeQuanta,
		IOErrors:    s.stats.ioErrors,
		CycleMs:     s.stats.cycleMs.Summary(),
	}
}
