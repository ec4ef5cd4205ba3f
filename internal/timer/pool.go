// Package timer provides the cooperative software timer pool of the node
// main loop.
//
// The pool is a fixed-capacity array of slots serviced round-robin: every
// call to Run inspects exactly one slot and fires its callback when due.
// Nothing blocks and nothing runs in the background, so the pool is safe to
// drive from the real-time loop.
//
// Key properties:
//   - O(1) add and swap-with-last delete
//   - Wrap-tolerant millisecond expiry (32-bit clock)
//   - Rescheduling relative to the invocation time, so a late loop never
//     produces a burst of catch-up callbacks
//
// A Pool is not safe for concurrent use. It belongs to the single loop
// that calls Run.
package timer

import (
	"time"

	"github.com/xtxerr/dmxnode/internal/errors"
	"github.com/xtxerr/dmxnode/internal/logging"
)

var log = logging.Component("timer")

// =============================================================================
// Types
// =============================================================================

// ID identifies a timer within its pool.
type ID int32

// InvalidID is never handed out by Add.
const InvalidID ID = 0

// Clock is a monotonic millisecond clock. The value may wrap.
type Clock interface {
	Millis() uint32
}

// SystemClock derives milliseconds from the monotonic wall clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock that starts at zero now.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Millis returns the milliseconds elapsed since the clock was created,
// truncated to 32 bits.
func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

type slot struct {
	expire     uint32
	intervalMs uint32
	id         ID
	fn         func()
}

// =============================================================================
// Pool
// =============================================================================

// Pool is a fixed-capacity round-robin timer pool.
type Pool struct {
	clock  Clock
	slots  []slot
	count  int
	cursor int
	nextID ID

	fired int64
}

// New creates a pool with room for capacity timers.
func New(capacity int, clock Clock) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	if clock == nil {
		clock = NewSystemClock()
	}

	return &Pool{
		clock:  clock,
		slots:  make([]slot, capacity),
		nextID: 1,
	}
}

// Add registers fn to be called every intervalMs milliseconds. The first
// call happens intervalMs after now.
func (p *Pool) Add(intervalMs uint32, fn func()) (ID, error) {
	if fn == nil {
		return InvalidID, errors.ErrInvalidTimer
	}
	if p.count == len(p.slots) {
		return InvalidID, errors.ErrPoolFull
	}

	id := p.allocID()
	p.slots[p.count] = slot{
		expire:     p.clock.Millis() + intervalMs,
		intervalMs: intervalMs,
		id:         id,
		fn:         fn,
	}
	p.count++

	log.Debug("timer added", "id", id, "interval_ms", intervalMs, "active", p.count)
	return id, nil
}

// Delete removes a timer. The last active slot is moved into the freed
// position.
func (p *Pool) Delete(id ID) error {
	idx := p.find(id)
	if idx < 0 {
		return errors.Wrapf(errors.ErrTimerNotFound, "delete timer %d", id)
	}

	last := p.count - 1
	p.slots[idx] = p.slots[last]
	p.slots[last] = slot{}
	p.count--

	if p.cursor >= p.count {
		p.cursor = 0
	}

	log.Debug("timer deleted", "id", id, "active", p.count)
	return nil
}

// Change sets a new interval and restarts the timer from now.
func (p *Pool) Change(id ID, intervalMs uint32) error {
	idx := p.find(id)
	if idx < 0 {
		return errors.Wrapf(errors.ErrTimerNotFound, "change timer %d", id)
	}

	p.slots[idx].intervalMs = intervalMs
	p.slots[idx].expire = p.clock.Millis() + intervalMs
	return nil
}

// Run services one slot and reports whether a callback fired. It is called
// once per main-loop iteration.
func (p *Pool) Run() bool {
	if p.count == 0 {
		return false
	}

	s := p.slots[p.cursor]
	now := p.clock.Millis()

	if int32(now-s.expire) < 0 {
		p.advance()
		return false
	}

	s.fn()
	p.fired++

	// The callback may have deleted or changed any timer, itself included.
	idx := p.find(s.id)
	if idx < 0 {
		// Its slot now holds another timer which has not been inspected.
		return true
	}

	p.slots[idx].expire = now + p.slots[idx].intervalMs
	p.advance()
	return true
}

// Contains reports whether id is registered.
func (p *Pool) Contains(id ID) bool {
	return p.find(id) >= 0
}

// Interval returns the interval of a registered timer.
func (p *Pool) Interval(id ID) (uint32, bool) {
	idx := p.find(id)
	if idx < 0 {
		return 0, false
	}
	return p.slots[idx].intervalMs, true
}

// Len returns the number of active timers.
func (p *Pool) Len() int {
	return p.count
}

// Cap returns the pool capacity.
func (p *Pool) Cap() int {
	return len(p.slots)
}

// Fired returns the total number of callbacks run.
func (p *Pool) Fired() int64 {
	return p.fired
}

// Now returns the pool's clock reading.
func (p *Pool) Now() uint32 {
	return p.clock.Millis()
}

// =============================================================================
// Internal
// =============================================================================

func (p *Pool) advance() {
	p.cursor++
	if p.cursor >= p.count {
		p.cursor = 0
	}
}

func (p *Pool) find(id ID) int {
	if id == InvalidID {
		return -1
	}
	for i := 0; i < p.count; i++ {
		if p.slots[i].id == id {
			return i
		}
	}
	return -1
}

func (p *Pool) allocID() ID {
	for {
		id := p.nextID
		p.nextID++
		if p.nextID <= InvalidID {
			p.nextID = 1
		}
		if id != InvalidID && p.find(id) < 0 {
			return id
		}
	}
}
