// Package store keeps the authoritative in-memory configuration record and
// persists it to a storage backend.
//
// Mutations are applied synchronously to memory and mark the record dirty.
// A debounce timer then drives the flush pipeline one quantum at a time:
//
//	Idle -> Changed -> ChangedWaiting -> Erasing -> ErasedWaiting
//	     -> Erased -> Writing -> Idle
//
// so a burst of field writes coalesces into one erase+write of the whole
// record and the main loop is never blocked. Mutations that arrive while a
// cycle is in flight are picked up by the next cycle.
//
// A Store is owned by the single cooperative loop that runs its timer pool
// and is not safe for concurrent use. At most one Store is open per
// process.
package store

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/xtxerr/dmxnode/config"
	"github.com/xtxerr/dmxnode/internal/errors"
	"github.com/xtxerr/dmxnode/internal/layout"
	"github.com/xtxerr/dmxnode/internal/logging"
	"github.com/xtxerr/dmxnode/internal/storage/backend"
	"github.com/xtxerr/dmxnode/internal/storage/buffer"
	"github.com/xtxerr/dmxnode/internal/timer"
)

var log = logging.Component("store")

// bootReadLimit bounds the polls spent on the boot read.
const bootReadLimit = 1 << 16

// historySize is the number of state transitions kept for History.
const historySize = 32

// Options configures a Store.
type Options struct {
	// Debug panics when a backend reports an error result. Otherwise the
	// step is logged and retried on the next quantum.
	Debug bool

	// DebounceMs is the debounce timer period. Zero selects the default.
	DebounceMs uint32

	// Sectors is the number of top-most backend sectors holding the
	// record. It is raised when the record does not fit.
	Sectors uint32
}

// DefaultOptions returns the production options.
func DefaultOptions() Options {
	return Options{
		DebounceMs: uint32(config.DefaultDebounceInterval.Milliseconds()),
		Sectors:    config.DefaultRecordSectors,
	}
}

// =============================================================================
// Singleton guard
// =============================================================================

var (
	instanceMu sync.Mutex
	instance   *Store
)

// Default returns the open store, or nil.
func Default() *Store {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instance
}

// =============================================================================
// Store
// =============================================================================

// Store is the configuration store.
type Store struct {
	opts    Options
	b       backend.Backend
	durable bool
	timers  *timer.Pool
	timerID timer.ID

	base      uint32
	eraseSpan uint32

	rec      layout.Record
	snapshot []byte
	current  []byte
	state    State

	stats   statsCollector
	history *buffer.Ring[Transition]
}

// Open boots the store from b. A nil or undetected backend degrades to a
// volatile RAM backend. Open fails with ErrAlreadyOpen while another store
// is open.
func Open(b backend.Backend, timers *timer.Pool, opts Options) (*Store, error) {
	if timers == nil {
		return nil, errors.NewMissingField("timer pool")
	}

	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		return nil, errors.ErrAlreadyOpen
	}

	if opts.DebounceMs == 0 {
		opts.DebounceMs = uint32(config.DefaultDebounceInterval.Milliseconds())
	}
	if opts.Sectors == 0 {
		opts.Sectors = config.DefaultRecordSectors
	}

	s := &Store{
		opts:     opts,
		timers:   timers,
		snapshot: make([]byte, layout.Size),
		current:  make([]byte, layout.Size),
		stats:    newStatsCollector(),
		history:  buffer.New[Transition](historySize),
	}

	s.durable = b != nil && b.IsDetected()
	if !s.durable {
		log.Warn("no storage backend detected, settings will not persist",
			"backend", backend.Describe(b))
		b = backend.NewRAM(layout.BlockSize, layout.BlockSize)
	}
	s.b = b

	if err := s.placeRecord(); err != nil {
		return nil, err
	}

	s.boot()
	instance = s

	log.Info("configuration store open",
		"backend", backend.Describe(s.b),
		"durable", s.durable,
		"base", s.base,
		"record_size", layout.Size,
		"state", s.state)
	return s, nil
}

// Close releases the process-wide guard and the debounce timer. It does
// not flush; call Flush first to persist pending changes.
func (s *Store) Close() error {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != s {
		return errors.ErrNotOpen
	}
	instance = nil

	if s.timerID != timer.InvalidID {
		_ = s.timers.Delete(s.timerID)
		s.timerID = timer.InvalidID
	}
	if s.state != StateIdle {
		log.Warn("store closed with unsaved changes", "state", s.state)
	}
	return nil
}

// placeRecord computes the record area at the top of the backend.
func (s *Store) placeRecord() error {
	sector := s.b.SectorSize()
	if sector == 0 {
		return errors.NewInvalidValue("sector size", sector, "must be non-zero")
	}

	sectors := s.opts.Sectors
	if need := (uint32(layout.Size) + sector - 1) / sector; sectors < need {
		// Byte-granular media always need one sector per record byte.
		if sector > 1 {
			log.Warn("record spans more sectors than configured", "configured", sectors, "using", need)
		}
		sectors = need
	}

	span := sectors * sector
	if span > s.b.Size() {
		return errors.Wrapf(errors.ErrOutOfRange, "record needs %d bytes, backend has %d", span, s.b.Size())
	}

	s.opts.Sectors = sectors
	s.eraseSpan = span
	s.base = backend.Base(s.b, sectors)
	return nil
}

// boot reads the stored record and self-heals an invalid one.
func (s *Store) boot() {
	buf := make([]byte, layout.Size)

	res := backend.ResultError
	for i := 0; i < bootReadLimit; i++ {
		var done bool
		if done, res = s.b.Read(s.base, uint32(layout.Size), buf); done {
			break
		}
	}

	var err error
	if res != backend.ResultOK {
		err = errors.Wrapf(res.Err(), "read record at %#x", s.base)
	} else if err = layout.CheckHeader(buf); err == nil {
		err = s.rec.UnmarshalBinary(buf)
	}

	if err == nil {
		copy(s.snapshot, buf)
		return
	}

	if errors.IsRecordError(err) {
		log.Warn("stored record invalid, resetting to defaults", "error", err)
	} else {
		log.Error("cannot read stored record, resetting to defaults", "error", err)
	}
	s.rec.Reset()
	s.stats.resets++
	s.markChanged()
}

// =============================================================================
// Flush pipeline
// =============================================================================

// Commit performs one quantum of the flush pipeline. It returns true while
// more work remains and false when nothing is pending or Idle was just
// reached.
func (s *Store) Commit() bool {
	switch s.state {
	case StateIdle:
		return false

	case StateChanged:
		s.transition(StateChangedWaiting)
		return true

	case StateChangedWaiting:
		s.takeSnapshot()
		s.stats.beginCycle(s.timers.Now())
		s.transition(StateErasing)
		return s.eraseStep()

	case StateErasing:
		return s.eraseStep()

	case StateErasedWaiting:
		s.transition(StateErased)
		return true

	case StateErased:
		s.setTimerInterval(0)
		s.transition(StateWriting)
		return s.writeStep()

	case StateWriting:
		return s.writeStep()

	default:
		panic(fmt.Sprintf("store: unknown state %d", s.state))
	}
}

// eraseStep issues or polls the erase of the record area.
func (s *Store) eraseStep() bool {
	s.stats.eraseQuanta++
	done, res := s.b.Erase(s.base, s.eraseSpan)
	if !done {
		return true
	}
	if res != backend.ResultOK {
		s.fault("erase", res)
		return true
	}
	s.transition(StateErasedWaiting)
	return true
}

// writeStep issues or polls the write of the snapshot.
func (s *Store) writeStep() bool {
	s.stats.writeQuanta++
	done, res := s.b.Write(s.base, uint32(len(s.snapshot)), s.snapshot)
	if !done {
		return true
	}
	if res != backend.ResultOK {
		s.fault("write", res)
		return true
	}
	return s.finishCycle()
}

// Flush drains the pipeline synchronously.
func (s *Store) Flush() {
	for s.Commit() {
	}
}

// Drain runs at most limit quanta and reports whether the store reached
// Idle.
func (s *Store) Drain(limit int) bool {
	for i := 0; i < limit; i++ {
		if !s.Commit() {
			return s.state == StateIdle
		}
	}
	return s.state == StateIdle
}

func (s *Store) finishCycle() bool {
	s.stats.endCycle(s.timers.Now())

	if err := s.rec.MarshalTo(s.current); err != nil {
		panic("store: " + err.Error())
	}
	if !bytes.Equal(s.current, s.snapshot) {
		// Mutations landed while the cycle was in flight.
		s.stats.requeued++
		s.transition(StateChanged)
		s.setTimerInterval(s.opts.DebounceMs)
		log.Debug("record changed during flush, rescheduling")
		return true
	}

	s.transition(StateIdle)
	if s.timerID != timer.InvalidID {
		if err := s.timers.Delete(s.timerID); err != nil {
			log.Warn("cannot delete debounce timer", "id", s.timerID, "error", err)
		}
		s.timerID = timer.InvalidID
	}
	log.Debug("record persisted", "bytes", len(s.snapshot), "durable", s.durable)
	return false
}

func (s *Store) takeSnapshot() {
	if err := s.rec.MarshalTo(s.snapshot); err != nil {
		panic("store: " + err.Error())
	}
}

// fault handles an error result in a state that expects success. The
// step is retried on the next quantum either way; range and presence
// errors are logged as errors since a retry will repeat them.
func (s *Store) fault(op string, res backend.Result) {
	s.stats.ioErrors++
	err := res.Err()
	if s.opts.Debug {
		panic(fmt.Sprintf("store: %s failed in state %s: %v", op, s.state, res))
	}

	if errors.IsRetriable(err) {
		log.Warn("backend operation failed, retrying",
			"op", op,
			"state", s.state,
			"result", res,
			"error", err)
		return
	}
	log.Error("backend rejected operation",
		"op", op,
		"state", s.state,
		"result", res,
		"error", err,
		"device_error", errors.IsDeviceError(err))
}

// markChanged records a mutation and arms the debounce timer.
func (s *Store) markChanged() {
	s.stats.mutations++
	if s.state != StateIdle {
		return
	}
	s.transition(StateChanged)
	s.armTimer()
}

func (s *Store) armTimer() {
	if s.timerID != timer.InvalidID && s.timers.Contains(s.timerID) {
		return
	}

	id, err := s.timers.Add(s.opts.DebounceMs, func() { s.Commit() })
	if err != nil {
		// Flush still drains the pipeline; only the automatic commit is lost.
		log.Error("cannot arm debounce timer", "error", err)
		s.timerID = timer.InvalidID
		return
	}
	s.timerID = id
}

func (s *Store) setTimerInterval(ms uint32) {
	if s.timerID == timer.InvalidID {
		return
	}
	if err := s.timers.Change(s.timerID, ms); err != nil {
		log.Warn("cannot change debounce timer", "id", s.timerID, "error", err)
	}
}

func (s *Store) transition(to State) {
	if !validTransitions[stateTransition{s.state, to}] {
		panic(fmt.Sprintf("store: invalid transition %s -> %s", s.state, to))
	}
	log.Debug("state", "from", s.state, "to", to)
	s.history.Push(Transition{AtMs: s.timers.Now(), From: s.state, To: to})
	s.state = to
}

// =============================================================================
// Queries
// =============================================================================

// State returns the flush state.
func (s *Store) State() State {
	return s.state
}

// Durable reports whether changes reach a physical backend.
func (s *Store) Durable() bool {
	return s.durable
}

// Backend returns the backend in use.
func (s *Store) Backend() backend.Backend {
	return s.b
}

// Base returns the backend offset of the record.
func (s *Store) Base() uint32 {
	return s.base
}

// TimerID returns the debounce timer, or timer.InvalidID when none is
// armed.
func (s *Store) TimerID() timer.ID {
	return s.timerID
}

// Record returns a copy of the in-memory record.
func (s *Store) Record() layout.Record {
	return s.rec
}

// Persisted returns a copy of the last snapshot taken for writing (or read
// at boot).
func (s *Store) Persisted() []byte {
	out := make([]byte, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}
